package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/chain"
	"github.com/chainraise/backend/internal/http/dto"
	"github.com/chainraise/backend/internal/middleware"
	"github.com/chainraise/backend/internal/models"
	"github.com/chainraise/backend/internal/services"
	"github.com/chainraise/backend/internal/token"
)

type CampaignHandler struct {
	campaigns *services.CampaignService
	creation  *services.CreationService
	log       *zap.Logger
}

func NewCampaignHandler(campaigns *services.CampaignService, creation *services.CreationService, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, creation: creation, log: log}
}

func campaignID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// ListCampaigns serves the filtered, sorted collection.
func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	viewer := middleware.GetAddress(c)
	list := h.campaigns.List(c.Context(), viewer, services.ListFilter{
		Status:  c.Query("status"),
		Type:    c.Query("type"),
		Creator: c.Query("creator"),
		Sort:    c.Query("sort"),
	})
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, err := campaignID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	view, err := h.campaigns.Get(c.Context(), id, middleware.GetAddress(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "campaign not found"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: view})
}

// Refresh re-reads the chain snapshot on demand.
func (h *CampaignHandler) Refresh(c *fiber.Ctx) error {
	if err := h.campaigns.Refresh(c.Context()); err != nil {
		h.log.Error("manual refresh failed", zap.Error(err))
		// retry tells the client the snapshot is intact and it may try again
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "chain read failed", "retry": true})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *CampaignHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.campaigns.Stats()})
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	in := services.CreationInput{
		Title:        req.Title,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		EndTime:      req.EndTime,
		ImageName:    req.ImageName,
	}
	if req.Type == "charity" {
		in.Type = models.TypeCharity
	}
	if req.ImageBase64 != "" {
		img, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid image encoding"})
		}
		in.Image = img
	}

	result, err := h.creation.Create(c.Context(), in)
	if err != nil {
		return h.creationError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: result})
}

func (h *CampaignHandler) creationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrEndTimeInPast),
		errors.Is(err, token.ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrCreationInProgress):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, chain.ErrNoWallet):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "no operator wallet configured"})
	case errors.Is(err, services.ErrUploadFailed):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		h.log.Error("campaign creation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "creation failed"})
	}
}

func (h *CampaignHandler) Donate(c *fiber.Ctx) error {
	id, err := campaignID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	var req dto.DonateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	tx, err := h.campaigns.Donate(c.Context(), id, middleware.GetAddress(c), req.Amount)
	if err != nil {
		return h.actionError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.TxResponse{Tx: tx}})
}

func (h *CampaignHandler) InitiateClosure(c *fiber.Ctx) error {
	return h.lifecycleAction(c, h.campaigns.InitiateClosure)
}

func (h *CampaignHandler) Withdraw(c *fiber.Ctx) error {
	return h.lifecycleAction(c, h.campaigns.Withdraw)
}

func (h *CampaignHandler) ClaimRefund(c *fiber.Ctx) error {
	return h.lifecycleAction(c, h.campaigns.ClaimRefund)
}

func (h *CampaignHandler) Cancel(c *fiber.Ctx) error {
	return h.lifecycleAction(c, h.campaigns.Cancel)
}

func (h *CampaignHandler) lifecycleAction(c *fiber.Ctx, call func(context.Context, int64, string) (string, error)) error {
	id, err := campaignID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	tx, err := call(c.Context(), id, middleware.GetAddress(c))
	if err != nil {
		return h.actionError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.TxResponse{Tx: tx}})
}

func (h *CampaignHandler) actionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrCampaignNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "campaign not found"})
	case errors.Is(err, services.ErrActionNotAvailable):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, token.ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, chain.ErrNoWallet):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "no operator wallet configured"})
	case errors.Is(err, chain.ErrTransactionFailed):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		h.log.Error("campaign action failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "action failed"})
	}
}
