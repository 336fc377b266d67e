package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/http/dto"
	"github.com/chainraise/backend/internal/middleware"
	"github.com/chainraise/backend/internal/services"
)

type AccountHandler struct {
	accounts *services.AccountService
	log      *zap.Logger
}

func NewAccountHandler(accounts *services.AccountService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, log: log}
}

func offsetQuery(c *fiber.Ctx) int {
	n, _ := strconv.Atoi(c.Query("offset"))
	return n
}

// Donations serves one page of the viewer's donation history.
func (h *AccountHandler) Donations(c *fiber.Ctx) error {
	viewer := middleware.GetAddress(c)
	page, err := h.accounts.Donations(c.Context(), viewer, offsetQuery(c))
	if err != nil {
		h.log.Error("donation feed failed", zap.String("viewer", viewer), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "activity unavailable"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: page})
}

// Creations serves one page of the viewer's campaign creations.
func (h *AccountHandler) Creations(c *fiber.Ctx) error {
	viewer := middleware.GetAddress(c)
	page, err := h.accounts.Creations(c.Context(), viewer, offsetQuery(c))
	if err != nil {
		h.log.Error("creation feed failed", zap.String("viewer", viewer), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "activity unavailable"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: page})
}

// MyCampaigns lists the viewer's own campaigns, filtered by status tab.
func (h *AccountHandler) MyCampaigns(c *fiber.Ctx) error {
	viewer := middleware.GetAddress(c)
	list := h.accounts.MyCampaigns(c.Context(), viewer, c.Query("status"))
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}

// DonatedCampaigns lists campaigns the viewer contributed to, with the
// cumulative contribution per campaign.
func (h *AccountHandler) DonatedCampaigns(c *fiber.Ctx) error {
	viewer := middleware.GetAddress(c)
	list, contributed, err := h.accounts.DonatedCampaigns(c.Context(), viewer)
	if err != nil {
		h.log.Error("donated campaigns failed", zap.String("viewer", viewer), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "activity unavailable"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"campaigns":   list,
		"contributed": contributed,
	}})
}
