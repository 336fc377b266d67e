package handlers

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/auth"
	"github.com/chainraise/backend/internal/http/dto"
	"github.com/chainraise/backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// Nonce issues the login challenge the wallet signs.
func (h *AuthHandler) Nonce(c *fiber.Ctx) error {
	var req dto.NonceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if !common.IsHexAddress(req.Address) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid wallet address"})
	}

	message, err := h.authService.IssueNonce(c.Context(), req.Address)
	if err != nil {
		h.log.Error("nonce issue failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.NonceResponse{Message: message})
}

// Login exchanges a signed nonce for a JWT.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if !common.IsHexAddress(req.Address) || req.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address and signature are required"})
	}

	token, err := h.authService.Login(c.Context(), req.Address, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNonceUnknown), errors.Is(err, services.ErrSignatureInvalid):
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
		default:
			h.log.Error("login failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
		}
	}

	return c.JSON(dto.AuthResponse{
		Token:   token,
		Address: auth.Checksum(req.Address),
	})
}
