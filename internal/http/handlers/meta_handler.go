package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chainraise/backend/internal/config"
	"github.com/chainraise/backend/internal/http/dto"
)

type MetaHandler struct {
	cfg      *config.Config
	operator string
}

func NewMetaHandler(cfg *config.Config, operator string) *MetaHandler {
	return &MetaHandler{cfg: cfg, operator: operator}
}

// GetInfo exposes the chain configuration clients need to render amounts
// and link to the contract.
func (h *MetaHandler) GetInfo(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"contract_address": h.cfg.ContractAddress,
		"token_address":    h.cfg.TokenAddress,
		"token_decimals":   h.cfg.TokenDecimals,
		"operator_address": h.operator,
	}})
}

// GetStatuses lists the status tabs the UI filters by.
func (h *MetaHandler) GetStatuses(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: []string{
		"all", "active", "successful", "failed", "closing", "closed",
	}})
}
