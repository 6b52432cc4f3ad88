package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// LedgersHandler fronts the Ledgers service.
type LedgersHandler struct {
	ledgers *upstream.Client
	authz   *service.Authorizer
}

// NewLedgersHandler creates a new ledgers handler
func NewLedgersHandler(ledgers *upstream.Client, authz *service.Authorizer) *LedgersHandler {
	return &LedgersHandler{ledgers: ledgers, authz: authz}
}

// List handles GET /merchants/:merchantID/ledgers.
func (h *LedgersHandler) List(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.ledgers.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID+"/ledgers", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Entries handles GET /merchants/:merchantID/ledgers/:ledgerID/entries.
func (h *LedgersHandler) Entries(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	path := "merchants/" + merchantID + "/ledgers/" + c.Params("ledgerID") + "/entries"
	resp, err := h.ledgers.Forward(c.UserContext(), fiber.MethodGet, path, queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}
