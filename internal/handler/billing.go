package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// BillingHandler fronts the Billing service.
type BillingHandler struct {
	billing *upstream.Client
	authz   *service.Authorizer
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billing *upstream.Client, authz *service.Authorizer) *BillingHandler {
	return &BillingHandler{billing: billing, authz: authz}
}

// Invoices handles GET /merchants/:merchantID/billing/invoices.
func (h *BillingHandler) Invoices(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.billing.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID+"/invoices", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// UpdatePayoutFrequency handles PATCH
// /merchants/:merchantID/billing/payout-frequency. Admin role only; an
// unknown frequency surfaces as the Billing service's own 404 envelope.
func (h *BillingHandler) UpdatePayoutFrequency(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")

	body, err := requireBody(c, emptyBodyDescription("update the payout frequency"))
	if err != nil {
		return err
	}
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAdmin); err != nil {
		return err
	}

	resp, err := h.billing.Forward(c.UserContext(), fiber.MethodPatch, "merchants/"+merchantID+"/payout-frequency", nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}
