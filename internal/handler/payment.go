package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// PaymentHandler fronts the Payment service.
type PaymentHandler struct {
	payments *upstream.Client
	authz    *service.Authorizer
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *upstream.Client, authz *service.Authorizer) *PaymentHandler {
	return &PaymentHandler{payments: payments, authz: authz}
}

// Payouts handles GET /merchants/:merchantID/payouts.
func (h *PaymentHandler) Payouts(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.payments.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID+"/payouts", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Refund handles POST /merchants/:merchantID/payments/refund. Admin role
// only.
func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")

	body, err := requireBody(c, emptyBodyDescription("refund a payment"))
	if err != nil {
		return err
	}
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAdmin); err != nil {
		return err
	}

	resp, err := h.payments.Forward(c.UserContext(), fiber.MethodPost, "merchants/"+merchantID+"/payments/refund", nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}
