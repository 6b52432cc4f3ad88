package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// VoucherHandler fronts the Voucher service.
type VoucherHandler struct {
	vouchers *upstream.Client
	authz    *service.Authorizer
}

// NewVoucherHandler creates a new voucher handler
func NewVoucherHandler(vouchers *upstream.Client, authz *service.Authorizer) *VoucherHandler {
	return &VoucherHandler{vouchers: vouchers, authz: authz}
}

// List handles GET /merchants/:merchantID/vouchers.
func (h *VoucherHandler) List(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.vouchers.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID+"/vouchers", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

type createVoucherRequest struct {
	TemplateID string `json:"templateID" validate:"required,uuid4"`
}

// Create handles POST /merchants/:merchantID/vouchers.
func (h *VoucherHandler) Create(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")

	body, err := requireBody(c, emptyBodyDescription("create a voucher"))
	if err != nil {
		return err
	}

	var req createVoucherRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return domain.NewFieldValidation("Request body is not valid JSON")
	}
	if err := checkFields(req); err != nil {
		return err
	}

	if _, err := authorize(c, h.authz, merchantID, domain.RoleWrite); err != nil {
		return err
	}

	resp, err := h.vouchers.Forward(c.UserContext(), fiber.MethodPost, "merchants/"+merchantID+"/vouchers", nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

type redeemVoucherRequest struct {
	Status string `json:"status" validate:"required,oneof=redeemed cancelled"`
}

// Redeem handles PATCH /vouchers/:code/redeem. Any authenticated user may
// redeem; the Voucher service owns the voucher-to-merchant check.
func (h *VoucherHandler) Redeem(c *fiber.Ctx) error {
	body, err := requireBody(c, emptyBodyDescription("redeem a voucher"))
	if err != nil {
		return err
	}

	var req redeemVoucherRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return domain.NewFieldValidation("Request body is not valid JSON")
	}
	if err := checkFields(req); err != nil {
		return err
	}

	resp, err := h.vouchers.Forward(c.UserContext(), fiber.MethodPatch, "vouchers/"+c.Params("code")+"/redeem", nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}
