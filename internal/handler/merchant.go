package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// MerchantHandler fronts the Merchant service.
type MerchantHandler struct {
	merchants *upstream.Client
	authz     *service.Authorizer
}

// NewMerchantHandler creates a new merchant handler
func NewMerchantHandler(merchants *upstream.Client, authz *service.Authorizer) *MerchantHandler {
	return &MerchantHandler{merchants: merchants, authz: authz}
}

// Countries handles GET /countries (public passthrough).
func (h *MerchantHandler) Countries(c *fiber.Ctx) error {
	resp, err := h.merchants.Forward(c.UserContext(), fiber.MethodGet, "countries", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// List handles GET /merchants.
func (h *MerchantHandler) List(c *fiber.Ctx) error {
	resp, err := h.merchants.Forward(c.UserContext(), fiber.MethodGet, "merchants", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Get handles GET /merchants/:merchantID.
func (h *MerchantHandler) Get(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.merchants.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID, nil, nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Update handles PATCH /merchants/:merchantID.
func (h *MerchantHandler) Update(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")

	body, err := requireBody(c, emptyBodyDescription("update a merchant"))
	if err != nil {
		return err
	}
	if _, err := authorize(c, h.authz, merchantID, domain.RoleWrite); err != nil {
		return err
	}

	resp, err := h.merchants.Forward(c.UserContext(), fiber.MethodPatch, "merchants/"+merchantID, nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// DeleteAccountLists handles DELETE /merchants/:merchantID/account-lists.
func (h *MerchantHandler) DeleteAccountLists(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	if _, err := h.merchants.Forward(c.UserContext(), fiber.MethodDelete, "merchants/"+merchantID+"/account-lists", nil, nil); err != nil {
		return err
	}
	return c.JSON(domain.Confirmation{Code: 200, Description: "The account lists have been deleted."})
}

// CreateAPIKey handles POST /merchants/:merchantID/create-api-key. Admin
// role only, compared exactly.
func (h *MerchantHandler) CreateAPIKey(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAdmin); err != nil {
		return err
	}

	resp, err := h.merchants.Forward(c.UserContext(), fiber.MethodPost, "merchants/"+merchantID+"/api-keys", nil, c.Body())
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// PayoutFrequency handles GET /merchants/:merchantID/payout-frequency. An
// unset frequency surfaces as the Merchant service's own 404 envelope.
func (h *MerchantHandler) PayoutFrequency(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.merchants.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID+"/payout-frequency", nil, nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}
