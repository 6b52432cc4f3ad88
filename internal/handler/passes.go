package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// PassesHandler fronts the Passes service.
type PassesHandler struct {
	passes *upstream.Client
	authz  *service.Authorizer
}

// NewPassesHandler creates a new passes handler
func NewPassesHandler(passes *upstream.Client, authz *service.Authorizer) *PassesHandler {
	return &PassesHandler{passes: passes, authz: authz}
}

// List handles GET /merchants/:merchantID/passes.
func (h *PassesHandler) List(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.passes.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID+"/passes", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Create handles POST /merchants/:merchantID/passes. The outgoing body is
// enriched with the linked merchant's name.
func (h *PassesHandler) Create(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")

	body, err := requireBody(c, emptyBodyDescription("create a pass"))
	if err != nil {
		return err
	}
	link, err := authorize(c, h.authz, merchantID, domain.RoleWrite)
	if err != nil {
		return err
	}

	payload, err := enrichMerchantName(body, link)
	if err != nil {
		return err
	}

	resp, err := h.passes.ForwardJSON(c.UserContext(), fiber.MethodPost, "merchants/"+merchantID+"/passes", nil, payload)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}
