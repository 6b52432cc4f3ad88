package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// OCPPHandler fronts the OCPP16 service, which talks to the charge points
// themselves.
type OCPPHandler struct {
	ocpp  *upstream.Client
	authz *service.Authorizer
}

// NewOCPPHandler creates a new OCPP handler
func NewOCPPHandler(ocpp *upstream.Client, authz *service.Authorizer) *OCPPHandler {
	return &OCPPHandler{ocpp: ocpp, authz: authz}
}

// Status handles GET /devices/:deviceID/ocpp/status. The merchant ID comes
// from the query string.
func (h *OCPPHandler) Status(c *fiber.Ctx) error {
	merchantID := c.Query("merchantID")
	if merchantID == "" {
		return domain.NewFieldValidation("Field 'merchantID' is missing or malformed")
	}
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.ocpp.Forward(c.UserContext(), fiber.MethodGet, "chargepoints/"+c.Params("deviceID")+"/status", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Reset handles POST /devices/:deviceID/ocpp/reset. The merchant ID comes
// from the request body; admin role only.
func (h *OCPPHandler) Reset(c *fiber.Ctx) error {
	body, err := requireBody(c, emptyBodyDescription("reset a charge point"))
	if err != nil {
		return err
	}

	merchantID := merchantIDFromBody(body)
	if merchantID == "" {
		return domain.NewFieldValidation("Field 'merchantID' is missing or malformed")
	}
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAdmin); err != nil {
		return err
	}

	resp, err := h.ocpp.Forward(c.UserContext(), fiber.MethodPost, "chargepoints/"+c.Params("deviceID")+"/reset", nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}
