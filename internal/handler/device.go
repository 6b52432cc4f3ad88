package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// DeviceHandler fronts the Device service. The merchant ID travels in the
// path for merchant-scoped routes and in the query or body for
// device-scoped ones.
type DeviceHandler struct {
	devices *upstream.Client
	authz   *service.Authorizer
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(devices *upstream.Client, authz *service.Authorizer) *DeviceHandler {
	return &DeviceHandler{devices: devices, authz: authz}
}

// List handles GET /merchants/:merchantID/devices.
func (h *DeviceHandler) List(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleView); err != nil {
		return err
	}

	resp, err := h.devices.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID+"/devices", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Create handles POST /merchants/:merchantID/devices. The outgoing body is
// enriched with the linked merchant's name.
func (h *DeviceHandler) Create(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")

	body, err := requireBody(c, emptyBodyDescription("register a device"))
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

	resp, err := h.devices.ForwardJSON(c.UserContext(), fiber.MethodPost, "merchants/"+merchantID+"/devices", nil, payload)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Measurements handles GET /devices/:deviceID/measurements. The merchant ID
// comes from the query string. Missing measurement data surfaces as the
// Device service's own 404 envelope.
func (h *DeviceHandler) Measurements(c *fiber.Ctx) error {
	merchantID := c.Query("merchantID")
	if merchantID == "" {
		return domain.NewFieldValidation("Field 'merchantID' is missing or malformed")
	}
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.devices.Forward(c.UserContext(), fiber.MethodGet, "devices/"+c.Params("deviceID")+"/measurements", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Update handles PATCH /devices/:deviceID. The merchant ID comes from the
// request body.
func (h *DeviceHandler) Update(c *fiber.Ctx) error {
	body, err := requireBody(c, emptyBodyDescription("update a device"))
	if err != nil {
		return err
	}

	merchantID := merchantIDFromBody(body)
	if merchantID == "" {
		return domain.NewFieldValidation("Field 'merchantID' is missing or malformed")
	}
	if _, err := authorize(c, h.authz, merchantID, domain.RoleWrite); err != nil {
		return err
	}

	resp, err := h.devices.Forward(c.UserContext(), fiber.MethodPatch, "devices/"+c.Params("deviceID"), nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Delete handles DELETE /devices/:deviceID. The merchant ID comes from the
// query string; admin role only.
func (h *DeviceHandler) Delete(c *fiber.Ctx) error {
	merchantID := c.Query("merchantID")
	if merchantID == "" {
		return domain.NewFieldValidation("Field 'merchantID' is missing or malformed")
	}
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAdmin); err != nil {
		return err
	}

	if _, err := h.devices.Forward(c.UserContext(), fiber.MethodDelete, "devices/"+c.Params("deviceID"), queryValues(c), nil); err != nil {
		return err
	}
	return c.JSON(domain.Confirmation{Code: 200, Description: "The device has been deleted."})
}
