package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// EventsHandler fronts the Events-Processor service.
type EventsHandler struct {
	events *upstream.Client
	authz  *service.Authorizer
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(events *upstream.Client, authz *service.Authorizer) *EventsHandler {
	return &EventsHandler{events: events, authz: authz}
}

// List handles GET /merchants/:merchantID/events.
func (h *EventsHandler) List(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.events.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID+"/events", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Export handles POST /merchants/:merchantID/events/export. The export runs
// asynchronously downstream, so the gateway answers with a fixed
// confirmation.
func (h *EventsHandler) Export(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	if _, err := h.events.Forward(c.UserContext(), fiber.MethodPost, "merchants/"+merchantID+"/events/export", nil, c.Body()); err != nil {
		return err
	}
	return c.JSON(domain.Confirmation{Code: 200, Description: "The event export has been scheduled."})
}
