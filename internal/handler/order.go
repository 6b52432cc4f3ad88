package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// OrderHandler fronts the Order service.
type OrderHandler struct {
	orders *upstream.Client
	authz  *service.Authorizer
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *upstream.Client, authz *service.Authorizer) *OrderHandler {
	return &OrderHandler{orders: orders, authz: authz}
}

// List handles GET /merchants/:merchantID/orders. The inbound query string
// (paging, date filters) is forwarded as-is.
func (h *OrderHandler) List(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.orders.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID+"/orders", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Get handles GET /orders/:orderID. The merchant ID comes from the query
// string.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	merchantID := c.Query("merchantID")
	if merchantID == "" {
		return domain.NewFieldValidation("Field 'merchantID' is missing or malformed")
	}
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.orders.Forward(c.UserContext(), fiber.MethodGet, "orders/"+c.Params("orderID"), queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}
