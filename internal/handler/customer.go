package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// CustomerHandler fronts the Customer service.
type CustomerHandler struct {
	customers *upstream.Client
	authz     *service.Authorizer
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customers *upstream.Client, authz *service.Authorizer) *CustomerHandler {
	return &CustomerHandler{customers: customers, authz: authz}
}

// List handles GET /merchants/:merchantID/customers. This route compares
// the admin role case-insensitively.
func (h *CustomerHandler) List(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAdminFold); err != nil {
		return err
	}

	resp, err := h.customers.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID+"/customers", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

type createCustomerRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Create handles POST /merchants/:merchantID/customers.
func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")

	body, err := requireBody(c, emptyBodyDescription("create a customer"))
	if err != nil {
		return err
	}

	var req createCustomerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return domain.NewFieldValidation("Request body is not valid JSON")
	}
	if err := checkFields(req); err != nil {
		return err
	}

	if _, err := authorize(c, h.authz, merchantID, domain.RoleWrite); err != nil {
		return err
	}

	resp, err := h.customers.Forward(c.UserContext(), fiber.MethodPost, "merchants/"+merchantID+"/customers", nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}
