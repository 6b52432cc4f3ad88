package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/service"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// ProductHandler fronts the Product service.
type ProductHandler struct {
	products *upstream.Client
	authz    *service.Authorizer
}

// NewProductHandler creates a new product handler
func NewProductHandler(products *upstream.Client, authz *service.Authorizer) *ProductHandler {
	return &ProductHandler{products: products, authz: authz}
}

// List handles GET /merchants/:merchantID/products.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")
	if _, err := authorize(c, h.authz, merchantID, domain.RoleAny); err != nil {
		return err
	}

	resp, err := h.products.Forward(c.UserContext(), fiber.MethodGet, "merchants/"+merchantID+"/products", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Create handles POST /merchants/:merchantID/products. The outgoing body is
// enriched with the linked merchant's name.
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	merchantID := c.Params("merchantID")

	body, err := requireBody(c, emptyBodyDescription("create a product"))
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

	resp, err := h.products.ForwardJSON(c.UserContext(), fiber.MethodPost, "merchants/"+merchantID+"/products", nil, payload)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Update handles PATCH /products/:productID. The merchant ID comes from the
// request body.
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	body, err := requireBody(c, emptyBodyDescription("update a product"))
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

	resp, err := h.products.Forward(c.UserContext(), fiber.MethodPatch, "products/"+c.Params("productID"), nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Delete handles DELETE /products/:productID. The merchant ID comes from
// the query string.
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	merchantID := c.Query("merchantID")
	if merchantID == "" {
		return domain.NewFieldValidation("Field 'merchantID' is missing or malformed")
	}
	if _, err := authorize(c, h.authz, merchantID, domain.RoleWrite); err != nil {
		return err
	}

	if _, err := h.products.Forward(c.UserContext(), fiber.MethodDelete, "products/"+c.Params("productID"), queryValues(c), nil); err != nil {
		return err
	}
	return c.JSON(domain.Confirmation{Code: 200, Description: "The product has been deleted."})
}
