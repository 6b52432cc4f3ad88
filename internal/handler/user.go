package handler

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/middleware"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

const loginEmptyBody = "You have requested to authenticate a user but the request body seems to be empty. Please provide an email address and a password."

// UserHandler fronts the User service.
type UserHandler struct {
	users *upstream.Client
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *upstream.Client) *UserHandler {
	return &UserHandler{users: users}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /login (public).
func (h *UserHandler) Login(c *fiber.Ctx) error {
	body := c.Body()

	var req loginRequest
	if len(strings.TrimSpace(string(body))) == 0 || json.Unmarshal(body, &req) != nil ||
		req.Email == "" || req.Password == "" {
		return domain.NewEmptyRequestBody(loginEmptyBody)
	}
	if err := checkFields(req); err != nil {
		return err
	}

	resp, err := h.users.Forward(c.UserContext(), fiber.MethodPost, "users/login", nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword handles POST /forgot-password (public).
func (h *UserHandler) ForgotPassword(c *fiber.Ctx) error {
	body, err := requireBody(c, "You have requested to reset a password but the request body seems to be empty. Please provide an email address.")
	if err != nil {
		return err
	}

	var req forgotPasswordRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return domain.NewFieldValidation("Request body is not valid JSON")
	}
	if err := checkFields(req); err != nil {
		return err
	}

	resp, err := h.users.Forward(c.UserContext(), fiber.MethodPost, "users/forgot-password", nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Me handles GET /users/me.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	claims := middleware.ClaimsFrom(c)

	resp, err := h.users.Forward(c.UserContext(), fiber.MethodGet, "users/"+claims.ID, nil, nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// UpdateMe handles PATCH /users/me.
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	claims := middleware.ClaimsFrom(c)

	body, err := requireBody(c, emptyBodyDescription("update a user"))
	if err != nil {
		return err
	}

	resp, err := h.users.Forward(c.UserContext(), fiber.MethodPatch, "users/"+claims.ID, nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// Consents handles GET /users/me/consents. A missing consent surfaces as
// the User service's own 404 envelope.
func (h *UserHandler) Consents(c *fiber.Ctx) error {
	claims := middleware.ClaimsFrom(c)

	resp, err := h.users.Forward(c.UserContext(), fiber.MethodGet, "users/"+claims.ID+"/consents", queryValues(c), nil)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// CreateConsent handles POST /users/me/consents.
func (h *UserHandler) CreateConsent(c *fiber.Ctx) error {
	claims := middleware.ClaimsFrom(c)

	body, err := requireBody(c, emptyBodyDescription("record a consent"))
	if err != nil {
		return err
	}

	resp, err := h.users.Forward(c.UserContext(), fiber.MethodPost, "users/"+claims.ID+"/consents", nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}

// UpdateNotifications handles PATCH /users/me/notifications.
func (h *UserHandler) UpdateNotifications(c *fiber.Ctx) error {
	claims := middleware.ClaimsFrom(c)

	body, err := requireBody(c, emptyBodyDescription("update notification settings"))
	if err != nil {
		return err
	}

	resp, err := h.users.Forward(c.UserContext(), fiber.MethodPatch, "users/"+claims.ID+"/notifications", nil, body)
	if err != nil {
		return err
	}
	return sendJSON(c, resp)
}
