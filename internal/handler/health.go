package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// HealthHandler reports gateway liveness and backend reachability.
type HealthHandler struct {
	registry *upstream.Registry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(registry *upstream.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// Live handles GET /health.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "merchant-gateway",
	})
}

// Upstreams handles GET /health/upstreams: a concurrent probe of every
// configured backend.
func (h *HealthHandler) Upstreams(c *fiber.Ctx) error {
	results := h.registry.Probe(c.UserContext())

	status := make(map[string]string, len(results))
	healthy := true
	for name, err := range results {
		if err != nil {
			status[name] = "unreachable"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	code := fiber.StatusOK
	if !healthy {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"healthy":   healthy,
		"upstreams": len(results),
	})
}
