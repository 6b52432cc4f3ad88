package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/voltgrid/merchant-gateway/internal/telemetry"
)

// Idempotency replays cached responses for mutating requests that carry the
// same X-Correlation-ID within the TTL. The cache key is scoped to the
// authenticated caller and the route, so a correlation ID only ever replays
// that same user's own retry of the same request. Requests without a
// correlation ID get one minted so the caller can retry with it; only the
// retry is deduplicated.
func Idempotency(redisClient *redis.Client, ttl time.Duration) fiber.Handler {
	entropy := ulid.DefaultEntropy()

	return func(c *fiber.Ctx) error {
		// Only apply to mutating methods
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPatch, fiber.MethodPut, fiber.MethodDelete:
		default:
			return c.Next()
		}

		correlationID := c.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
			c.Set("X-Correlation-ID", correlationID)
			return c.Next()
		}

		claims := ClaimsFrom(c)
		key := fmt.Sprintf("idempotency:%s:%s:%s:%s", claims.ID, c.Method(), c.Path(), correlationID)
		ctx := context.Background()

		// Check if we have a cached response
		cached, err := redisClient.Get(ctx, key).Bytes()
		if err == nil && len(cached) > 0 {
			telemetry.AddSpanEvent(c, "idempotent replay")
			c.Set("X-Idempotent-Replay", "true")
			c.Set("Content-Type", "application/json")
			return c.Send(cached)
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Cache successful responses (2xx status codes)
		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 300 {
			body := c.Response().Body()
			if len(body) > 0 {
				// Fire and forget; fasthttp reuses the response buffer, so copy.
				stored := make([]byte, len(body))
				copy(stored, body)
				go func() {
					bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					redisClient.Set(bgCtx, key, stored, ttl)
				}()
			}
		}

		return nil
	}
}
