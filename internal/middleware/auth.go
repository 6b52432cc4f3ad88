package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/voltgrid/merchant-gateway/internal/domain"
)

// ClaimsKey is the Locals key the verified claims are stored under.
const ClaimsKey = "claims"

// DecodeClaims parses an Authorization header value into token claims.
// It never fails hard: absent, malformed, expired or badly signed tokens
// yield zero claims and false, so call sites may decode before deciding
// whether the route requires authentication at all.
func DecodeClaims(authHeader, secret string, opts ...jwt.ParserOption) (domain.Claims, bool) {
	if authHeader == "" {
		return domain.Claims{}, false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims := &domain.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil || !token.Valid || claims.ID == "" {
		return domain.Claims{}, false
	}
	return *claims, true
}

// RequireAuth rejects requests without a valid bearer token and stores the
// decoded claims in the request context. An empty issuer disables the
// issuer check.
func RequireAuth(secret, issuer string) fiber.Handler {
	var opts []jwt.ParserOption
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	return func(c *fiber.Ctx) error {
		claims, ok := DecodeClaims(c.Get("Authorization"), secret, opts...)
		if !ok {
			return domain.NewUserNotAuthenticated("User is not authenticated")
		}
		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by RequireAuth, or zero claims on a
// public route.
func ClaimsFrom(c *fiber.Ctx) domain.Claims {
	if claims, ok := c.Locals(ClaimsKey).(domain.Claims); ok {
		return claims
	}
	return domain.Claims{}
}
