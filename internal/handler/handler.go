// Package handler contains one file per backend domain service. Every
// handler follows the same pipeline: validate → authorize by merchant
// linkage → forward exactly one downstream call → pass the response through.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/middleware"
	"github.com/voltgrid/merchant-gateway/internal/service"
)

var validate = validator.New()

// queryValues copies the inbound query string into url.Values so the
// forwarder can re-serialize it deterministically.
func queryValues(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return values
}

// requireBody returns the raw JSON body, or the EmptyRequestBodyError
// envelope when it is absent, null or an empty object.
func requireBody(c *fiber.Ctx, description string) ([]byte, error) {
	body := c.Body()
	switch strings.TrimSpace(string(body)) {
	case "", "null", "{}":
		return nil, domain.NewEmptyRequestBody(description)
	}
	return body, nil
}

// emptyBodyDescription phrases the EmptyRequestBodyError for an action,
// e.g. "update a merchant".
func emptyBodyDescription(action string) string {
	return fmt.Sprintf("You have requested to %s but the request body seems to be empty. Please provide a valid JSON body.", action)
}

// sendJSON returns a downstream body verbatim as the gateway response.
func sendJSON(c *fiber.Ctx, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// checkFields validates a request struct and converts the first failure
// into the FieldValidationError envelope.
func checkFields(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := strings.ToLower(verrs[0].Field())
		return domain.NewFieldValidation(fmt.Sprintf("Field '%s' is missing or malformed", field))
	}
	return domain.NewFieldValidation("Request body contains malformed fields")
}

// authorize resolves the authenticated caller's linkage to merchantID with
// the route's role predicate.
func authorize(c *fiber.Ctx, authz *service.Authorizer, merchantID string, pred domain.RolePredicate) (domain.MerchantLink, error) {
	claims := middleware.ClaimsFrom(c)
	return authz.LinkedMerchant(c.UserContext(), claims.ID, merchantID, pred)
}

// enrichMerchantName stamps the linked merchant's name into an outgoing
// request body.
func enrichMerchantName(body []byte, link domain.MerchantLink) (map[string]any, error) {
	payload := map[string]any{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.NewFieldValidation("Request body is not valid JSON")
	}
	payload["merchantName"] = link.MerchantName
	return payload, nil
}

// merchantIDFromBody extracts the target merchant ID for routes whose
// contract carries it in the request body.
func merchantIDFromBody(body []byte) string {
	var probe struct {
		MerchantID string `json:"merchantID"`
	}
	_ = json.Unmarshal(body, &probe)
	return probe.MerchantID
}
