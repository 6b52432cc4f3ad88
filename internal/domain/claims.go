package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the decoded bearer token. Only the user identifier is
// contract-relevant; tokens may carry additional opaque fields.
type Claims struct {
	ID string `json:"_id"`
	jwt.RegisteredClaims
}
