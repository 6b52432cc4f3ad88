package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/voltgrid/merchant-gateway/internal/domain"
)

// Users reads user documents from the User service.
type Users struct {
	client *Client
}

// NewUsers wraps the User service forwarder.
func NewUsers(client *Client) *Users {
	return &Users{client: client}
}

// Fetch retrieves one user document by ID. One round trip, no retry; any
// failure propagates to the caller unchanged.
func (u *Users) Fetch(ctx context.Context, id string) (*domain.User, error) {
	body, err := u.client.Forward(ctx, http.MethodGet, "users/"+id, nil, nil)
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("user-service: failed to parse user document: %w", err)
	}
	return &user, nil
}
