package service

import (
	"context"

	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

// Authorizer performs the user-merchant linkage check backing every gated
// route: one GET of the caller's user document, then a scan of its merchants
// list against the route's role predicate.
type Authorizer struct {
	users *upstream.Users
}

// NewAuthorizer creates an authorizer backed by the User service.
func NewAuthorizer(users *upstream.Users) *Authorizer {
	return &Authorizer{users: users}
}

// LinkedMerchant fetches the caller's user document and requires merchantID
// to appear in its merchants list with roles satisfying pred. The matched
// link is returned so callers can enrich outgoing bodies with the merchant
// name.
//
// A User service failure propagates unchanged; it is never turned into an
// authorization verdict. A user with no merchants is simply not authorized.
func (a *Authorizer) LinkedMerchant(ctx context.Context, userID, merchantID string, pred domain.RolePredicate) (domain.MerchantLink, error) {
	user, err := a.users.Fetch(ctx, userID)
	if err != nil {
		return domain.MerchantLink{}, err
	}

	link, ok := user.Linked(merchantID)
	if !ok || !pred(link.Roles) {
		return domain.MerchantLink{}, domain.NewUserNotAuthenticated("This Merchant is not linked to the login user")
	}
	return link, nil
}
