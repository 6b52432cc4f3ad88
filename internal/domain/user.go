package domain

import (
	"encoding/json"
	"strings"
)

// MerchantLink is one entry of a user's merchants list. Roles is a free-form
// string set by the User service ("admin", "write", "read", "view").
type MerchantLink struct {
	MerchantID   string `json:"merchantID"`
	MerchantName string `json:"merchantName"`
	Roles        string `json:"roles"`
}

// User is the user document owned by the User service. The gateway reads it
// once per request and never caches it.
type User struct {
	ID                string          `json:"_id"`
	Email             string          `json:"email,omitempty"`
	Merchants         []MerchantLink  `json:"merchants"`
	LanguageCode      string          `json:"languageCode,omitempty"`
	Consents          json.RawMessage `json:"consents,omitempty"`
	SendNotifications bool            `json:"sendNotifications,omitempty"`
}

// Linked reports whether merchantID appears in the user's merchants list and
// returns the matching entry. A nil or empty list is simply not linked.
func (u *User) Linked(merchantID string) (MerchantLink, bool) {
	for _, link := range u.Merchants {
		if link.MerchantID == merchantID {
			return link, true
		}
	}
	return MerchantLink{}, false
}

// RolePredicate decides whether a merchant link's roles string satisfies a
// route's authorization contract.
//
// The predicates are intentionally non-uniform: endpoints inherited
// different role conventions (exact "admin", case-insensitive admin, small
// role sets, any linkage) and each route keeps the one its contract had.
type RolePredicate func(roles string) bool

// RoleAny accepts any linked merchant regardless of role.
func RoleAny(string) bool { return true }

// RoleAdmin matches the exact role string "admin".
func RoleAdmin(roles string) bool { return roles == "admin" }

// RoleAdminFold matches "admin" case-insensitively.
func RoleAdminFold(roles string) bool { return strings.EqualFold(roles, "admin") }

// RoleWrite matches roles allowed to mutate merchant resources.
func RoleWrite(roles string) bool {
	switch roles {
	case "admin", "write":
		return true
	}
	return false
}

// RoleView matches any role allowed to read merchant resources.
func RoleView(roles string) bool {
	switch roles {
	case "admin", "write", "read", "view":
		return true
	}
	return false
}
