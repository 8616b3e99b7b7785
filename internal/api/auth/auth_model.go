package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin   = "admin"
	RolePremium = "premium"

	SubscriptionActive = "active"
)

// Claims are the access-token claims issued by the identity service. The
// subject is the user id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
