package types

import "github.com/google/uuid"

// Identity is what a verified bearer credential resolves to.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Profile holds the entitlement signals read from the profiles table.
// Every signal is nullable in storage.
type Profile struct {
	UserID             uuid.UUID `json:"userId"`
	Role               *string   `json:"role,omitempty"`
	IsAdmin            *bool     `json:"isAdmin,omitempty"`
	SubscriptionStatus *string   `json:"subscriptionStatus,omitempty"`
}
