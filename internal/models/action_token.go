package models

import (
	"time"
)

// Token purposes. The (user_id, purpose) pair is unique in storage, so a
// user holds at most one live token per purpose.
const (
	PurposeEmailVerification = "email_verification"
	PurposePasswordReset     = "password_reset"
)

// ActionToken is a short-lived single-use token authorizing one action:
// confirming email ownership or resetting a password. Only the SHA-256 hash
// of the emailed value is stored. Tokens are consumed (deleted) on use.
type ActionToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Purpose   string    `json:"purpose"`
	TokenHash string    `json:"-"` // Never expose the hash
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired checks if the token has expired.
func (t *ActionToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
