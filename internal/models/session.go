package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the JWT claims carried by a session token. Only the
// user identity goes in; role checks re-read the user from the database.
type SessionClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
