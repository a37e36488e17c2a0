package models

import (
	"time"
)

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// User is the identity record. Email is stored lower-cased and is unique
// across all users. PasswordHash is a bcrypt hash; plaintext is never
// persisted.
type User struct {
	ID                string
	Email             string
	PasswordHash      string
	Role              string // "admin" or "student"
	EmailVerified     bool
	PasswordChangedAt *time.Time // Used to invalidate session tokens issued before a password change
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsStudent reports whether this user owns a student profile.
func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}
