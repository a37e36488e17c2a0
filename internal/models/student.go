package models

import (
	"time"
)

// Student is the profile record, one-to-one with a User of role "student".
// Email tracks the owning User's email; the row is removed when the User is
// deleted (ON DELETE CASCADE).
type Student struct {
	ID         string
	UserID     string
	Name       string
	Email      string
	Course     string
	EnrolledAt time.Time
	Verified   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
