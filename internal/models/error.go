package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Registration and credential errors. Invalid credentials is deliberately
	// a single error for both unknown email and wrong password.
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrMissingProfileFields  = errors.New("name and course are required for student registration")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrIncorrectPassword     = errors.New("current password is incorrect")
	ErrWeakPassword          = errors.New("password does not meet minimum requirements")

	// Token lifecycle errors. Not-found and expired are indistinguishable to
	// the caller.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrAlreadyVerified       = errors.New("account is already verified")
)
