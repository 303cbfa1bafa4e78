package domain

import "errors"

// Authentication.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("access forbidden")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrMissingSigningKey  = errors.New("signing key is not configured")
)

// Storage.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrCommitFailed    = errors.New("commit failed")
	ErrUnitClosed      = errors.New("unit of work is closed")
	ErrUnknownRelation = errors.New("unknown relation")
	ErrUnknownField    = errors.New("unknown field")
)

// Admission.
var ErrRateLimited = errors.New("too many requests")
