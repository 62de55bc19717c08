package user

import "errors"

var (
	// -- Registration --
	ErrEmailExists  = errors.New("email already registered")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// -- Authentication --
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingSecret      = errors.New("JWT secret is not set")
	ErrInvalidToken       = errors.New("invalid token")

	// -- Lookup --
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileNotFound = errors.New("profile not found")
)
