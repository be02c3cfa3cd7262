package store

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown user and a wrong
	// password; callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrWeakPassword = errors.New("password does not meet the policy")
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
)
