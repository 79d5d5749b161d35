package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for auth operations. Check with errors.Is.
var (
	// ErrValidation is wrapped by every input validation failure.
	ErrValidation = errors.New("validation failed")

	ErrInvalidEmail = fmt.Errorf("%w: invalid email address", ErrValidation)

	ErrWeakPassword = fmt.Errorf("%w: password must be at least 8 characters and contain an uppercase letter, a lowercase letter and a digit", ErrValidation)

	ErrConflict = errors.New("email already registered")

	// ErrInvalidCredentials deliberately does not say whether the email or
	// the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrConfiguration = errors.New("configuration error")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrUserNotFound = errors.New("user not found")
)
