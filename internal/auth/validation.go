package auth

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// emailPattern accepts the basic local@domain.tld shape.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

// ValidateEmail checks the shape of an already trimmed email.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePasswordStrength requires at least 8 characters including an
// uppercase letter, a lowercase letter and a digit.
func ValidatePasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrWeakPassword
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

// sameEmail compares emails case-insensitively, ignoring surrounding space.
func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// defaultName returns the local part of email.
func defaultName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
