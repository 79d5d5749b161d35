package auth

import "strings"

// NormalizeRole maps any string onto the closed role set: "admin" in any
// case and with surrounding space is RoleAdmin, everything else RoleUser.
// It is idempotent.
func NormalizeRole(raw string) Role {
	if strings.ToLower(strings.TrimSpace(raw)) == "admin" {
		return RoleAdmin
	}
	return RoleUser
}

// roleIn reports whether role matches one of the given role strings after
// normalising both sides.
func roleIn(role Role, roles []string) bool {
	have := NormalizeRole(string(role))
	for _, r := range roles {
		if NormalizeRole(r) == have {
			return true
		}
	}
	return false
}
