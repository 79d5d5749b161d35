package auth

// Permission is a named capability exposed to clients so they can decide
// which views to offer.
type Permission string

const (
	PermClinicRead    Permission = "clinic:read"
	PermEnquiryCreate Permission = "enquiry:create"
	PermRatingCreate  Permission = "rating:create"
	PermProtectedView Permission = "protected:view"
	PermClinicManage  Permission = "clinic:manage"
	PermUserManage    Permission = "user:manage"
	PermAdminView     Permission = "admin:view"
)

// rolePermissions is the single source of truth for what each role may do.
var rolePermissions = map[Role][]Permission{
	RoleUser: {
		PermClinicRead,
		PermEnquiryCreate,
		PermRatingCreate,
		PermProtectedView,
	},
	RoleAdmin: {
		PermClinicRead,
		PermEnquiryCreate,
		PermRatingCreate,
		PermProtectedView,
		PermClinicManage,
		PermUserManage,
		PermAdminView,
	},
}

// HasPermission reports whether role grants perm. role is normalised first.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[NormalizeRole(string(role))] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns a copy of the permissions granted to role.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[NormalizeRole(string(role))]
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
