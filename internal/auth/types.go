package auth

import "time"

// Role is an authorisation tier. Only RoleUser and RoleAdmin exist; build
// Roles from strings with NormalizeRole.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// User is a registered principal. Salt and Hash are hex strings and are
// never serialised to API clients.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Salt      string    `json:"-"`
	Hash      string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAdmin reports whether u holds the Admin role.
func (u *User) IsAdmin() bool {
	return u != nil && NormalizeRole(string(u.Role)) == RoleAdmin
}

// Session marks the user currently logged in. UserID is a weak reference:
// the user may have disappeared from the directory.
type Session struct {
	UserID   string    `json:"userId"`
	Token    string    `json:"-"`
	LoggedAt time.Time `json:"loggedAt"`
}

// RegisterInput holds the fields for creating a user. Name defaults to the
// local part of Email and Role to RoleUser.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Reason says why a State was published.
type Reason string

const (
	ReasonRegister Reason = "register"
	ReasonLogin    Reason = "login"
	ReasonLogout   Reason = "logout"
	ReasonSeed     Reason = "seed"
	// ReasonSync means another context changed the shared records.
	ReasonSync Reason = "sync"
)

// State is the read model published to subscribers.
type State struct {
	User          *User  `json:"user"`
	Authenticated bool   `json:"authenticated"`
	Reason        Reason `json:"reason"`
}
