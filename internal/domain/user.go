// Package domain contains the core business entities for QuillPost.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the blogging platform.
package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of roles a user can hold.
// Keeping this a dedicated type (rather than a free string) means role
// comparisons happen against the two constants below and nowhere else.
type Role string

const (
	// RoleUser is the default role for signed-up accounts.
	RoleUser Role = "user"

	// RoleAdmin grants access to moderation and user management. The
	// system expects at most one active admin; see the replace-admin flow.
	RoleAdmin Role = "admin"
)

// ParseRole validates a role string. An empty string maps to RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	case "":
		return RoleUser, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// IsAdmin reports whether the role carries administrative privileges.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User represents a registered account.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// Username is the unique username for login and display.
	// Constraints: 3-64 characters.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the user's password.
	// Never exposed in API responses.
	PasswordHash string `json:"-"`

	// Role is the user's role, fixed at creation. There is no promotion
	// endpoint; the only way to obtain an admin is sign-up or replace-admin.
	Role Role `json:"role"`

	// Blocked indicates the account has been locked out by an admin.
	// Blocked users fail authorization on every protected request, even
	// with an unexpired token, because the pipeline re-reads this flag.
	Blocked bool `json:"blocked"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with default values.
func NewUser(username, passwordHash string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		Blocked:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanAuthorize returns true if the user may pass the access control pipeline.
func (u *User) CanAuthorize() bool {
	return !u.Blocked
}

// Principal is the authenticated identity attached to a request after the
// access control pipeline runs. It is always built from a freshly read user
// record, never from token claims alone.
type Principal struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role.IsAdmin()
}
