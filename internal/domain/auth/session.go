// Package auth defines callers of store operations and how their identity is
// established from bearer tokens.
package auth

import (
	"github.com/go-faster/errors"
)

// Role gates access to back-office operations.
type Role string

const (
	// RoleUser is an ordinary storefront customer.
	RoleUser Role = "USER"
	// RoleAdmin may manage orders of every customer.
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

var (
	// ErrUnauthenticated is returned when no valid credentials were presented.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the caller lacks the administrator role.
	ErrForbidden = errors.New("unauthorized: administrator role required")
)

// User is a storefront account.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Session identifies the caller of an operation. It is passed explicitly to
// every service call instead of being looked up from ambient state.
type Session struct {
	UserID string
	Role   Role
}

// IsZero reports whether the session carries no identity.
func (s Session) IsZero() bool {
	return s.UserID == ""
}

// IsAdmin reports whether the session belongs to an administrator.
func (s Session) IsAdmin() bool {
	return !s.IsZero() && s.Role == RoleAdmin
}

// RequireAdmin returns ErrForbidden unless s is an administrator session.
func (s Session) RequireAdmin() error {
	if !s.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
