package domain

import (
	"strings"
	"time"
)

// Role enumerates the account roles known to the service.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID                int64
	Email             string
	FirstName         string
	LastName          string
	PasswordHash      string
	Role              Role
	IsActive          bool
	EmailVerifiedAt   *time.Time
	RememberTokenHash *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsEmailVerified reports whether the account's email address has been confirmed.
func (u User) IsEmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// Sanitized returns a copy with credential material stripped, safe to hand
// back to transport layers.
func (u User) Sanitized() User {
	copied := u
	copied.PasswordHash = ""
	copied.RememberTokenHash = nil
	return copied
}

// NormalizeEmail applies the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
