package auth

import (
	"errors"
	"regexp"
	"time"
)

// emailPattern is a pragmatic email format check: one @, no spaces, a dot in
// the domain. Full RFC 5322 validation is not attempted.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxEmailLength is the maximum allowed email length.
const maxEmailLength = 254

// IsValidEmail checks if an email address meets format requirements.
func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleUser is a regular account: owns the tracks it composes and can
	// mutate only those.
	RoleUser Role = "user"

	// RoleDeveloper is the privileged role: may delete any track and manage
	// user accounts. Note the override is delete-only — renames stay
	// owner-only.
	RoleDeveloper Role = "developer"
)

// ValidRoles is the set of roles an account may hold.
var ValidRoles = []Role{RoleUser, RoleDeveloper}

// IsValidRole returns true if the role is a valid account role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User represents a registered account. Email is globally unique and doubles
// as the token subject; the numeric-free UUID ID is what resource ownership
// references.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("user with this email already exists")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
)
