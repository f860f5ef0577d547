package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is a coarse capability label carried by an Identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ValidRoles lists every role an account may hold.
var ValidRoles = []Role{RoleUser, RoleAdmin}

// ParseRole normalises raw input into a known role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, raw)
	}
	return role, nil
}

// Valid reports whether r is one of ValidRoles.
func (r Role) Valid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Identity is the authenticated principal of a single request.
// It is only ever produced from a validated token or a fresh user lookup.
type Identity struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// Credential is the stored one-way hash of a user's password.
type Credential struct {
	UserID       int64
	PasswordHash string
}

// Token is a signed, self-contained assertion of an Identity.
type Token struct {
	Text      string
	Identity  Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// OwnershipFact ties a resource to the user that owns it.
type OwnershipFact struct {
	ResourceID int64
	OwnerID    int64
}
