package domain

import "time"

// Role is the authorization level carried inside issued tokens.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// DefaultRole is assigned to self-registered accounts.
const DefaultRole = RoleStudent

// Valid reports whether the role is one the service knows how to grant.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAdmin:
		return true
	}
	return false
}

// Credential is the stored login record for an identity. SecretHash is a
// one-way digest and must never hold a plaintext password.
type Credential struct {
	ID         string
	Identity   string
	SecretHash string
	Role       Role
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Principal returns the authenticated view of the credential.
func (c *Credential) Principal() *Principal {
	return &Principal{ID: c.ID, Identity: c.Identity, Role: c.Role}
}
