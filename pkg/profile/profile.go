// Package profile manages per-user profile records. Profiles are created at
// first authenticated request (identity itself is owned by the external
// provider) and carry the role that entitlement decisions read.
package profile

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's access tier. Billing events map plan ids to roles;
// RoleAdmin is assigned manually and is never billing-derived.
type Role string

const (
	RoleFree  Role = "free"
	RolePro   Role = "pro"
	RoleAdmin Role = "admin"
)

// IsPaid reports whether the role grants paid-tier access.
func (r Role) IsPaid() bool {
	return r == RolePro || r == RoleAdmin
}

// Profile is one registered user. One row per user; the id matches the
// identity provider's user id.
type Profile struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
