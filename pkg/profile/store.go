package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("profile not found")
	ErrPersistence      = errors.New("profile persistence error")
	ErrAdminRoleManaged = errors.New("admin role cannot be changed by billing events")
)

// Store persists profiles.
type Store interface {
	// Get retrieves a profile by user id. Returns ErrNotFound if missing.
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)

	// Ensure creates the profile with RoleFree on first sight of a user and
	// returns the stored record. Existing profiles are returned unchanged.
	Ensure(ctx context.Context, userID uuid.UUID, email, fullName string) (*Profile, error)

	// SetRole updates the role. Rows holding RoleAdmin are left untouched:
	// admin is never billing-derived.
	SetRole(ctx context.Context, userID uuid.UUID, role Role) error

	// Delete removes the profile. The identity provider removes the auth
	// record through its own account-deletion flow.
	Delete(ctx context.Context, userID uuid.UUID) error
}
