package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the PostgreSQL-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, full_name, role, created_at, updated_at
		 FROM profiles WHERE id = $1`,
		userID,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	return &p, nil
}

func (s *PGStore) Ensure(ctx context.Context, userID uuid.UUID, email, fullName string) (*Profile, error) {
	var p Profile
	// Insert-or-return keyed on the identity provider's user id. Email is
	// refreshed on conflict since the provider owns it.
	err := s.pool.QueryRow(ctx,
		`INSERT INTO profiles (id, email, full_name, role)
		 VALUES ($1, $2, $3, 'free')
		 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, updated_at = now()
		 RETURNING id, email, full_name, role, created_at, updated_at`,
		userID, email, fullName,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	return &p, nil
}

func (s *PGStore) SetRole(ctx context.Context, userID uuid.UUID, role Role) error {
	// The role <> 'admin' guard keeps manually granted admin access from
	// being clobbered by billing reconciliation.
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET role = $2, updated_at = now()
		 WHERE id = $1 AND role <> 'admin'`,
		userID, role,
	)
	if err != nil {
		return errors.Join(ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the profile is missing or it is an admin row. Distinguish
		// so reconciliation can fail loudly on missing profiles.
		if _, getErr := s.Get(ctx, userID); getErr != nil {
			return getErr
		}
		return nil
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, userID); err != nil {
		return errors.Join(ErrPersistence, err)
	}
	return nil
}
