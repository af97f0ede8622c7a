package notes

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

const noteColumns = `id, user_id, title, slug, content, created_at, updated_at`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Slug, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	return &n, nil
}

func (s *PGStore) Create(ctx context.Context, n *Note) error {
	stored, err := scanNote(s.pool.QueryRow(ctx,
		`INSERT INTO quiz_notes (id, user_id, title, slug, content)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+noteColumns,
		n.ID, n.UserID, n.Title, n.Slug, n.Content))
	if err != nil {
		return err
	}
	*n = *stored
	return nil
}

func (s *PGStore) Get(ctx context.Context, userID, noteID uuid.UUID) (*Note, error) {
	return scanNote(s.pool.QueryRow(ctx,
		`SELECT `+noteColumns+` FROM quiz_notes WHERE id = $1 AND user_id = $2`,
		noteID, userID))
}

func (s *PGStore) List(ctx context.Context, userID uuid.UUID) ([]Note, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM quiz_notes WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

func (s *PGStore) Update(ctx context.Context, n *Note) error {
	stored, err := scanNote(s.pool.QueryRow(ctx,
		`UPDATE quiz_notes
		 SET title = $3, slug = $4, content = $5, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+noteColumns,
		n.ID, n.UserID, n.Title, n.Slug, n.Content))
	if err != nil {
		return err
	}
	*n = *stored
	return nil
}

func (s *PGStore) Delete(ctx context.Context, userID, noteID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM quiz_notes WHERE id = $1 AND user_id = $2`, noteID, userID)
	if err != nil {
		return errors.Join(ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func (s *PGStore) Search(ctx context.Context, userID uuid.UUID, query string) ([]Note, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM quiz_notes
		 WHERE user_id = $1 AND (title ILIKE '%' || $2 || '%' OR content ILIKE '%' || $2 || '%')
		 ORDER BY created_at DESC`,
		userID, query)
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

func collectNotes(rows pgx.Rows) ([]Note, error) {
	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Slug, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, errors.Join(ErrPersistence, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	return out, nil
}
