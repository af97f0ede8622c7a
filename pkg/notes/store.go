package notes

import (
	"context"

	"github.com/google/uuid"
)

// Store persists notes. All reads and writes are scoped to the owning
// user; a note id from another user behaves as not found.
type Store interface {
	Create(ctx context.Context, n *Note) error
	Get(ctx context.Context, userID, noteID uuid.UUID) (*Note, error)
	// List returns the user's notes, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]Note, error)
	Update(ctx context.Context, n *Note) error
	Delete(ctx context.Context, userID, noteID uuid.UUID) error
	// Search is the SQL fallback used when no search index is configured:
	// case-insensitive substring match over title and content.
	Search(ctx context.Context, userID uuid.UUID, query string) ([]Note, error)
}
