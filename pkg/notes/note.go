// Package notes stores per-user study notes and makes them searchable.
// Persistence lives in PostgreSQL; an optional OpenSearch index serves
// full-text queries and falls back to SQL pattern matching when absent.
package notes

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoteNotFound = errors.New("note not found")
	ErrInvalidNote  = errors.New("invalid note")
	ErrPersistence  = errors.New("note persistence error")
)

// Note is one study note. Slug is derived from the title on create and
// update; it is a display aid, not a unique key.
type Note struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
