package notes

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Service owns note CRUD and search. Index writes are best effort: the
// database row is the source of truth and a missed index update only costs
// search freshness.
type Service struct {
	store    Store
	searcher Searcher
	log      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSearcher enables full-text search through an external index.
func WithSearcher(s Searcher) ServiceOption {
	return func(svc *Service) { svc.searcher = s }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(svc *Service) { svc.log = l }
}

// NewService wires the notes service around a Store.
func NewService(store Store, opts ...ServiceOption) *Service {
	if store == nil {
		panic("notes: store is required")
	}
	svc := &Service{
		store: store,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create stores a new note and indexes it.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, title, content string) (*Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidNote
	}

	n := &Note{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   title,
		Slug:    Slugify(title),
		Content: content,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}
	s.indexNote(ctx, n)
	return n, nil
}

// Get returns one of the user's notes.
func (s *Service) Get(ctx context.Context, userID, noteID uuid.UUID) (*Note, error) {
	return s.store.Get(ctx, userID, noteID)
}

// List returns the user's notes, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Note, error) {
	return s.store.List(ctx, userID)
}

// Update overwrites title and content, re-deriving the slug.
func (s *Service) Update(ctx context.Context, userID, noteID uuid.UUID, title, content string) (*Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidNote
	}

	n := &Note{
		ID:      noteID,
		UserID:  userID,
		Title:   title,
		Slug:    Slugify(title),
		Content: content,
	}
	if err := s.store.Update(ctx, n); err != nil {
		return nil, err
	}
	s.indexNote(ctx, n)
	return n, nil
}

// Delete removes the note and its index entry.
func (s *Service) Delete(ctx context.Context, userID, noteID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID, noteID); err != nil {
		return err
	}
	if s.searcher != nil {
		if err := s.searcher.Remove(ctx, noteID); err != nil {
			s.log.WarnContext(ctx, "note index removal failed",
				slog.String("note_id", noteID.String()), slog.Any("error", err))
		}
	}
	return nil
}

// Search finds the user's notes matching the query. The external index is
// preferred; without one, or when it fails, the SQL fallback serves.
func (s *Service) Search(ctx context.Context, userID uuid.UUID, query string) ([]Note, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.store.List(ctx, userID)
	}

	if s.searcher != nil {
		hits, err := s.searcher.Search(ctx, userID, query)
		if err == nil {
			return hits, nil
		}
		s.log.WarnContext(ctx, "search index query failed, using SQL fallback",
			slog.Any("error", err))
	}
	return s.store.Search(ctx, userID, query)
}

func (s *Service) indexNote(ctx context.Context, n *Note) {
	if s.searcher == nil {
		return
	}
	if err := s.searcher.Index(ctx, n); err != nil {
		s.log.WarnContext(ctx, "note indexing failed",
			slog.String("note_id", n.ID.String()), slog.Any("error", err))
	}
}
