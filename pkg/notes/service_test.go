package notes_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notenibblers/notenibblers/pkg/notes"
)

type memStore struct {
	mu    sync.Mutex
	notes map[uuid.UUID]*notes.Note
}

func newMemStore() *memStore {
	return &memStore{notes: make(map[uuid.UUID]*notes.Note)}
}

func (s *memStore) Create(_ context.Context, n *notes.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	cp := *n
	s.notes[n.ID] = &cp
	return nil
}

func (s *memStore) Get(_ context.Context, userID, noteID uuid.UUID) (*notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[noteID]
	if !ok || n.UserID != userID {
		return nil, notes.ErrNoteNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *memStore) List(_ context.Context, userID uuid.UUID) ([]notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notes.Note
	for _, n := range s.notes {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) Update(_ context.Context, n *notes.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.notes[n.ID]
	if !ok || existing.UserID != n.UserID {
		return notes.ErrNoteNotFound
	}
	existing.Title = n.Title
	existing.Slug = n.Slug
	existing.Content = n.Content
	existing.UpdatedAt = time.Now()
	*n = *existing
	return nil
}

func (s *memStore) Delete(_ context.Context, userID, noteID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[noteID]
	if !ok || n.UserID != userID {
		return notes.ErrNoteNotFound
	}
	delete(s.notes, noteID)
	return nil
}

func (s *memStore) Search(_ context.Context, userID uuid.UUID, query string) ([]notes.Note, error) {
	all, _ := s.List(context.Background(), userID)
	var out []notes.Note
	for _, n := range all {
		if containsFold(n.Title, query) || containsFold(n.Content, query) {
			out = append(out, n)
		}
	}
	return out, nil
}

func containsFold(haystack, needle string) bool {
	return needle != "" && strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

type fakeSearcher struct {
	indexed map[uuid.UUID]*notes.Note
	err     error
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{indexed: make(map[uuid.UUID]*notes.Note)}
}

func (f *fakeSearcher) Index(_ context.Context, n *notes.Note) error {
	if f.err != nil {
		return f.err
	}
	cp := *n
	f.indexed[n.ID] = &cp
	return nil
}

func (f *fakeSearcher) Remove(_ context.Context, noteID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	delete(f.indexed, noteID)
	return nil
}

func (f *fakeSearcher) Search(_ context.Context, userID uuid.UUID, query string) ([]notes.Note, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []notes.Note
	for _, n := range f.indexed {
		if n.UserID == userID && containsFold(n.Title+" "+n.Content, query) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func TestService_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	searcher := newFakeSearcher()
	svc := notes.NewService(newMemStore(), notes.WithSearcher(searcher))

	n, err := svc.Create(ctx, userID, "Cell Biology Notes", "Mitochondria are organelles.")
	require.NoError(t, err)
	assert.Equal(t, "cell-biology-notes", n.Slug)
	assert.Contains(t, searcher.indexed, n.ID)

	got, err := svc.Get(ctx, userID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Title, got.Title)

	// Another user cannot see it.
	_, err = svc.Get(ctx, uuid.New(), n.ID)
	assert.ErrorIs(t, err, notes.ErrNoteNotFound)
}

func TestService_CreateRejectsEmptyTitle(t *testing.T) {
	t.Parallel()

	svc := notes.NewService(newMemStore())

	_, err := svc.Create(context.Background(), uuid.New(), "   ", "content")
	assert.ErrorIs(t, err, notes.ErrInvalidNote)
}

func TestService_CreateSurvivesIndexFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	searcher := newFakeSearcher()
	searcher.err = errors.New("index unavailable")
	svc := notes.NewService(newMemStore(), notes.WithSearcher(searcher))

	n, err := svc.Create(ctx, userID, "Title", "content")
	require.NoError(t, err, "index outage must not block note creation")

	_, err = svc.Get(ctx, userID, n.ID)
	assert.NoError(t, err)
}

func TestService_UpdateRederivesSlug(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	svc := notes.NewService(newMemStore())

	n, err := svc.Create(ctx, userID, "Old Title", "content")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, userID, n.ID, "Brand New Title", "new content")
	require.NoError(t, err)
	assert.Equal(t, "brand-new-title", updated.Slug)
	assert.Equal(t, "new content", updated.Content)
}

func TestService_DeleteRemovesIndexEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	searcher := newFakeSearcher()
	svc := notes.NewService(newMemStore(), notes.WithSearcher(searcher))

	n, err := svc.Create(ctx, userID, "Title", "content")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, userID, n.ID))
	assert.NotContains(t, searcher.indexed, n.ID)

	assert.ErrorIs(t, svc.Delete(ctx, userID, n.ID), notes.ErrNoteNotFound)
}

func TestService_Search(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	searcher := newFakeSearcher()
	store := newMemStore()
	svc := notes.NewService(store, notes.WithSearcher(searcher))

	_, err := svc.Create(ctx, userID, "Photosynthesis", "Plants convert light to energy.")
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, "Krebs Cycle", "Cellular respiration step.")
	require.NoError(t, err)

	hits, err := svc.Search(ctx, userID, "photo")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Photosynthesis", hits[0].Title)

	// Index failure falls back to the store.
	searcher.err = errors.New("index unavailable")
	hits, err = svc.Search(ctx, userID, "respiration")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Krebs Cycle", hits[0].Title)

	// Empty query lists everything.
	searcher.err = nil
	all, err := svc.Search(ctx, userID, "  ")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
