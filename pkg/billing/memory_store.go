package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory RecordStore with the same idempotence
// semantics as PGStore. It backs local development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]*Record)}
}

func (s *MemoryStore) Get(_ context.Context, userID uuid.UUID) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) GetBySubscriptionID(_ context.Context, providerSubID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findBySubID(providerSubID)
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Upsert(_ context.Context, rec Record) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	existing, ok := s.records[rec.UserID]
	if !ok {
		rec.QuizCount = 0
		rec.CreatedAt = now
		rec.UpdatedAt = now
		stored := rec
		s.records[rec.UserID] = &stored
		cp := stored
		return &cp, nil
	}

	if existing.ProviderSubID == rec.ProviderSubID {
		rec.QuizCount = existing.QuizCount
	} else {
		rec.QuizCount = 0
	}
	if rec.ProviderCustomerID == "" {
		rec.ProviderCustomerID = existing.ProviderCustomerID
	}
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = now
	stored := rec
	s.records[rec.UserID] = &stored
	cp := stored
	return &cp, nil
}

func (s *MemoryStore) UpdateBySubscriptionID(_ context.Context, providerSubID, planID string, status Status, periodEnd time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findBySubID(providerSubID)
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	rec.PlanID = planID
	rec.Status = status
	rec.CurrentPeriodEnd = periodEnd
	rec.UpdatedAt = time.Now()
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) SetStatusBySubscriptionID(_ context.Context, providerSubID string, status Status) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findBySubID(providerSubID)
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	rec.Status = status
	rec.UpdatedAt = time.Now()
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) SetProviderCustomerID(_ context.Context, userID uuid.UUID, freePlanID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec, ok := s.records[userID]
	if !ok {
		s.records[userID] = &Record{
			UserID:             userID,
			PlanID:             freePlanID,
			Status:             StatusActive,
			ProviderCustomerID: customerID,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return nil
	}
	rec.ProviderCustomerID = customerID
	rec.UpdatedAt = now
	return nil
}

func (s *MemoryStore) ConsumeQuiz(_ context.Context, userID uuid.UUID, planID string, limit int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit == 0 {
		return 0, ErrQuotaExceeded
	}

	now := time.Now()
	rec, ok := s.records[userID]
	if !ok {
		rec = &Record{
			UserID:    userID,
			PlanID:    planID,
			Status:    StatusActive,
			CreatedAt: now,
		}
		s.records[userID] = rec
	}
	if limit >= 0 && rec.QuizCount >= limit {
		return 0, ErrQuotaExceeded
	}
	rec.QuizCount++
	rec.UpdatedAt = now
	return rec.QuizCount, nil
}

func (s *MemoryStore) findBySubID(providerSubID string) *Record {
	if providerSubID == "" {
		return nil
	}
	for _, rec := range s.records {
		if rec.ProviderSubID == providerSubID {
			return rec
		}
	}
	return nil
}
