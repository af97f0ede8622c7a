package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the PostgreSQL-backed RecordStore. All upserts are single
// statements so concurrent webhook deliveries don't need locking.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const recordColumns = `user_id, plan_id, status, COALESCE(provider_customer_id, ''),
	COALESCE(provider_subscription_id, ''), COALESCE(current_period_end, 'epoch'::timestamptz),
	quiz_count, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.UserID, &rec.PlanID, &rec.Status, &rec.ProviderCustomerID,
		&rec.ProviderSubID, &rec.CurrentPeriodEnd, &rec.QuizCount, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	if rec.CurrentPeriodEnd.Unix() == 0 {
		rec.CurrentPeriodEnd = time.Time{}
	}
	return &rec, nil
}

func (s *PGStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	return scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM subscriptions WHERE user_id = $1`, userID))
}

func (s *PGStore) GetBySubscriptionID(ctx context.Context, providerSubID string) (*Record, error) {
	return scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM subscriptions WHERE provider_subscription_id = $1`,
		providerSubID))
}

func (s *PGStore) Upsert(ctx context.Context, rec Record) (*Record, error) {
	var periodEnd *time.Time
	if !rec.CurrentPeriodEnd.IsZero() {
		periodEnd = &rec.CurrentPeriodEnd
	}
	// The CASE keeps quiz usage across replays of the same provider
	// subscription and resets it when a different subscription takes over
	// the row.
	return scanRecord(s.pool.QueryRow(ctx,
		`INSERT INTO subscriptions
			(user_id, plan_id, status, provider_customer_id, provider_subscription_id, current_period_end, quiz_count)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, 0)
		 ON CONFLICT (user_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			provider_customer_id = COALESCE(EXCLUDED.provider_customer_id, subscriptions.provider_customer_id),
			provider_subscription_id = EXCLUDED.provider_subscription_id,
			current_period_end = EXCLUDED.current_period_end,
			quiz_count = CASE
				WHEN subscriptions.provider_subscription_id IS NOT DISTINCT FROM EXCLUDED.provider_subscription_id
				THEN subscriptions.quiz_count
				ELSE 0
			END,
			updated_at = now()
		 RETURNING `+recordColumns,
		rec.UserID, rec.PlanID, rec.Status, rec.ProviderCustomerID, rec.ProviderSubID, periodEnd))
}

func (s *PGStore) UpdateBySubscriptionID(ctx context.Context, providerSubID, planID string, status Status, periodEnd time.Time) (*Record, error) {
	var pe *time.Time
	if !periodEnd.IsZero() {
		pe = &periodEnd
	}
	return scanRecord(s.pool.QueryRow(ctx,
		`UPDATE subscriptions
		 SET plan_id = $2, status = $3, current_period_end = $4, updated_at = now()
		 WHERE provider_subscription_id = $1
		 RETURNING `+recordColumns,
		providerSubID, planID, status, pe))
}

func (s *PGStore) SetStatusBySubscriptionID(ctx context.Context, providerSubID string, status Status) (*Record, error) {
	return scanRecord(s.pool.QueryRow(ctx,
		`UPDATE subscriptions SET status = $2, updated_at = now()
		 WHERE provider_subscription_id = $1
		 RETURNING `+recordColumns,
		providerSubID, status))
}

func (s *PGStore) SetProviderCustomerID(ctx context.Context, userID uuid.UUID, freePlanID, customerID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscriptions (user_id, plan_id, status, provider_customer_id, quiz_count)
		 VALUES ($1, $2, 'active', $3, 0)
		 ON CONFLICT (user_id) DO UPDATE SET
			provider_customer_id = EXCLUDED.provider_customer_id,
			updated_at = now()`,
		userID, freePlanID, customerID)
	if err != nil {
		return errors.Join(ErrPersistence, err)
	}
	return nil
}

func (s *PGStore) ConsumeQuiz(ctx context.Context, userID uuid.UUID, planID string, limit int64) (int64, error) {
	if limit == 0 {
		return 0, ErrQuotaExceeded
	}
	// Conditional increment in one statement: the WHERE on the update arm
	// makes the quota check atomic under concurrent generation requests.
	var count int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO subscriptions (user_id, plan_id, status, quiz_count)
		 VALUES ($1, $2, 'active', 1)
		 ON CONFLICT (user_id) DO UPDATE SET
			quiz_count = subscriptions.quiz_count + 1,
			updated_at = now()
		 WHERE $3 < 0 OR subscriptions.quiz_count < $3
		 RETURNING quiz_count`,
		userID, planID, limit,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrQuotaExceeded
		}
		return 0, errors.Join(ErrPersistence, err)
	}
	return count, nil
}
