package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecordStore persists subscription records. Implementations must keep every
// write idempotent: webhook handlers replay.
type RecordStore interface {
	// Get retrieves the record for a user. Returns ErrRecordNotFound if the
	// user never had a subscription record.
	Get(ctx context.Context, userID uuid.UUID) (*Record, error)

	// GetBySubscriptionID retrieves the record holding the given provider
	// subscription id.
	GetBySubscriptionID(ctx context.Context, providerSubID string) (*Record, error)

	// Upsert writes the full record keyed on user id. Quiz usage is
	// preserved when the incoming provider subscription id matches the
	// stored one (event replay) and reset to zero when it differs (a
	// genuinely new subscription). Returns the stored record.
	Upsert(ctx context.Context, rec Record) (*Record, error)

	// UpdateBySubscriptionID overwrites plan, status and period end on the
	// record holding the provider subscription id. Returns
	// ErrRecordNotFound when no record references it.
	UpdateBySubscriptionID(ctx context.Context, providerSubID, planID string, status Status, periodEnd time.Time) (*Record, error)

	// SetStatusBySubscriptionID updates only the status of the record
	// holding the provider subscription id.
	SetStatusBySubscriptionID(ctx context.Context, providerSubID string, status Status) (*Record, error)

	// SetProviderCustomerID stores the provider customer reference,
	// creating a free-plan record if the user has none yet.
	SetProviderCustomerID(ctx context.Context, userID uuid.UUID, freePlanID, customerID string) error

	// ConsumeQuiz atomically increments the user's quiz count, creating a
	// record on the given plan if none exists. When limit is non-negative
	// the increment only happens while the current count is below it;
	// otherwise ErrQuotaExceeded is returned. Returns the count after the
	// increment.
	ConsumeQuiz(ctx context.Context, userID uuid.UUID, planID string, limit int64) (int64, error)
}
