package billing

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a subscription record.
type Status string

const (
	// StatusActive: the subscription is paid up and entitlements apply.
	StatusActive Status = "active"
	// StatusCanceling: cancellation is scheduled for period end; the
	// provider will emit a terminal deletion event when it takes effect.
	StatusCanceling Status = "canceling"
	// StatusCanceled: a scheduled cancellation completed.
	StatusCanceled Status = "canceled"
	// StatusInactive: the subscription ended without a prior scheduled
	// cancellation (payment failure, hard cancel on the provider side).
	StatusInactive Status = "inactive"
)

// Record is the locally persisted subscription state for one user. One
// record per user; a new checkout for the same user overwrites it.
type Record struct {
	UserID             uuid.UUID
	PlanID             string
	Status             Status
	ProviderCustomerID string
	ProviderSubID      string
	CurrentPeriodEnd   time.Time // zero when the provider did not report one
	QuizCount          int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
