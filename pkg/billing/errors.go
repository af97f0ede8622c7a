package billing

import "errors"

var (
	// Catalog errors.
	ErrPlanNotFound    = errors.New("billing plan not found")
	ErrInvalidPlan     = errors.New("invalid billing plan")
	ErrInvalidCatalog  = errors.New("invalid plan catalog configuration")
	ErrUnknownPriceRef = errors.New("unknown billing price reference")

	// Checkout and cancellation errors.
	ErrAlreadySubscribed    = errors.New("already subscribed to this plan")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrProviderError        = errors.New("billing provider error")

	// Webhook errors.
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrInvalidEvent     = errors.New("invalid billing event payload")

	// Persistence errors.
	ErrRecordNotFound = errors.New("subscription record not found")
	ErrPersistence    = errors.New("subscription persistence error")

	// Entitlement errors.
	ErrQuotaExceeded = errors.New("quiz quota exceeded")
)
