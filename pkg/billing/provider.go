package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType is the normalized billing event class the reconciler handles.
// Provider-specific event names are mapped into these by ParseWebhook;
// anything else passes through unmapped and is acknowledged without action.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.completed"
	EventSubscriptionUpdated EventType = "subscription.updated"
	EventSubscriptionDeleted EventType = "subscription.deleted"
)

// CheckoutCompleted carries the correlation data of a finished checkout:
// which user paid (via the reference we attached at session creation) and
// which provider objects now represent them.
type CheckoutCompleted struct {
	UserRef        string // correlation reference set at checkout creation
	CustomerID     string
	SubscriptionID string
}

// SubscriptionChange is the provider's view of a subscription at some point
// in time. Status holds the provider's own status string; the reconciler
// maps it to a local Status.
type SubscriptionChange struct {
	SubscriptionID    string
	CustomerID        string
	PriceID           string
	Status            string
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

// Event is a tagged union: exactly one variant matching Type is non-nil.
// For unmapped provider events both variants are nil and ProviderEvent
// holds the raw event name.
type Event struct {
	Type          EventType
	ProviderEvent string
	Checkout      *CheckoutCompleted
	Subscription  *SubscriptionChange
}

// CheckoutRequest describes a checkout session to create.
type CheckoutRequest struct {
	UserID     uuid.UUID
	CustomerID string
	Email      string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is a created hosted checkout the user is redirected to.
type CheckoutSession struct {
	SessionID string
	URL       string
}

// Provider abstracts the external billing system. Implementations verify
// webhook authenticity themselves since signature schemes are
// provider-specific.
type Provider interface {
	// EnsureCustomer creates a provider customer for the user and returns
	// its id. Callers persist the id; this is not called again once stored.
	EnsureCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error)

	// CreateCheckoutSession creates a hosted checkout for the given price,
	// tagged with the user id so the completion webhook can be correlated.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// CancelAtPeriodEnd schedules cancellation at the end of the current
	// billing period and returns when it takes effect (zero if the
	// provider did not report a time).
	CancelAtPeriodEnd(ctx context.Context, providerSubID string) (time.Time, error)

	// ParseWebhook verifies the payload signature and normalizes the event.
	// Returns ErrInvalidSignature (possibly wrapped) on verification
	// failure; the payload must then be treated as untrusted and dropped.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)

	// ResolveSubscription fetches the provider's current view of a
	// subscription. Used when an event references a subscription without
	// embedding its details.
	ResolveSubscription(ctx context.Context, providerSubID string) (*SubscriptionChange, error)
}
