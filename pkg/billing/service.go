package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/notenibblers/notenibblers/pkg/email"
	"github.com/notenibblers/notenibblers/pkg/profile"
)

// Service is the subscription lifecycle coordinator: checkout initiation,
// scheduled cancellation, webhook reconciliation and entitlement decisions.
type Service struct {
	catalog  *Catalog
	provider Provider
	records  RecordStore
	profiles profile.Store

	mailer         email.EmailSender
	log            *slog.Logger
	freePlanID     string
	demoteOnCancel bool
	successURL     string
	cancelURL      string
}

// Option configures a Service.
type Option func(*Service)

// WithMailer enables best-effort lifecycle notification emails.
func WithMailer(m email.EmailSender) Option {
	return func(s *Service) { s.mailer = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithDemoteOnCancel controls whether a user-initiated cancellation drops
// the role to free immediately. When false the role survives until the
// provider's terminal deletion event, so paid access lasts through the
// already-paid period.
func WithDemoteOnCancel(v bool) Option {
	return func(s *Service) { s.demoteOnCancel = v }
}

// WithCheckoutURLs sets the redirect targets for hosted checkout.
func WithCheckoutURLs(successURL, cancelURL string) Option {
	return func(s *Service) {
		s.successURL = successURL
		s.cancelURL = cancelURL
	}
}

// WithFreePlanID overrides the default free plan used for quota records.
func WithFreePlanID(id string) Option {
	return func(s *Service) { s.freePlanID = id }
}

// NewService wires the subscription service. Catalog, provider, record
// store and profile store are required.
func NewService(catalog *Catalog, provider Provider, records RecordStore, profiles profile.Store, opts ...Option) *Service {
	if catalog == nil {
		panic("billing: catalog is required")
	}
	if provider == nil {
		panic("billing: provider is required")
	}
	if records == nil {
		panic("billing: record store is required")
	}
	if profiles == nil {
		panic("billing: profile store is required")
	}

	s := &Service{
		catalog:    catalog,
		provider:   provider,
		records:    records,
		profiles:   profiles,
		log:        slog.New(slog.DiscardHandler),
		freePlanID: "FREE",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plans returns the publicly offered plans.
func (s *Service) Plans() []Plan {
	return s.catalog.Public()
}

// GetSubscription returns the user's record and its plan. Users who never
// touched billing get a synthetic free-plan record.
func (s *Service) GetSubscription(ctx context.Context, userID uuid.UUID) (*Record, Plan, error) {
	rec, err := s.records.Get(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		plan, perr := s.catalog.ByID(s.freePlanID)
		if perr != nil {
			return nil, Plan{}, perr
		}
		return &Record{UserID: userID, PlanID: plan.ID, Status: StatusActive}, plan, nil
	}
	if err != nil {
		return nil, Plan{}, err
	}

	plan, err := s.catalog.ByID(rec.PlanID)
	if err != nil {
		// A record referencing a plan that has since been removed from the
		// catalog; fall back to the free plan for limits.
		s.log.WarnContext(ctx, "subscription references unknown plan",
			slog.String("user_id", userID.String()), slog.String("plan_id", rec.PlanID))
		plan, err = s.catalog.ByID(s.freePlanID)
		if err != nil {
			return nil, Plan{}, err
		}
	}
	return rec, plan, nil
}

// StartCheckout creates a hosted checkout session for the given paid plan.
// Returns ErrAlreadySubscribed when the user already holds an active
// subscription on that plan, without contacting the provider.
func (s *Service) StartCheckout(ctx context.Context, userID uuid.UUID, planID string) (*CheckoutSession, error) {
	plan, err := s.catalog.ByID(planID)
	if err != nil {
		return nil, ErrInvalidPlan
	}
	if !plan.IsPaid() {
		return nil, fmt.Errorf("%w: plan %q has no provider price", ErrInvalidPlan, planID)
	}

	prof, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	var customerID string
	rec, err := s.records.Get(ctx, userID)
	switch {
	case err == nil:
		if rec.Status == StatusActive && rec.PlanID == plan.ID {
			return nil, ErrAlreadySubscribed
		}
		customerID = rec.ProviderCustomerID
	case errors.Is(err, ErrRecordNotFound):
		// First checkout for this user.
	default:
		return nil, err
	}

	if customerID == "" {
		customerID, err = s.provider.EnsureCustomer(ctx, userID, prof.Email)
		if err != nil {
			return nil, errors.Join(ErrProviderError, err)
		}
		if err := s.records.SetProviderCustomerID(ctx, userID, s.freePlanID, customerID); err != nil {
			return nil, err
		}
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		UserID:     userID,
		CustomerID: customerID,
		Email:      prof.Email,
		PriceID:    plan.PriceID,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
	})
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}

	s.log.InfoContext(ctx, "checkout session created",
		slog.String("user_id", userID.String()),
		slog.String("plan_id", plan.ID),
		slog.String("session_id", sess.SessionID))
	return sess, nil
}

// CancelSubscription schedules cancellation at period end with the provider
// and marks the local record canceling. Returns when the cancellation takes
// effect (zero if the provider did not report it).
func (s *Service) CancelSubscription(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	rec, err := s.records.Get(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return time.Time{}, ErrNoActiveSubscription
	}
	if err != nil {
		return time.Time{}, err
	}
	if rec.ProviderSubID == "" || rec.Status != StatusActive {
		return time.Time{}, ErrNoActiveSubscription
	}

	effectiveAt, err := s.provider.CancelAtPeriodEnd(ctx, rec.ProviderSubID)
	if err != nil {
		return time.Time{}, errors.Join(ErrProviderError, err)
	}

	if _, err := s.records.SetStatusBySubscriptionID(ctx, rec.ProviderSubID, StatusCanceling); err != nil {
		return time.Time{}, err
	}
	if s.demoteOnCancel {
		if err := s.profiles.SetRole(ctx, userID, profile.RoleFree); err != nil {
			return time.Time{}, err
		}
	}

	s.log.InfoContext(ctx, "subscription cancellation scheduled",
		slog.String("user_id", userID.String()),
		slog.String("subscription_id", rec.ProviderSubID),
		slog.Time("effective_at", effectiveAt))
	s.notify(ctx, userID, "Your subscription has been canceled",
		"<p>Your subscription was canceled and will not renew. Paid features remain available until the end of the current billing period.</p>")
	return effectiveAt, nil
}

// HandleWebhook verifies and reconciles one provider event. Returning nil
// acknowledges the delivery; returning an error makes the provider retry,
// which is the recovery path for transient persistence failures and
// out-of-order deliveries.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	switch event.Type {
	case EventCheckoutCompleted:
		return s.applyCheckoutCompleted(ctx, event)
	case EventSubscriptionUpdated:
		return s.applySubscriptionUpdated(ctx, event)
	case EventSubscriptionDeleted:
		return s.applySubscriptionDeleted(ctx, event)
	default:
		// Unrecognized events are acknowledged so the provider stops
		// redelivering them.
		s.log.DebugContext(ctx, "ignoring billing event", slog.String("event", event.ProviderEvent))
		return nil
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, event *Event) error {
	c := event.Checkout
	if c == nil {
		return ErrInvalidEvent
	}
	userID, err := uuid.Parse(c.UserRef)
	if err != nil {
		return fmt.Errorf("%w: bad user reference %q", ErrInvalidEvent, c.UserRef)
	}
	if c.SubscriptionID == "" {
		return fmt.Errorf("%w: checkout completed without subscription", ErrInvalidEvent)
	}

	// Checkout events don't embed price details, so fetch the provider's
	// current view of the subscription.
	state, err := s.provider.ResolveSubscription(ctx, c.SubscriptionID)
	if err != nil {
		return errors.Join(ErrProviderError, err)
	}

	plan, err := s.catalog.ByPriceID(state.PriceID)
	if errors.Is(err, ErrUnknownPriceRef) {
		// A price this deployment doesn't sell, most likely another
		// environment sharing the provider account. Log and acknowledge.
		s.log.WarnContext(ctx, "dropping event with unknown price reference",
			slog.String("event", event.ProviderEvent),
			slog.String("price_id", state.PriceID),
			slog.String("subscription_id", c.SubscriptionID))
		return nil
	}
	if err != nil {
		return err
	}

	rec, err := s.records.Upsert(ctx, Record{
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             s.mapProviderStatus(state.Status, state.CancelAtPeriodEnd),
		ProviderCustomerID: c.CustomerID,
		ProviderSubID:      c.SubscriptionID,
		CurrentPeriodEnd:   state.CurrentPeriodEnd,
	})
	if err != nil {
		return err
	}
	if err := s.profiles.SetRole(ctx, userID, plan.Role()); err != nil {
		// Record is written but the role isn't: fail the delivery so the
		// replay brings both in line.
		return err
	}

	s.log.InfoContext(ctx, "subscription activated",
		slog.String("user_id", userID.String()),
		slog.String("plan_id", plan.ID),
		slog.String("subscription_id", rec.ProviderSubID))
	s.notify(ctx, userID, "Welcome to "+plan.Name,
		fmt.Sprintf("<p>Your %s subscription is now active. Happy quizzing!</p>", plan.Name))
	return nil
}

func (s *Service) applySubscriptionUpdated(ctx context.Context, event *Event) error {
	u := event.Subscription
	if u == nil || u.SubscriptionID == "" {
		return ErrInvalidEvent
	}

	plan, err := s.catalog.ByPriceID(u.PriceID)
	if errors.Is(err, ErrUnknownPriceRef) {
		s.log.WarnContext(ctx, "dropping event with unknown price reference",
			slog.String("event", event.ProviderEvent),
			slog.String("price_id", u.PriceID),
			slog.String("subscription_id", u.SubscriptionID))
		return nil
	}
	if err != nil {
		return err
	}

	status := s.mapProviderStatus(u.Status, u.CancelAtPeriodEnd)
	rec, err := s.records.UpdateBySubscriptionID(ctx, u.SubscriptionID, plan.ID, status, u.CurrentPeriodEnd)
	if errors.Is(err, ErrRecordNotFound) {
		// Update delivered before the checkout event created the record.
		// Fail the delivery; the replay lands once the record exists.
		s.log.WarnContext(ctx, "update for unknown subscription, requesting redelivery",
			slog.String("subscription_id", u.SubscriptionID))
		return err
	}
	if err != nil {
		return err
	}

	role := plan.Role()
	switch {
	case status == StatusCanceled || status == StatusInactive:
		role = profile.RoleFree
	case status == StatusCanceling && s.demoteOnCancel:
		// Provider-side scheduled cancellation follows the same demotion
		// policy as the local cancel path.
		role = profile.RoleFree
	}
	if err := s.profiles.SetRole(ctx, rec.UserID, role); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "subscription updated",
		slog.String("user_id", rec.UserID.String()),
		slog.String("subscription_id", u.SubscriptionID),
		slog.String("status", string(status)))
	return nil
}

func (s *Service) applySubscriptionDeleted(ctx context.Context, event *Event) error {
	d := event.Subscription
	if d == nil || d.SubscriptionID == "" {
		return ErrInvalidEvent
	}

	rec, err := s.records.GetBySubscriptionID(ctx, d.SubscriptionID)
	if errors.Is(err, ErrRecordNotFound) {
		// Nothing local references this subscription; nothing to reconcile.
		s.log.WarnContext(ctx, "deletion for unknown subscription",
			slog.String("subscription_id", d.SubscriptionID))
		return nil
	}
	if err != nil {
		return err
	}

	// A deletion that follows a scheduled cancellation completes it;
	// anything else is an unexpected termination.
	newStatus := StatusInactive
	if rec.Status == StatusCanceling {
		newStatus = StatusCanceled
	}
	if _, err := s.records.SetStatusBySubscriptionID(ctx, d.SubscriptionID, newStatus); err != nil {
		return err
	}
	if err := s.profiles.SetRole(ctx, rec.UserID, profile.RoleFree); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "subscription ended",
		slog.String("user_id", rec.UserID.String()),
		slog.String("subscription_id", d.SubscriptionID),
		slog.String("status", string(newStatus)))
	s.notify(ctx, rec.UserID, "Your subscription has ended",
		"<p>Your subscription has ended and your account is back on the free plan.</p>")
	return nil
}

// CheckEntitlement decides whether the user may perform the action. Paid
// and admin roles always pass; free users are quota-checked for
// quota-consuming actions. The check does not consume quota.
func (s *Service) CheckEntitlement(ctx context.Context, userID uuid.UUID, action Action) (Decision, error) {
	prof, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if prof.Role.IsPaid() {
		// Paid access never hinges on the usage counter; a store failure
		// here only degrades the reported usage.
		used, err := s.quizCount(ctx, userID)
		if err != nil {
			s.log.WarnContext(ctx, "failed to read quiz count",
				slog.String("user_id", userID.String()), slog.Any("error", err))
		}
		return allowDecision(used, Unlimited), nil
	}

	plan, err := s.catalog.ByID(s.freePlanID)
	if err != nil {
		return Decision{}, err
	}
	used, err := s.quizCount(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	if !action.ConsumesQuota() {
		return allowDecision(used, plan.QuizLimit), nil
	}
	if plan.QuizLimit == Unlimited || used < plan.QuizLimit {
		return allowDecision(used, plan.QuizLimit), nil
	}
	return denyQuotaDecision(used, plan.QuizLimit), nil
}

// ConsumeQuiz atomically spends one unit of quiz quota and returns the
// count after the spend plus the applicable limit. Free users hitting their
// plan limit get ErrQuotaExceeded; paid and admin roles are unlimited.
func (s *Service) ConsumeQuiz(ctx context.Context, userID uuid.UUID) (used, limit int64, err error) {
	prof, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	planID := s.freePlanID
	limit = Unlimited
	if rec, recErr := s.records.Get(ctx, userID); recErr == nil && rec.PlanID != "" {
		planID = rec.PlanID
	}
	if !prof.Role.IsPaid() {
		plan, perr := s.catalog.ByID(s.freePlanID)
		if perr != nil {
			return 0, 0, perr
		}
		planID = plan.ID
		limit = plan.QuizLimit
	}

	used, err = s.records.ConsumeQuiz(ctx, userID, planID, limit)
	if err != nil {
		return 0, limit, err
	}
	return used, limit, nil
}

// QuestionLimit returns the per-quiz question cap for the user's plan.
func (s *Service) QuestionLimit(ctx context.Context, userID uuid.UUID) (int, error) {
	_, plan, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return 0, err
	}
	return plan.QuestionLimit, nil
}

func (s *Service) quizCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	rec, err := s.records.Get(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.QuizCount, nil
}

// mapProviderStatus folds the provider's status vocabulary into the local
// lifecycle. Scheduled-but-not-yet-effective cancellations show up as an
// active subscription with a cancel flag.
func (s *Service) mapProviderStatus(providerStatus string, cancelAtPeriodEnd bool) Status {
	switch providerStatus {
	case "active", "trialing":
		if cancelAtPeriodEnd {
			return StatusCanceling
		}
		return StatusActive
	case "canceled", "cancelled", "expired":
		return StatusCanceled
	default:
		// past_due, unpaid, paused and friends: not entitled, not canceled.
		return StatusInactive
	}
}

// notify sends a lifecycle email on a best-effort basis: failures are
// logged, never propagated, so email outages can't fail reconciliation.
func (s *Service) notify(ctx context.Context, userID uuid.UUID, subject, bodyHTML string) {
	if s.mailer == nil {
		return
	}
	prof, err := s.profiles.Get(ctx, userID)
	if err != nil {
		s.log.WarnContext(ctx, "skipping notification, profile lookup failed",
			slog.String("user_id", userID.String()), slog.Any("error", err))
		return
	}
	if err := s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   prof.Email,
		Subject:  subject,
		BodyHTML: bodyHTML,
		Tag:      "billing",
	}); err != nil {
		s.log.WarnContext(ctx, "notification email failed",
			slog.String("user_id", userID.String()), slog.Any("error", err))
	}
}
