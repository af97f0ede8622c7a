package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/notenibblers/notenibblers/pkg/webhook"
)

// StripeConfig holds configuration for the Stripe billing provider.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
}

// StripeProvider implements Provider for Stripe. Webhook signatures are
// verified directly against Stripe's t=...,v1=... scheme rather than
// through the SDK, which keeps verification independent of the pinned API
// version.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	tolerance     time.Duration
}

// NewStripeProvider creates a Stripe billing provider.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}
	return &StripeProvider{
		api:           client.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
		tolerance:     webhook.DefaultTolerance,
	}, nil
}

func (p *StripeProvider) EnsureCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID.String())

	cust, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cust.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, errors.New("price reference is required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(req.UserID.String()),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
	}
	params.Context = ctx
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) CancelAtPeriodEnd(ctx context.Context, providerSubID string) (time.Time, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	sub, err := p.api.Subscriptions.Update(providerSubID, params)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule stripe cancellation: %w", err)
	}
	if sub.CurrentPeriodEnd == 0 {
		return time.Time{}, nil
	}
	return time.Unix(sub.CurrentPeriodEnd, 0).UTC(), nil
}

func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (*Event, error) {
	if err := webhook.Verify(p.webhookSecret, payload, signature, p.tolerance); err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	var envelope struct {
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, errors.Join(ErrInvalidEvent, err)
	}

	switch envelope.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(envelope.Data.Object, &sess); err != nil {
			return nil, errors.Join(ErrInvalidEvent, err)
		}
		out := &CheckoutCompleted{UserRef: sess.ClientReferenceID}
		if sess.Customer != nil {
			out.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			out.SubscriptionID = sess.Subscription.ID
		}
		return &Event{Type: EventCheckoutCompleted, ProviderEvent: envelope.Type, Checkout: out}, nil

	case "customer.subscription.updated":
		sub, err := parseStripeSubscription(envelope.Data.Object)
		if err != nil {
			return nil, err
		}
		return &Event{Type: EventSubscriptionUpdated, ProviderEvent: envelope.Type, Subscription: sub}, nil

	case "customer.subscription.deleted":
		sub, err := parseStripeSubscription(envelope.Data.Object)
		if err != nil {
			return nil, err
		}
		return &Event{Type: EventSubscriptionDeleted, ProviderEvent: envelope.Type, Subscription: sub}, nil

	default:
		return &Event{Type: EventType(envelope.Type), ProviderEvent: envelope.Type}, nil
	}
}

func (p *StripeProvider) ResolveSubscription(ctx context.Context, providerSubID string) (*SubscriptionChange, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := p.api.Subscriptions.Get(providerSubID, params)
	if err != nil {
		return nil, fmt.Errorf("fetch stripe subscription: %w", err)
	}
	return stripeSubscriptionChange(sub), nil
}

func parseStripeSubscription(raw json.RawMessage) (*SubscriptionChange, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, errors.Join(ErrInvalidEvent, err)
	}
	return stripeSubscriptionChange(&sub), nil
}

func stripeSubscriptionChange(sub *stripe.Subscription) *SubscriptionChange {
	out := &SubscriptionChange{
		SubscriptionID:    sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	return out
}
