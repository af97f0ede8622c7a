package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider for Paddle.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle billing provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("paddle webhook secret is required")
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

func (p *PaddleProvider) EnsureCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	cust, err := p.client.CustomersClient.CreateCustomer(ctx, &paddle.CreateCustomerRequest{
		Email:      email,
		CustomData: paddle.CustomData{"user_id": userID.String()},
	})
	if err != nil {
		return "", fmt.Errorf("create paddle customer: %w", err)
	}
	return cust.ID, nil
}

func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, errors.New("price reference is required")
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})
	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"user_id": req.UserID.String(),
		},
	}
	if req.CustomerID != "" {
		transactionReq.CustomerID = paddle.PtrTo(req.CustomerID)
	}
	if req.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, fmt.Errorf("create paddle transaction: %w", err)
	}
	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, errors.New("no checkout URL returned from paddle")
	}
	return &CheckoutSession{SessionID: transaction.ID, URL: *transaction.Checkout.URL}, nil
}

func (p *PaddleProvider) CancelAtPeriodEnd(ctx context.Context, providerSubID string) (time.Time, error) {
	sub, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: providerSubID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromNextBillingPeriod),
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule paddle cancellation: %w", err)
	}
	if sub.CurrentBillingPeriod != nil {
		if ts, err := time.Parse(time.RFC3339, sub.CurrentBillingPeriod.EndsAt); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, nil
}

// ParseWebhook verifies the Paddle-Signature header and normalizes the
// payload. Paddle embeds the full subscription in its events, so the
// reconciler rarely needs ResolveSubscription with this provider.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	// The SDK verifier consumes an http.Request, so wrap the raw payload.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var paddleEvent struct {
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, errors.Join(ErrInvalidEvent, err)
	}

	switch paddleEvent.EventType {
	case "transaction.completed":
		out := &CheckoutCompleted{}
		if customData, ok := paddleEvent.Data["custom_data"].(map[string]any); ok {
			out.UserRef, _ = customData["user_id"].(string)
		}
		out.CustomerID, _ = paddleEvent.Data["customer_id"].(string)
		out.SubscriptionID, _ = paddleEvent.Data["subscription_id"].(string)
		return &Event{Type: EventCheckoutCompleted, ProviderEvent: paddleEvent.EventType, Checkout: out}, nil

	case "subscription.created", "subscription.updated", "subscription.resumed":
		return &Event{
			Type:          EventSubscriptionUpdated,
			ProviderEvent: paddleEvent.EventType,
			Subscription:  paddleSubscriptionChange(paddleEvent.Data),
		}, nil

	case "subscription.canceled":
		return &Event{
			Type:          EventSubscriptionDeleted,
			ProviderEvent: paddleEvent.EventType,
			Subscription:  paddleSubscriptionChange(paddleEvent.Data),
		}, nil

	default:
		return &Event{Type: EventType(paddleEvent.EventType), ProviderEvent: paddleEvent.EventType}, nil
	}
}

func (p *PaddleProvider) ResolveSubscription(ctx context.Context, providerSubID string) (*SubscriptionChange, error) {
	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: providerSubID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch paddle subscription: %w", err)
	}

	out := &SubscriptionChange{
		SubscriptionID: sub.ID,
		CustomerID:     sub.CustomerID,
		Status:         string(sub.Status),
	}
	if len(sub.Items) > 0 {
		out.PriceID = sub.Items[0].Price.ID
	}
	if sub.CurrentBillingPeriod != nil {
		if ts, err := time.Parse(time.RFC3339, sub.CurrentBillingPeriod.EndsAt); err == nil {
			out.CurrentPeriodEnd = ts.UTC()
		}
	}
	if sub.ScheduledChange != nil && sub.ScheduledChange.Action == paddle.ScheduledChangeActionCancel {
		out.CancelAtPeriodEnd = true
	}
	return out, nil
}

func paddleSubscriptionChange(data map[string]any) *SubscriptionChange {
	out := &SubscriptionChange{}
	out.SubscriptionID, _ = data["id"].(string)
	out.CustomerID, _ = data["customer_id"].(string)
	out.Status, _ = data["status"].(string)

	if items, ok := data["items"].([]any); ok && len(items) > 0 {
		if item, ok := items[0].(map[string]any); ok {
			if price, ok := item["price"].(map[string]any); ok {
				out.PriceID, _ = price["id"].(string)
			}
		}
	}
	if period, ok := data["current_billing_period"].(map[string]any); ok {
		if endsAt, ok := period["ends_at"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, endsAt); err == nil {
				out.CurrentPeriodEnd = ts.UTC()
			}
		}
	}
	if change, ok := data["scheduled_change"].(map[string]any); ok {
		if action, ok := change["action"].(string); ok && action == "cancel" {
			out.CancelAtPeriodEnd = true
		}
	}
	return out
}
