package billing_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/notenibblers/notenibblers/pkg/billing"
	"github.com/notenibblers/notenibblers/pkg/profile"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) EnsureCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	args := m.Called(ctx, userID, email)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

func (m *mockProvider) CancelAtPeriodEnd(ctx context.Context, providerSubID string) (time.Time, error) {
	args := m.Called(ctx, providerSubID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

func (m *mockProvider) ResolveSubscription(ctx context.Context, providerSubID string) (*billing.SubscriptionChange, error) {
	args := m.Called(ctx, providerSubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionChange), args.Error(1)
}

// fakeProfiles is an in-memory profile.Store with the same admin guard as
// the real one, so role transitions can be asserted directly.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*profile.Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[uuid.UUID]*profile.Profile)}
}

func (f *fakeProfiles) add(userID uuid.UUID, email string, role profile.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[userID] = &profile.Profile{ID: userID, Email: email, Role: role}
}

func (f *fakeProfiles) role(userID uuid.UUID) profile.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID].Role
}

func (f *fakeProfiles) Get(_ context.Context, userID uuid.UUID) (*profile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Ensure(_ context.Context, userID uuid.UUID, email, fullName string) (*profile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	p := &profile.Profile{ID: userID, Email: email, FullName: fullName, Role: profile.RoleFree}
	f.profiles[userID] = p
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) SetRole(_ context.Context, userID uuid.UUID, role profile.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return profile.ErrNotFound
	}
	if p.Role == profile.RoleAdmin {
		return nil
	}
	p.Role = role
	return nil
}

func (f *fakeProfiles) Delete(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.profiles, userID)
	return nil
}

const proPriceID = "price_pro_test"

func newTestService(t *testing.T, provider billing.Provider, records billing.RecordStore, profiles profile.Store, opts ...billing.Option) *billing.Service {
	t.Helper()
	catalog, err := billing.NewCatalog(billing.DefaultPlans(proPriceID)...)
	require.NoError(t, err)
	return billing.NewService(catalog, provider, records, profiles, opts...)
}

func checkoutEvent(userID uuid.UUID, subID string) *billing.Event {
	return &billing.Event{
		Type:          billing.EventCheckoutCompleted,
		ProviderEvent: "checkout.session.completed",
		Checkout: &billing.CheckoutCompleted{
			UserRef:        userID.String(),
			CustomerID:     "cus_123",
			SubscriptionID: subID,
		},
	}
}

func proState(subID string) *billing.SubscriptionChange {
	return &billing.SubscriptionChange{
		SubscriptionID:   subID,
		CustomerID:       "cus_123",
		PriceID:          proPriceID,
		Status:           "active",
		CurrentPeriodEnd: time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second),
	}
}

func TestHandleWebhook_CheckoutCompleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	provider := new(mockProvider)
	records := billing.NewMemoryStore()
	profiles := newFakeProfiles()
	profiles.add(userID, "user@example.com", profile.RoleFree)
	svc := newTestService(t, provider, records, profiles)

	payload := []byte(`{"type":"checkout.session.completed"}`)
	provider.On("ParseWebhook", ctx, payload, "sig").Return(checkoutEvent(userID, "sub_1"), nil)
	provider.On("ResolveSubscription", ctx, "sub_1").Return(proState("sub_1"), nil)

	require.NoError(t, svc.HandleWebhook(ctx, payload, "sig"))

	rec, err := records.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "PRO", rec.PlanID)
	assert.Equal(t, billing.StatusActive, rec.Status)
	assert.Equal(t, "cus_123", rec.ProviderCustomerID)
	assert.Equal(t, "sub_1", rec.ProviderSubID)
	assert.Equal(t, profile.RolePro, profiles.role(userID))
}

func TestHandleWebhook_ReplayPreservesUsage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	provider := new(mockProvider)
	records := billing.NewMemoryStore()
	profiles := newFakeProfiles()
	profiles.add(userID, "user@example.com", profile.RoleFree)
	svc := newTestService(t, provider, records, profiles)

	payload := []byte(`{"type":"checkout.session.completed"}`)
	provider.On("ParseWebhook", ctx, payload, "sig").Return(checkoutEvent(userID, "sub_1"), nil)
	provider.On("ResolveSubscription", ctx, "sub_1").Return(proState("sub_1"), nil)

	require.NoError(t, svc.HandleWebhook(ctx, payload, "sig"))

	// Spend some quota, then replay the exact same delivery.
	used, _, err := svc.ConsumeQuiz(ctx, userID)
	require.NoError(t, err)
	require.EqualValues(t, 1, used)

	require.NoError(t, svc.HandleWebhook(ctx, payload, "sig"))

	rec, err := records.Get(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rec.QuizCount, "replay must not reset usage")

	// A different subscription taking over the row resets usage.
	payload2 := []byte(`{"type":"checkout.session.completed","id":"evt_2"}`)
	provider.On("ParseWebhook", ctx, payload2, "sig").Return(checkoutEvent(userID, "sub_2"), nil)
	provider.On("ResolveSubscription", ctx, "sub_2").Return(proState("sub_2"), nil)

	require.NoError(t, svc.HandleWebhook(ctx, payload2, "sig"))

	rec, err = records.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "sub_2", rec.ProviderSubID)
	assert.EqualValues(t, 0, rec.QuizCount, "new subscription starts with fresh usage")
}

func TestHandleWebhook_UnknownPriceAcknowledged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	provider := new(mockProvider)
	records := billing.NewMemoryStore()
	profiles := newFakeProfiles()
	profiles.add(userID, "user@example.com", profile.RoleFree)
	svc := newTestService(t, provider, records, profiles)

	payload := []byte(`{"type":"checkout.session.completed"}`)
	state := proState("sub_1")
	state.PriceID = "price_from_other_env"
	provider.On("ParseWebhook", ctx, payload, "sig").Return(checkoutEvent(userID, "sub_1"), nil)
	provider.On("ResolveSubscription", ctx, "sub_1").Return(state, nil)

	// Unknown price references are dropped, not retried.
	require.NoError(t, svc.HandleWebhook(ctx, payload, "sig"))

	_, err := records.Get(ctx, userID)
	assert.ErrorIs(t, err, billing.ErrRecordNotFound)
	assert.Equal(t, profile.RoleFree, profiles.role(userID))
}

func TestHandleWebhook_InvalidSignatureNoMutation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	provider := new(mockProvider)
	records := billing.NewMemoryStore()
	profiles := newFakeProfiles()
	profiles.add(userID, "user@example.com", profile.RoleFree)
	svc := newTestService(t, provider, records, profiles)

	payload := []byte(`{"type":"checkout.session.completed"}`)
	provider.On("ParseWebhook", ctx, payload, "bad").Return(nil, billing.ErrInvalidSignature)

	err := svc.HandleWebhook(ctx, payload, "bad")
	require.ErrorIs(t, err, billing.ErrInvalidSignature)

	_, err = records.Get(ctx, userID)
	assert.ErrorIs(t, err, billing.ErrRecordNotFound)
	assert.Equal(t, profile.RoleFree, profiles.role(userID))
	provider.AssertNotCalled(t, "ResolveSubscription", mock.Anything, mock.Anything)
}

func TestHandleWebhook_SubscriptionDeleted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		prior      billing.Status
		wantStatus billing.Status
	}{
		{name: "scheduled cancellation completes", prior: billing.StatusCanceling, wantStatus: billing.StatusCanceled},
		{name: "unexpected termination", prior: billing.StatusActive, wantStatus: billing.StatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			userID := uuid.New()
			provider := new(mockProvider)
			records := billing.NewMemoryStore()
			profiles := newFakeProfiles()
			profiles.add(userID, "user@example.com", profile.RolePro)
			svc := newTestService(t, provider, records, profiles)

			_, err := records.Upsert(ctx, billing.Record{
				UserID:        userID,
				PlanID:        "PRO",
				Status:        tt.prior,
				ProviderSubID: "sub_1",
			})
			require.NoError(t, err)

			payload := []byte(`{"type":"customer.subscription.deleted"}`)
			provider.On("ParseWebhook", ctx, payload, "sig").Return(&billing.Event{
				Type:          billing.EventSubscriptionDeleted,
				ProviderEvent: "customer.subscription.deleted",
				Subscription:  &billing.SubscriptionChange{SubscriptionID: "sub_1", Status: "canceled"},
			}, nil)

			require.NoError(t, svc.HandleWebhook(ctx, payload, "sig"))

			rec, err := records.Get(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, profile.RoleFree, profiles.role(userID))
		})
	}
}

func TestHandleWebhook_DeletedUnknownSubscriptionAcknowledged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := new(mockProvider)
	svc := newTestService(t, provider, billing.NewMemoryStore(), newFakeProfiles())

	payload := []byte(`{"type":"customer.subscription.deleted"}`)
	provider.On("ParseWebhook", ctx, payload, "sig").Return(&billing.Event{
		Type:         billing.EventSubscriptionDeleted,
		Subscription: &billing.SubscriptionChange{SubscriptionID: "sub_ghost"},
	}, nil)

	assert.NoError(t, svc.HandleWebhook(ctx, payload, "sig"))
}

func TestHandleWebhook_SubscriptionUpdated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	provider := new(mockProvider)
	records := billing.NewMemoryStore()
	profiles := newFakeProfiles()
	profiles.add(userID, "user@example.com", profile.RolePro)
	svc := newTestService(t, provider, records, profiles)

	_, err := records.Upsert(ctx, billing.Record{
		UserID:        userID,
		PlanID:        "PRO",
		Status:        billing.StatusActive,
		ProviderSubID: "sub_1",
	})
	require.NoError(t, err)

	periodEnd := time.Now().Add(10 * 24 * time.Hour).UTC().Truncate(time.Second)
	payload := []byte(`{"type":"customer.subscription.updated"}`)
	provider.On("ParseWebhook", ctx, payload, "sig").Return(&billing.Event{
		Type:          billing.EventSubscriptionUpdated,
		ProviderEvent: "customer.subscription.updated",
		Subscription: &billing.SubscriptionChange{
			SubscriptionID:    "sub_1",
			PriceID:           proPriceID,
			Status:            "active",
			CancelAtPeriodEnd: true,
			CurrentPeriodEnd:  periodEnd,
		},
	}, nil)

	require.NoError(t, svc.HandleWebhook(ctx, payload, "sig"))

	rec, err := records.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceling, rec.Status)
	assert.Equal(t, periodEnd, rec.CurrentPeriodEnd)
	// Default policy keeps paid access until the provider ends the term.
	assert.Equal(t, profile.RolePro, profiles.role(userID))
}

func TestHandleWebhook_UpdateBeforeCheckoutRetried(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := new(mockProvider)
	svc := newTestService(t, provider, billing.NewMemoryStore(), newFakeProfiles())

	payload := []byte(`{"type":"customer.subscription.updated"}`)
	provider.On("ParseWebhook", ctx, payload, "sig").Return(&billing.Event{
		Type: billing.EventSubscriptionUpdated,
		Subscription: &billing.SubscriptionChange{
			SubscriptionID: "sub_unseen",
			PriceID:        proPriceID,
			Status:         "active",
		},
	}, nil)

	// Out-of-order delivery: fail so the provider redelivers after the
	// checkout event lands.
	err := svc.HandleWebhook(ctx, payload, "sig")
	assert.ErrorIs(t, err, billing.ErrRecordNotFound)
}

func TestHandleWebhook_UnrecognizedEventAcknowledged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := new(mockProvider)
	svc := newTestService(t, provider, billing.NewMemoryStore(), newFakeProfiles())

	payload := []byte(`{"type":"invoice.paid"}`)
	provider.On("ParseWebhook", ctx, payload, "sig").Return(&billing.Event{
		Type:          billing.EventType("invoice.paid"),
		ProviderEvent: "invoice.paid",
	}, nil)

	assert.NoError(t, svc.HandleWebhook(ctx, payload, "sig"))
}

func TestHandleWebhook_AdminRoleSurvivesReconciliation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	provider := new(mockProvider)
	records := billing.NewMemoryStore()
	profiles := newFakeProfiles()
	profiles.add(userID, "admin@example.com", profile.RoleAdmin)
	svc := newTestService(t, provider, records, profiles)

	payload := []byte(`{"type":"checkout.session.completed"}`)
	provider.On("ParseWebhook", ctx, payload, "sig").Return(checkoutEvent(userID, "sub_1"), nil)
	provider.On("ResolveSubscription", ctx, "sub_1").Return(proState("sub_1"), nil)

	require.NoError(t, svc.HandleWebhook(ctx, payload, "sig"))
	assert.Equal(t, profile.RoleAdmin, profiles.role(userID))
}

func TestStartCheckout(t *testing.T) {
	t.Parallel()

	t.Run("creates customer and session on first checkout", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		userID := uuid.New()
		provider := new(mockProvider)
		records := billing.NewMemoryStore()
		profiles := newFakeProfiles()
		profiles.add(userID, "user@example.com", profile.RoleFree)
		svc := newTestService(t, provider, records, profiles,
			billing.WithCheckoutURLs("https://app.test/billing?status=success", "https://app.test/pricing"))

		provider.On("EnsureCustomer", ctx, userID, "user@example.com").Return("cus_new", nil)
		provider.On("CreateCheckoutSession", ctx, mock.MatchedBy(func(req billing.CheckoutRequest) bool {
			return req.UserID == userID && req.CustomerID == "cus_new" && req.PriceID == proPriceID
		})).Return(&billing.CheckoutSession{SessionID: "cs_1", URL: "https://checkout.test/cs_1"}, nil)

		sess, err := svc.StartCheckout(ctx, userID, "PRO")
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.test/cs_1", sess.URL)

		rec, err := records.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "cus_new", rec.ProviderCustomerID)
	})

	t.Run("rejects duplicate subscription without provider call", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		userID := uuid.New()
		provider := new(mockProvider)
		records := billing.NewMemoryStore()
		profiles := newFakeProfiles()
		profiles.add(userID, "user@example.com", profile.RolePro)
		svc := newTestService(t, provider, records, profiles)

		_, err := records.Upsert(ctx, billing.Record{
			UserID:        userID,
			PlanID:        "PRO",
			Status:        billing.StatusActive,
			ProviderSubID: "sub_1",
		})
		require.NoError(t, err)

		_, err = svc.StartCheckout(ctx, userID, "PRO")
		assert.ErrorIs(t, err, billing.ErrAlreadySubscribed)
		provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	})

	t.Run("rejects free plan", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		userID := uuid.New()
		profiles := newFakeProfiles()
		profiles.add(userID, "user@example.com", profile.RoleFree)
		svc := newTestService(t, new(mockProvider), billing.NewMemoryStore(), profiles)

		_, err := svc.StartCheckout(ctx, userID, "FREE")
		assert.ErrorIs(t, err, billing.ErrInvalidPlan)
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		svc := newTestService(t, new(mockProvider), billing.NewMemoryStore(), newFakeProfiles())

		_, err := svc.StartCheckout(ctx, uuid.New(), "ENTERPRISE")
		assert.ErrorIs(t, err, billing.ErrInvalidPlan)
	})
}

func TestCancelSubscription(t *testing.T) {
	t.Parallel()

	t.Run("schedules cancellation and demotes immediately", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		userID := uuid.New()
		provider := new(mockProvider)
		records := billing.NewMemoryStore()
		profiles := newFakeProfiles()
		profiles.add(userID, "user@example.com", profile.RolePro)
		svc := newTestService(t, provider, records, profiles, billing.WithDemoteOnCancel(true))

		_, err := records.Upsert(ctx, billing.Record{
			UserID:        userID,
			PlanID:        "PRO",
			Status:        billing.StatusActive,
			ProviderSubID: "sub_1",
		})
		require.NoError(t, err)

		periodEnd := time.Now().Add(20 * 24 * time.Hour).UTC().Truncate(time.Second)
		provider.On("CancelAtPeriodEnd", ctx, "sub_1").Return(periodEnd, nil)

		effectiveAt, err := svc.CancelSubscription(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, periodEnd, effectiveAt)

		rec, err := records.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusCanceling, rec.Status)
		assert.Equal(t, profile.RoleFree, profiles.role(userID))
	})

	t.Run("no active subscription", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		userID := uuid.New()
		profiles := newFakeProfiles()
		profiles.add(userID, "user@example.com", profile.RoleFree)
		svc := newTestService(t, new(mockProvider), billing.NewMemoryStore(), profiles)

		_, err := svc.CancelSubscription(ctx, userID)
		assert.ErrorIs(t, err, billing.ErrNoActiveSubscription)
	})

	t.Run("canceling subscription cannot be canceled again", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		userID := uuid.New()
		records := billing.NewMemoryStore()
		profiles := newFakeProfiles()
		profiles.add(userID, "user@example.com", profile.RolePro)
		svc := newTestService(t, new(mockProvider), records, profiles)

		_, err := records.Upsert(ctx, billing.Record{
			UserID:        userID,
			PlanID:        "PRO",
			Status:        billing.StatusCanceling,
			ProviderSubID: "sub_1",
		})
		require.NoError(t, err)

		_, err = svc.CancelSubscription(ctx, userID)
		assert.ErrorIs(t, err, billing.ErrNoActiveSubscription)
	})
}

func TestCheckEntitlement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name      string
		role      profile.Role
		used      int64
		action    billing.Action
		wantAllow bool
	}{
		{name: "free under quota generates", role: profile.RoleFree, used: 2, action: billing.ActionGenerateQuiz, wantAllow: true},
		{name: "free at quota denied", role: profile.RoleFree, used: 3, action: billing.ActionGenerateQuiz, wantAllow: false},
		{name: "free at quota still views dashboard", role: profile.RoleFree, used: 3, action: billing.ActionViewDashboard, wantAllow: true},
		{name: "pro unlimited", role: profile.RolePro, used: 100, action: billing.ActionGenerateQuiz, wantAllow: true},
		{name: "admin unlimited", role: profile.RoleAdmin, used: 100, action: billing.ActionGenerateQuiz, wantAllow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			userID := uuid.New()
			records := billing.NewMemoryStore()
			profiles := newFakeProfiles()
			profiles.add(userID, "user@example.com", tt.role)
			svc := newTestService(t, new(mockProvider), records, profiles)

			for range tt.used {
				_, err := records.ConsumeQuiz(ctx, userID, "FREE", billing.Unlimited)
				require.NoError(t, err)
			}

			decision, err := svc.CheckEntitlement(ctx, userID, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllow, decision.Allowed)
			if !tt.wantAllow {
				assert.Equal(t, billing.ReasonQuotaExceeded, decision.Reason)
				assert.Equal(t, billing.RedirectPricing, decision.RedirectHint)
			}
		})
	}
}

// failingRecordStore simulates a subscription store outage.
type failingRecordStore struct {
	*billing.MemoryStore
}

func (f *failingRecordStore) Get(_ context.Context, _ uuid.UUID) (*billing.Record, error) {
	return nil, billing.ErrPersistence
}

func TestCheckEntitlement_RecordStoreFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	profiles := newFakeProfiles()
	profiles.add(userID, "user@example.com", profile.RolePro)

	var buf bytes.Buffer
	svc := newTestService(t, new(mockProvider), &failingRecordStore{billing.NewMemoryStore()}, profiles,
		billing.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	// Paid access survives the outage; the failure is logged, not swallowed.
	decision, err := svc.CheckEntitlement(ctx, userID, billing.ActionGenerateQuiz)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Contains(t, buf.String(), "failed to read quiz count")
}

func TestConsumeQuiz(t *testing.T) {
	t.Parallel()

	t.Run("free plan quota enforced", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		userID := uuid.New()
		profiles := newFakeProfiles()
		profiles.add(userID, "user@example.com", profile.RoleFree)
		svc := newTestService(t, new(mockProvider), billing.NewMemoryStore(), profiles)

		for i := int64(1); i <= 3; i++ {
			used, limit, err := svc.ConsumeQuiz(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, i, used)
			assert.EqualValues(t, 3, limit)
		}

		_, _, err := svc.ConsumeQuiz(ctx, userID)
		assert.ErrorIs(t, err, billing.ErrQuotaExceeded)
	})

	t.Run("pro has no quota", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		userID := uuid.New()
		profiles := newFakeProfiles()
		profiles.add(userID, "user@example.com", profile.RolePro)
		svc := newTestService(t, new(mockProvider), billing.NewMemoryStore(), profiles)

		for i := int64(1); i <= 10; i++ {
			used, limit, err := svc.ConsumeQuiz(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, i, used)
			assert.Equal(t, billing.Unlimited, limit)
		}
	})
}

func TestGetSubscription_DefaultsToFree(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	svc := newTestService(t, new(mockProvider), billing.NewMemoryStore(), newFakeProfiles())

	rec, plan, err := svc.GetSubscription(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "FREE", plan.ID)
	assert.Equal(t, billing.StatusActive, rec.Status)
	assert.EqualValues(t, 0, rec.QuizCount)
}
