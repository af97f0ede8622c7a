package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notenibblers/notenibblers/pkg/billing"
)

func TestMemoryStore_UpsertQuizCountSemantics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := billing.NewMemoryStore()
	userID := uuid.New()

	rec, err := store.Upsert(ctx, billing.Record{
		UserID:        userID,
		PlanID:        "PRO",
		Status:        billing.StatusActive,
		ProviderSubID: "sub_1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, rec.QuizCount)

	_, err = store.ConsumeQuiz(ctx, userID, "PRO", billing.Unlimited)
	require.NoError(t, err)
	_, err = store.ConsumeQuiz(ctx, userID, "PRO", billing.Unlimited)
	require.NoError(t, err)

	// Same provider subscription: usage survives.
	rec, err = store.Upsert(ctx, billing.Record{
		UserID:        userID,
		PlanID:        "PRO",
		Status:        billing.StatusActive,
		ProviderSubID: "sub_1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, rec.QuizCount)

	// Different provider subscription: usage resets.
	rec, err = store.Upsert(ctx, billing.Record{
		UserID:        userID,
		PlanID:        "PRO",
		Status:        billing.StatusActive,
		ProviderSubID: "sub_2",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, rec.QuizCount)
}

func TestMemoryStore_UpsertKeepsCustomerID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := billing.NewMemoryStore()
	userID := uuid.New()

	require.NoError(t, store.SetProviderCustomerID(ctx, userID, "FREE", "cus_1"))

	rec, err := store.Upsert(ctx, billing.Record{
		UserID:        userID,
		PlanID:        "PRO",
		Status:        billing.StatusActive,
		ProviderSubID: "sub_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_1", rec.ProviderCustomerID, "empty customer id must not clobber the stored one")
}

func TestMemoryStore_ConsumeQuiz(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := billing.NewMemoryStore()
	userID := uuid.New()

	// Creates the record on first use.
	count, err := store.ConsumeQuiz(ctx, userID, "FREE", 3)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	rec, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "FREE", rec.PlanID)

	_, err = store.ConsumeQuiz(ctx, userID, "FREE", 3)
	require.NoError(t, err)
	count, err = store.ConsumeQuiz(ctx, userID, "FREE", 3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	_, err = store.ConsumeQuiz(ctx, userID, "FREE", 3)
	assert.ErrorIs(t, err, billing.ErrQuotaExceeded)

	// Failed consumption must not move the counter.
	rec, err = store.Get(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, rec.QuizCount)

	// Zero limit denies even the creating insert.
	_, err = store.ConsumeQuiz(ctx, uuid.New(), "FREE", 0)
	assert.ErrorIs(t, err, billing.ErrQuotaExceeded)
}

func TestMemoryStore_SubscriptionIDLookups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := billing.NewMemoryStore()
	userID := uuid.New()

	_, err := store.GetBySubscriptionID(ctx, "sub_1")
	assert.ErrorIs(t, err, billing.ErrRecordNotFound)

	_, err = store.Upsert(ctx, billing.Record{
		UserID:        userID,
		PlanID:        "PRO",
		Status:        billing.StatusActive,
		ProviderSubID: "sub_1",
	})
	require.NoError(t, err)

	rec, err := store.GetBySubscriptionID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, userID, rec.UserID)

	periodEnd := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	rec, err = store.UpdateBySubscriptionID(ctx, "sub_1", "PRO", billing.StatusCanceling, periodEnd)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceling, rec.Status)
	assert.Equal(t, periodEnd, rec.CurrentPeriodEnd)

	rec, err = store.SetStatusBySubscriptionID(ctx, "sub_1", billing.StatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceled, rec.Status)

	_, err = store.UpdateBySubscriptionID(ctx, "sub_other", "PRO", billing.StatusActive, time.Time{})
	assert.ErrorIs(t, err, billing.ErrRecordNotFound)

	// Records without a provider subscription are never matched by the
	// empty string.
	require.NoError(t, store.SetProviderCustomerID(ctx, uuid.New(), "FREE", "cus_9"))
	_, err = store.GetBySubscriptionID(ctx, "")
	assert.ErrorIs(t, err, billing.ErrRecordNotFound)
}
