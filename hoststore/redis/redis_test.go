package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmorrow/formpay/pkg/checkout"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := New(client, DefaultConfig())
	require.NoError(t, err)
	return store, mr
}

func TestDraftLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.CreateDraft(ctx, &checkout.Draft{
		FormID:       "form_1",
		FeedID:       "feed_1",
		Continuation: "sealed-token",
		Values:       map[string]any{"email": "a@example.com"},
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	draft, err := store.GetDraft(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "form_1", draft.FormID)
	assert.Equal(t, "sealed-token", draft.Continuation)
	assert.Equal(t, "a@example.com", draft.Values["email"])

	require.NoError(t, store.DeleteDraft(ctx, token))
	_, err = store.GetDraft(ctx, token)
	assert.ErrorIs(t, err, checkout.ErrDraftNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, store.DeleteDraft(ctx, token))
}

func TestDraftExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	token, err := store.CreateDraft(ctx, &checkout.Draft{FormID: "form_1"})
	require.NoError(t, err)

	mr.FastForward(25 * time.Hour)
	_, err = store.GetDraft(ctx, token)
	assert.ErrorIs(t, err, checkout.ErrDraftNotFound, "abandoned drafts expire")
}

func TestEntryLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddEntry(ctx, &checkout.Entry{
		FormID:         "form_1",
		FeedID:         "feed_1",
		Total:          1000,
		Currency:       "usd",
		PaymentStatus:  "Processing",
		TransactionID:  "pi_1",
		SubscriptionID: "sub_1",
	})
	require.NoError(t, err)

	byIntent, err := store.FindEntryByTransaction(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, id, byIntent.ID)

	bySubscription, err := store.FindEntryByTransaction(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, id, bySubscription.ID)

	_, err = store.FindEntryByTransaction(ctx, "pi_unknown")
	assert.ErrorIs(t, err, checkout.ErrEntryNotFound)

	require.NoError(t, store.UpdatePaymentStatus(ctx, id, "Paid"))
	updated, err := store.FindEntryByTransaction(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "Paid", updated.PaymentStatus)
}

func TestEntryMetadata(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddEntry(ctx, &checkout.Entry{FormID: "form_1", TransactionID: "pi_1"})
	require.NoError(t, err)

	value, err := store.GetEntryMetadata(ctx, id, "last_event_id")
	require.NoError(t, err)
	assert.Empty(t, value, "missing metadata reads as empty")

	require.NoError(t, store.SetEntryMetadata(ctx, id, "last_event_id", "evt_1"))
	value, err = store.GetEntryMetadata(ctx, id, "last_event_id")
	require.NoError(t, err)
	assert.Equal(t, "evt_1", value)
}

func TestFinalizeEntry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.FinalizeEntry(ctx, "missing"), checkout.ErrEntryNotFound)

	id, err := store.AddEntry(ctx, &checkout.Entry{FormID: "form_1", TransactionID: "pi_1"})
	require.NoError(t, err)
	require.NoError(t, store.FinalizeEntry(ctx, id))

	stamp, err := store.GetEntryMetadata(ctx, id, "finalized_at")
	require.NoError(t, err)
	assert.NotEmpty(t, stamp)
}
