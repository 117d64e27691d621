//go:build integration
// +build integration

package firestore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmorrow/formpay/pkg/checkout"
)

const testProjectID = "test-project"

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "localhost:8080")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, testProjectID)
	if err != nil {
		t.Skipf("Skipping test: failed to connect to Firestore emulator: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	// Unique collections per run keep tests independent.
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	store, err := New(client, Config{
		DraftsCollection:  "test_drafts_" + suffix,
		EntriesCollection: "test_entries_" + suffix,
	})
	require.NoError(t, err)
	return store
}

func TestDraftLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	token, err := store.CreateDraft(ctx, &checkout.Draft{
		FormID:       "form_1",
		FeedID:       "feed_1",
		Continuation: "sealed-token",
		Values:       map[string]any{"email": "a@example.com"},
	})
	require.NoError(t, err)

	draft, err := store.GetDraft(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "form_1", draft.FormID)
	assert.Equal(t, "sealed-token", draft.Continuation)

	require.NoError(t, store.DeleteDraft(ctx, token))
	_, err = store.GetDraft(ctx, token)
	assert.ErrorIs(t, err, checkout.ErrDraftNotFound)
	assert.NoError(t, store.DeleteDraft(ctx, token))
}

func TestEntryLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id, err := store.AddEntry(ctx, &checkout.Entry{
		FormID:         "form_1",
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

	require.NoError(t, store.UpdatePaymentStatus(ctx, id, "Paid"))
	require.NoError(t, store.SetEntryMetadata(ctx, id, "last_event_id", "evt_1"))

	value, err := store.GetEntryMetadata(ctx, id, "last_event_id")
	require.NoError(t, err)
	assert.Equal(t, "evt_1", value)

	require.NoError(t, store.FinalizeEntry(ctx, id))
	assert.ErrorIs(t, store.FinalizeEntry(ctx, "missing"), checkout.ErrEntryNotFound)
}
