// Package firestore provides a Firestore implementation of the checkout
// draft store and entry store, for hosts running on Google Cloud.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cmorrow/formpay/pkg/checkout"
)

// Store implements checkout.DraftStore and checkout.EntryStore using
// Google Cloud Firestore.
type Store struct {
	client            *firestore.Client
	draftsCollection  string
	entriesCollection string
	draftTTL          time.Duration
}

// Config holds Firestore store configuration.
type Config struct {
	// DraftsCollection is the collection for pending drafts.
	// Default: "checkout_drafts"
	DraftsCollection string

	// EntriesCollection is the collection for finalized entries.
	// Default: "checkout_entries"
	EntriesCollection string

	// DraftTTL bounds how long an unresumed draft is returned by
	// GetDraft (default: 24h). Expired drafts read as not found.
	DraftTTL time.Duration
}

// New creates a new Firestore store adapter.
func New(client *firestore.Client, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}

	if config.DraftsCollection == "" {
		config.DraftsCollection = "checkout_drafts"
	}
	if config.EntriesCollection == "" {
		config.EntriesCollection = "checkout_entries"
	}
	if config.DraftTTL == 0 {
		config.DraftTTL = 24 * time.Hour
	}

	return &Store{
		client:            client,
		draftsCollection:  config.DraftsCollection,
		entriesCollection: config.EntriesCollection,
		draftTTL:          config.DraftTTL,
	}, nil
}

// CreateDraft implements checkout.DraftStore.
func (s *Store) CreateDraft(ctx context.Context, draft *checkout.Draft) (string, error) {
	token := draft.ResumeToken
	if token == "" {
		token = uuid.NewString()
	}
	createdAt := draft.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	doc := s.client.Collection(s.draftsCollection).Doc(token)
	_, err := doc.Set(ctx, map[string]interface{}{
		"formID":       draft.FormID,
		"feedID":       draft.FeedID,
		"continuation": draft.Continuation,
		"values":       draft.Values,
		"createdAt":    createdAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store draft: %w", err)
	}
	return token, nil
}

// GetDraft implements checkout.DraftStore. Drafts older than DraftTTL
// read as not found.
func (s *Store) GetDraft(ctx context.Context, resumeToken string) (*checkout.Draft, error) {
	doc := s.client.Collection(s.draftsCollection).Doc(resumeToken)
	snap, err := doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, checkout.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	if !snap.Exists() {
		return nil, checkout.ErrDraftNotFound
	}

	data := snap.Data()
	createdAt := getTime(data, "createdAt")
	if time.Since(createdAt) > s.draftTTL {
		return nil, checkout.ErrDraftNotFound
	}

	return &checkout.Draft{
		ResumeToken:  resumeToken,
		FormID:       getString(data, "formID"),
		FeedID:       getString(data, "feedID"),
		Continuation: getString(data, "continuation"),
		Values:       getMap(data, "values"),
		CreatedAt:    createdAt,
	}, nil
}

// DeleteDraft implements checkout.DraftStore. Deleting an absent draft
// is a no-op.
func (s *Store) DeleteDraft(ctx context.Context, resumeToken string) error {
	_, err := s.client.Collection(s.draftsCollection).Doc(resumeToken).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// AddEntry implements checkout.EntryStore.
func (s *Store) AddEntry(ctx context.Context, entry *checkout.Entry) (string, error) {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	doc := s.client.Collection(s.entriesCollection).Doc(id)
	_, err := doc.Set(ctx, map[string]interface{}{
		"formID":         entry.FormID,
		"feedID":         entry.FeedID,
		"total":          entry.Total,
		"currency":       entry.Currency,
		"paymentStatus":  entry.PaymentStatus,
		"transactionID":  entry.TransactionID,
		"subscriptionID": entry.SubscriptionID,
		"customerID":     entry.CustomerID,
		"metadata":       map[string]interface{}{},
		"createdAt":      time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store entry: %w", err)
	}
	return id, nil
}

// FinalizeEntry implements checkout.EntryStore, recording the
// finalization timestamp.
func (s *Store) FinalizeEntry(ctx context.Context, entryID string) error {
	doc := s.client.Collection(s.entriesCollection).Doc(entryID)
	_, err := doc.Update(ctx, []firestore.Update{
		{Path: "finalizedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return checkout.ErrEntryNotFound
		}
		return fmt.Errorf("failed to finalize entry: %w", err)
	}
	return nil
}

// UpdatePaymentStatus implements checkout.EntryStore.
func (s *Store) UpdatePaymentStatus(ctx context.Context, entryID, paymentStatus string) error {
	doc := s.client.Collection(s.entriesCollection).Doc(entryID)
	_, err := doc.Update(ctx, []firestore.Update{
		{Path: "paymentStatus", Value: paymentStatus},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return checkout.ErrEntryNotFound
		}
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return nil
}

// GetEntryMetadata implements checkout.EntryStore. A missing key reads
// as the empty string.
func (s *Store) GetEntryMetadata(ctx context.Context, entryID, key string) (string, error) {
	doc := s.client.Collection(s.entriesCollection).Doc(entryID)
	snap, err := doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to get entry: %w", err)
	}

	metadata := getMap(snap.Data(), "metadata")
	if value, ok := metadata[key].(string); ok {
		return value, nil
	}
	return "", nil
}

// SetEntryMetadata implements checkout.EntryStore.
func (s *Store) SetEntryMetadata(ctx context.Context, entryID, key, value string) error {
	doc := s.client.Collection(s.entriesCollection).Doc(entryID)
	_, err := doc.Update(ctx, []firestore.Update{
		{Path: "metadata." + key, Value: value},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return checkout.ErrEntryNotFound
		}
		return fmt.Errorf("failed to update entry metadata: %w", err)
	}
	return nil
}

// FindEntryByTransaction implements checkout.EntryStore, matching the
// entry's transaction or subscription identifier.
func (s *Store) FindEntryByTransaction(ctx context.Context, transactionID string) (*checkout.Entry, error) {
	for _, field := range []string{"transactionID", "subscriptionID"} {
		iter := s.client.Collection(s.entriesCollection).
			Where(field, "==", transactionID).
			Limit(1).
			Documents(ctx)
		snap, err := iter.Next()
		iter.Stop()
		if err == iterator.Done {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query entries: %w", err)
		}

		data := snap.Data()
		return &checkout.Entry{
			ID:             snap.Ref.ID,
			FormID:         getString(data, "formID"),
			FeedID:         getString(data, "feedID"),
			Total:          getInt64(data, "total"),
			Currency:       getString(data, "currency"),
			PaymentStatus:  getString(data, "paymentStatus"),
			TransactionID:  getString(data, "transactionID"),
			SubscriptionID: getString(data, "subscriptionID"),
			CustomerID:     getString(data, "customerID"),
		}, nil
	}
	return nil, checkout.ErrEntryNotFound
}

func getString(data map[string]interface{}, key string) string {
	if value, ok := data[key].(string); ok {
		return value
	}
	return ""
}

func getInt64(data map[string]interface{}, key string) int64 {
	switch value := data[key].(type) {
	case int64:
		return value
	case int:
		return int64(value)
	case float64:
		return int64(value)
	}
	return 0
}

func getTime(data map[string]interface{}, key string) time.Time {
	if value, ok := data[key].(time.Time); ok {
		return value
	}
	return time.Time{}
}

func getMap(data map[string]interface{}, key string) map[string]interface{} {
	if value, ok := data[key].(map[string]interface{}); ok {
		return value
	}
	return map[string]interface{}{}
}
