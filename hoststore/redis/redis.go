// Package redis provides a Redis-backed implementation of the checkout
// draft store and entry store, for hosts that want a ready-made
// persistence shim instead of wiring their own platform storage.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cmorrow/formpay/pkg/checkout"
)

// Store implements checkout.DraftStore and checkout.EntryStore using
// Redis.
type Store struct {
	client redis.UniversalClient
	config Config
}

// Config holds Redis store configuration.
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "formpay:").
	KeyPrefix string

	// DraftTTL bounds how long an unresumed draft survives
	// (default: 24h). Abandoned checkouts expire instead of
	// accumulating.
	DraftTTL time.Duration

	// EntryTTL is the TTL for entry keys (0 = no expiration).
	EntryTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "formpay:",
		DraftTTL:  24 * time.Hour,
	}
}

// New creates a new Redis store adapter.
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring.
func New(client redis.UniversalClient, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "formpay:"
	}
	if config.DraftTTL == 0 {
		config.DraftTTL = 24 * time.Hour
	}
	return &Store{client: client, config: config}, nil
}

func (s *Store) draftKey(token string) string {
	return s.config.KeyPrefix + "draft:" + token
}

func (s *Store) entryKey(id string) string {
	return s.config.KeyPrefix + "entry:" + id
}

func (s *Store) entryMetaKey(id string) string {
	return s.config.KeyPrefix + "entry:" + id + ":meta"
}

func (s *Store) transactionKey(transactionID string) string {
	return s.config.KeyPrefix + "txn:" + transactionID
}

// CreateDraft implements checkout.DraftStore.
func (s *Store) CreateDraft(ctx context.Context, draft *checkout.Draft) (string, error) {
	token := draft.ResumeToken
	if token == "" {
		token = uuid.NewString()
	}
	stored := *draft
	stored.ResumeToken = token

	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("redis: marshaling draft: %w", err)
	}
	if err := s.client.Set(ctx, s.draftKey(token), data, s.config.DraftTTL).Err(); err != nil {
		return "", fmt.Errorf("redis: storing draft: %w", err)
	}
	return token, nil
}

// GetDraft implements checkout.DraftStore.
func (s *Store) GetDraft(ctx context.Context, resumeToken string) (*checkout.Draft, error) {
	data, err := s.client.Get(ctx, s.draftKey(resumeToken)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: reading draft: %w", err)
	}
	var draft checkout.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("redis: unmarshaling draft: %w", err)
	}
	return &draft, nil
}

// DeleteDraft implements checkout.DraftStore. Deleting an absent draft
// is a no-op.
func (s *Store) DeleteDraft(ctx context.Context, resumeToken string) error {
	if err := s.client.Del(ctx, s.draftKey(resumeToken)).Err(); err != nil {
		return fmt.Errorf("redis: deleting draft: %w", err)
	}
	return nil
}

// AddEntry implements checkout.EntryStore.
func (s *Store) AddEntry(ctx context.Context, entry *checkout.Entry) (string, error) {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	stored := *entry
	stored.ID = id

	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("redis: marshaling entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.entryKey(id), data, s.config.EntryTTL)
	if stored.TransactionID != "" {
		pipe.Set(ctx, s.transactionKey(stored.TransactionID), id, s.config.EntryTTL)
	}
	if stored.SubscriptionID != "" {
		pipe.Set(ctx, s.transactionKey(stored.SubscriptionID), id, s.config.EntryTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("redis: storing entry: %w", err)
	}
	return id, nil
}

func (s *Store) getEntry(ctx context.Context, entryID string) (*checkout.Entry, error) {
	data, err := s.client.Get(ctx, s.entryKey(entryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: reading entry: %w", err)
	}
	var entry checkout.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("redis: unmarshaling entry: %w", err)
	}
	return &entry, nil
}

// FinalizeEntry implements checkout.EntryStore. The Redis shim has no
// post-processing pipeline of its own; it records the finalization
// timestamp so hosts layering on top can observe it.
func (s *Store) FinalizeEntry(ctx context.Context, entryID string) error {
	if _, err := s.getEntry(ctx, entryID); err != nil {
		return err
	}
	return s.SetEntryMetadata(ctx, entryID, "finalized_at", time.Now().UTC().Format(time.RFC3339))
}

// UpdatePaymentStatus implements checkout.EntryStore.
func (s *Store) UpdatePaymentStatus(ctx context.Context, entryID, status string) error {
	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return err
	}
	entry.PaymentStatus = status
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshaling entry: %w", err)
	}
	if err := s.client.Set(ctx, s.entryKey(entryID), data, s.config.EntryTTL).Err(); err != nil {
		return fmt.Errorf("redis: storing entry: %w", err)
	}
	return nil
}

// GetEntryMetadata implements checkout.EntryStore. A missing key reads
// as the empty string.
func (s *Store) GetEntryMetadata(ctx context.Context, entryID, key string) (string, error) {
	value, err := s.client.HGet(ctx, s.entryMetaKey(entryID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis: reading entry metadata: %w", err)
	}
	return value, nil
}

// SetEntryMetadata implements checkout.EntryStore.
func (s *Store) SetEntryMetadata(ctx context.Context, entryID, key, value string) error {
	if err := s.client.HSet(ctx, s.entryMetaKey(entryID), key, value).Err(); err != nil {
		return fmt.Errorf("redis: writing entry metadata: %w", err)
	}
	return nil
}

// FindEntryByTransaction implements checkout.EntryStore using the
// reverse index written by AddEntry.
func (s *Store) FindEntryByTransaction(ctx context.Context, transactionID string) (*checkout.Entry, error) {
	entryID, err := s.client.Get(ctx, s.transactionKey(transactionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: resolving transaction: %w", err)
	}
	return s.getEntry(ctx, entryID)
}
