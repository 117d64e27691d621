// Package postgres provides a PostgreSQL-backed implementation of the
// checkout draft store and entry store using pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cmorrow/formpay/pkg/checkout"
)

// Store implements checkout.DraftStore and checkout.EntryStore using
// PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	config Config
}

// Config holds PostgreSQL store configuration.
type Config struct {
	// ConnectionString is the PostgreSQL connection string.
	ConnectionString string

	// Pool configuration.
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration

	// DraftTTL bounds how long an unresumed draft is returned by
	// GetDraft (default: 24h). Expired drafts read as not found.
	DraftTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		DraftTTL:        24 * time.Hour,
	}
}

// New creates a new PostgreSQL store adapter and ensures the schema
// exists.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if config.DraftTTL == 0 {
		config.DraftTTL = 24 * time.Hour
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	s := &Store{pool: pool, config: config}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS checkout_drafts (
			resume_token TEXT PRIMARY KEY,
			form_id      TEXT NOT NULL,
			feed_id      TEXT NOT NULL,
			continuation TEXT NOT NULL,
			field_values JSONB NOT NULL DEFAULT '{}',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS checkout_entries (
			id              TEXT PRIMARY KEY,
			form_id         TEXT NOT NULL,
			feed_id         TEXT NOT NULL,
			total           BIGINT NOT NULL DEFAULT 0,
			currency        TEXT NOT NULL DEFAULT '',
			payment_status  TEXT NOT NULL DEFAULT '',
			transaction_id  TEXT NOT NULL DEFAULT '',
			subscription_id TEXT NOT NULL DEFAULT '',
			customer_id     TEXT NOT NULL DEFAULT '',
			finalized_at    TIMESTAMPTZ,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS checkout_entries_transaction_idx
			ON checkout_entries (transaction_id);
		CREATE INDEX IF NOT EXISTS checkout_entries_subscription_idx
			ON checkout_entries (subscription_id);

		CREATE TABLE IF NOT EXISTS checkout_entry_meta (
			entry_id TEXT NOT NULL,
			key      TEXT NOT NULL,
			value    TEXT NOT NULL,
			PRIMARY KEY (entry_id, key)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateDraft implements checkout.DraftStore.
func (s *Store) CreateDraft(ctx context.Context, draft *checkout.Draft) (string, error) {
	token := draft.ResumeToken
	if token == "" {
		token = uuid.NewString()
	}
	values, err := json.Marshal(draft.Values)
	if err != nil {
		return "", fmt.Errorf("postgres: marshaling draft values: %w", err)
	}
	createdAt := draft.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO checkout_drafts (resume_token, form_id, feed_id, continuation, field_values, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		token, draft.FormID, draft.FeedID, draft.Continuation, values, createdAt)
	if err != nil {
		return "", fmt.Errorf("postgres: storing draft: %w", err)
	}
	return token, nil
}

// GetDraft implements checkout.DraftStore. Drafts older than DraftTTL
// read as not found.
func (s *Store) GetDraft(ctx context.Context, resumeToken string) (*checkout.Draft, error) {
	var (
		draft  checkout.Draft
		values []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT resume_token, form_id, feed_id, continuation, field_values, created_at
		FROM checkout_drafts
		WHERE resume_token = $1 AND created_at > $2`,
		resumeToken, time.Now().UTC().Add(-s.config.DraftTTL)).
		Scan(&draft.ResumeToken, &draft.FormID, &draft.FeedID, &draft.Continuation, &values, &draft.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, checkout.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: reading draft: %w", err)
	}
	if err := json.Unmarshal(values, &draft.Values); err != nil {
		return nil, fmt.Errorf("postgres: unmarshaling draft values: %w", err)
	}
	return &draft, nil
}

// DeleteDraft implements checkout.DraftStore. Deleting an absent draft
// is a no-op.
func (s *Store) DeleteDraft(ctx context.Context, resumeToken string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM checkout_drafts WHERE resume_token = $1`, resumeToken)
	if err != nil {
		return fmt.Errorf("postgres: deleting draft: %w", err)
	}
	return nil
}

// AddEntry implements checkout.EntryStore.
func (s *Store) AddEntry(ctx context.Context, entry *checkout.Entry) (string, error) {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO checkout_entries (id, form_id, feed_id, total, currency, payment_status, transaction_id, subscription_id, customer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, entry.FormID, entry.FeedID, entry.Total, entry.Currency,
		entry.PaymentStatus, entry.TransactionID, entry.SubscriptionID, entry.CustomerID)
	if err != nil {
		return "", fmt.Errorf("postgres: storing entry: %w", err)
	}
	return id, nil
}

// FinalizeEntry implements checkout.EntryStore, recording the
// finalization timestamp.
func (s *Store) FinalizeEntry(ctx context.Context, entryID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE checkout_entries SET finalized_at = now() WHERE id = $1`, entryID)
	if err != nil {
		return fmt.Errorf("postgres: finalizing entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return checkout.ErrEntryNotFound
	}
	return nil
}

// UpdatePaymentStatus implements checkout.EntryStore.
func (s *Store) UpdatePaymentStatus(ctx context.Context, entryID, status string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE checkout_entries SET payment_status = $2 WHERE id = $1`, entryID, status)
	if err != nil {
		return fmt.Errorf("postgres: updating entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return checkout.ErrEntryNotFound
	}
	return nil
}

// GetEntryMetadata implements checkout.EntryStore. A missing key reads
// as the empty string.
func (s *Store) GetEntryMetadata(ctx context.Context, entryID, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM checkout_entry_meta WHERE entry_id = $1 AND key = $2`,
		entryID, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres: reading entry metadata: %w", err)
	}
	return value, nil
}

// SetEntryMetadata implements checkout.EntryStore.
func (s *Store) SetEntryMetadata(ctx context.Context, entryID, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO checkout_entry_meta (entry_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (entry_id, key) DO UPDATE SET value = EXCLUDED.value`,
		entryID, key, value)
	if err != nil {
		return fmt.Errorf("postgres: writing entry metadata: %w", err)
	}
	return nil
}

// FindEntryByTransaction implements checkout.EntryStore, matching the
// entry's transaction or subscription identifier.
func (s *Store) FindEntryByTransaction(ctx context.Context, transactionID string) (*checkout.Entry, error) {
	var entry checkout.Entry
	err := s.pool.QueryRow(ctx, `
		SELECT id, form_id, feed_id, total, currency, payment_status, transaction_id, subscription_id, customer_id
		FROM checkout_entries
		WHERE transaction_id = $1 OR (subscription_id <> '' AND subscription_id = $1)
		ORDER BY created_at DESC
		LIMIT 1`, transactionID).
		Scan(&entry.ID, &entry.FormID, &entry.FeedID, &entry.Total, &entry.Currency,
			&entry.PaymentStatus, &entry.TransactionID, &entry.SubscriptionID, &entry.CustomerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, checkout.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: resolving transaction: %w", err)
	}
	return &entry, nil
}
