// Package memory provides in-memory implementations of the checkout
// host collaborator interfaces. This implementation is primarily
// intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cmorrow/formpay/pkg/checkout"
)

// Store implements checkout.FormStore, checkout.DraftStore,
// checkout.EntryStore, and checkout.CredentialResolver using in-memory
// maps.
type Store struct {
	mu      sync.RWMutex
	forms   map[string]*checkout.Form
	feeds   map[string]*checkout.Feed
	drafts  map[string]*checkout.Draft
	entries map[string]*checkout.Entry
	meta    map[string]map[string]string

	secretKeys     map[string]string
	webhookSecrets map[string]string

	finalized map[string]int
}

// New creates a new in-memory host store.
func New() *Store {
	return &Store{
		forms:          make(map[string]*checkout.Form),
		feeds:          make(map[string]*checkout.Feed),
		drafts:         make(map[string]*checkout.Draft),
		entries:        make(map[string]*checkout.Entry),
		meta:           make(map[string]map[string]string),
		secretKeys:     make(map[string]string),
		webhookSecrets: make(map[string]string),
		finalized:      make(map[string]int),
	}
}

// PutForm registers a form.
func (s *Store) PutForm(form *checkout.Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	formCopy := *form
	s.forms[form.ID] = &formCopy
}

// PutFeed registers a feed.
func (s *Store) PutFeed(feed *checkout.Feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	feedCopy := *feed
	s.feeds[feed.ID] = &feedCopy
}

// SetCredentials registers the API key and webhook secret for a mode.
func (s *Store) SetCredentials(mode, secretKey, webhookSecret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secretKeys[mode] = secretKey
	s.webhookSecrets[mode] = webhookSecret
}

// GetForm implements checkout.FormStore.
func (s *Store) GetForm(ctx context.Context, formID string) (*checkout.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	form, ok := s.forms[formID]
	if !ok {
		return nil, fmt.Errorf("memory: form %s not found", formID)
	}
	formCopy := *form
	return &formCopy, nil
}

// GetFeed implements checkout.FormStore.
func (s *Store) GetFeed(ctx context.Context, feedID string) (*checkout.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed, ok := s.feeds[feedID]
	if !ok {
		return nil, fmt.Errorf("memory: feed %s not found", feedID)
	}
	feedCopy := *feed
	return &feedCopy, nil
}

// CreateDraft implements checkout.DraftStore.
func (s *Store) CreateDraft(ctx context.Context, draft *checkout.Draft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := draft.ResumeToken
	if token == "" {
		token = uuid.NewString()
	}
	draftCopy := *draft
	draftCopy.ResumeToken = token
	s.drafts[token] = &draftCopy
	return token, nil
}

// GetDraft implements checkout.DraftStore.
func (s *Store) GetDraft(ctx context.Context, resumeToken string) (*checkout.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft, ok := s.drafts[resumeToken]
	if !ok {
		return nil, checkout.ErrDraftNotFound
	}
	draftCopy := *draft
	return &draftCopy, nil
}

// DeleteDraft implements checkout.DraftStore. Deleting an absent draft
// is a no-op.
func (s *Store) DeleteDraft(ctx context.Context, resumeToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, resumeToken)
	return nil
}

// AddEntry implements checkout.EntryStore.
func (s *Store) AddEntry(ctx context.Context, entry *checkout.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	entryCopy := *entry
	entryCopy.ID = id
	s.entries[id] = &entryCopy
	return id, nil
}

// FinalizeEntry implements checkout.EntryStore.
func (s *Store) FinalizeEntry(ctx context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entryID]; !ok {
		return checkout.ErrEntryNotFound
	}
	s.finalized[entryID]++
	return nil
}

// FinalizeCount reports how many times an entry was finalized. Used by
// tests asserting exactly-once semantics.
func (s *Store) FinalizeCount(entryID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finalized[entryID]
}

// UpdatePaymentStatus implements checkout.EntryStore.
func (s *Store) UpdatePaymentStatus(ctx context.Context, entryID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return checkout.ErrEntryNotFound
	}
	entry.PaymentStatus = status
	return nil
}

// GetEntry returns a copy of an entry. Used by tests.
func (s *Store) GetEntry(entryID string) (*checkout.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return nil, false
	}
	entryCopy := *entry
	return &entryCopy, true
}

// GetEntryMetadata implements checkout.EntryStore. A missing key reads
// as the empty string.
func (s *Store) GetEntryMetadata(ctx context.Context, entryID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta[entryID][key], nil
}

// SetEntryMetadata implements checkout.EntryStore.
func (s *Store) SetEntryMetadata(ctx context.Context, entryID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[entryID]; !ok {
		s.meta[entryID] = make(map[string]string)
	}
	s.meta[entryID][key] = value
	return nil
}

// FindEntryByTransaction implements checkout.EntryStore, matching the
// entry's transaction or subscription identifier.
func (s *Store) FindEntryByTransaction(ctx context.Context, transactionID string) (*checkout.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if entry.TransactionID == transactionID || (entry.SubscriptionID != "" && entry.SubscriptionID == transactionID) {
			entryCopy := *entry
			return &entryCopy, nil
		}
	}
	return nil, checkout.ErrEntryNotFound
}

// SecretKey implements checkout.CredentialResolver.
func (s *Store) SecretKey(ctx context.Context, mode string, feed *checkout.Feed) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.secretKeys[mode]
	if !ok {
		return "", fmt.Errorf("memory: no secret key for mode %q", mode)
	}
	return key, nil
}

// WebhookSecret implements checkout.CredentialResolver.
func (s *Store) WebhookSecret(ctx context.Context, mode string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.webhookSecrets[mode]
	if !ok {
		return "", fmt.Errorf("memory: no webhook secret for mode %q", mode)
	}
	return secret, nil
}
