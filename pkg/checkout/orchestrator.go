// Package checkout drives the multi-step payment flow between a forms
// host and the payment processor: building intents or subscriptions
// from a submitted order, surviving the client-side redirect through an
// encrypted continuation token, resuming exactly once, and reconciling
// webhook deliveries back into entry state.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/cmorrow/formpay/pkg/stripeapi"
)

// Config configures an Orchestrator. Forms, Drafts, Entries,
// Credentials, and EncryptionKey are required.
type Config struct {
	Forms       FormStore
	Drafts      DraftStore
	Entries     EntryStore
	Credentials CredentialResolver

	// EncryptionKey is the 32-byte per-installation key sealing
	// continuation tokens.
	EncryptionKey []byte

	// Mode selects the webhook signing secret ("test" or "live").
	// Defaults to "live".
	Mode string

	// Logger receives structured output. If nil, logging is a no-op.
	Logger Logger

	// Metrics receives operation counters. If nil, a no-op is used.
	Metrics Metrics

	// Coupons overrides the coupon cache, mainly for tests. If nil, a
	// fresh cache is created.
	Coupons *CouponCache

	// APIBaseURL overrides the processor endpoint. Used by tests.
	APIBaseURL string

	// HTTPClient is passed to the processor clients the orchestrator
	// constructs. If nil, each client uses its own default.
	HTTPClient *http.Client

	// DebugLogging enables transport-level request/response logging.
	DebugLogging bool
}

// Orchestrator owns the checkout state machine. It resolves a processor
// client per feed from the host's credentials, caching the resolved
// clients with an explicit invalidation point.
type Orchestrator struct {
	forms       FormStore
	drafts      DraftStore
	entries     EntryStore
	credentials CredentialResolver
	encryptor   *Encryptor
	mode        string
	logger      Logger
	metrics     Metrics
	coupons     *CouponCache

	apiBaseURL   string
	httpClient   *http.Client
	debugLogging bool

	mu      sync.Mutex
	clients map[string]*stripeapi.Client
}

// NewOrchestrator creates an Orchestrator from config, applying
// defaults.
func NewOrchestrator(config Config) (*Orchestrator, error) {
	if config.Forms == nil || config.Drafts == nil || config.Entries == nil {
		return nil, errors.New("checkout: form, draft, and entry stores are required")
	}
	if config.Credentials == nil {
		return nil, errors.New("checkout: credential resolver is required")
	}
	encryptor, err := NewEncryptor(config.EncryptionKey)
	if err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = &NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	coupons := config.Coupons
	if coupons == nil {
		coupons = NewCouponCache()
	}
	mode := config.Mode
	if mode == "" {
		mode = "live"
	}
	return &Orchestrator{
		forms:        config.Forms,
		drafts:       config.Drafts,
		entries:      config.Entries,
		credentials:  config.Credentials,
		encryptor:    encryptor,
		mode:         mode,
		logger:       logger,
		metrics:      metrics,
		coupons:      coupons,
		apiBaseURL:   config.APIBaseURL,
		httpClient:   config.HTTPClient,
		debugLogging: config.DebugLogging,
		clients:      make(map[string]*stripeapi.Client),
	}, nil
}

// clientForFeed resolves the processor client for a feed, constructing
// and caching it on first use.
func (o *Orchestrator) clientForFeed(ctx context.Context, feed *Feed) (*stripeapi.Client, error) {
	o.mu.Lock()
	client, ok := o.clients[feed.ID]
	o.mu.Unlock()
	if ok {
		return client, nil
	}

	key, err := o.credentials.SecretKey(ctx, feed.Settings.Mode, feed)
	if err != nil {
		return nil, fmt.Errorf("checkout: resolving credential for feed %s: %w", feed.ID, err)
	}
	client = stripeapi.New(stripeapi.Config{
		SecretKey:    key,
		BaseURL:      o.apiBaseURL,
		HTTPClient:   o.httpClient,
		Logger:       &loggerBridge{o.logger},
		DebugLogging: o.debugLogging,
	})

	o.mu.Lock()
	o.clients[feed.ID] = client
	o.mu.Unlock()
	return client, nil
}

// InvalidateCredential drops the cached client for a feed, forcing the
// next call to re-resolve its credential. Hosts call this when a feed's
// settings change.
func (o *Orchestrator) InvalidateCredential(feedID string) {
	o.mu.Lock()
	delete(o.clients, feedID)
	o.mu.Unlock()
}

// loggerBridge adapts the checkout Logger to the transport's interface.
type loggerBridge struct {
	l Logger
}

func (b *loggerBridge) convert(fields []stripeapi.Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Key: f.Key, Value: f.Value}
	}
	return out
}

func (b *loggerBridge) Debug(msg string, fields ...stripeapi.Field) {
	b.l.Debug(msg, b.convert(fields)...)
}

func (b *loggerBridge) Info(msg string, fields ...stripeapi.Field) {
	b.l.Info(msg, b.convert(fields)...)
}

func (b *loggerBridge) Warn(msg string, fields ...stripeapi.Field) {
	b.l.Warn(msg, b.convert(fields)...)
}

func (b *loggerBridge) Error(msg string, fields ...stripeapi.Field) {
	b.l.Error(msg, b.convert(fields)...)
}

// automaticChargeMethods is the fixed allow-list of payment methods a
// subscription can charge automatically. Anything else settles
// asynchronously, so the subscription bills through a finalized invoice
// (send_invoice) instead.
var automaticChargeMethods = map[string]bool{
	"card":            true,
	"sepa_debit":      true,
	"bancontact":      true,
	"eps":             true,
	"ideal":           true,
	"us_bank_account": true,
	"link":            true,
	"bacs_debit":      true,
	"fpx":             true,
	"au_becs_debit":   true,
	"acss_debit":      true,
}

// withCard unions a restriction list with the always-allowed card
// method, preserving the configured order.
func withCard(methods []string) []string {
	for _, m := range methods {
		if m == "card" {
			return methods
		}
	}
	return append([]string{"card"}, methods...)
}

// entry metadata keys used to carry payment identifiers across the
// webhook path.
const (
	metaTransactionID  = "transaction_id"
	metaSubscriptionID = "subscription_id"
	metaLastEventID    = "last_event_id"
)
