package checkout

import (
	"context"
	"time"
)

// Form is the host platform's form configuration, reduced to what the
// orchestrator needs.
type Form struct {
	ID    string
	Title string
}

// TransactionType distinguishes one-time payments from subscriptions.
type TransactionType string

const (
	TransactionProduct      TransactionType = "product"
	TransactionSubscription TransactionType = "subscription"
)

// Feed is a per-form payment configuration owned by the host.
type Feed struct {
	ID       string
	FormID   string
	Settings FeedSettings
}

// FeedSettings carries the payment options an administrator configured
// on the feed.
type FeedSettings struct {
	TransactionType TransactionType

	// Mode selects the credential set ("test" or "live").
	Mode string

	// PlanID names the billing plan for subscription feeds.
	PlanID string

	// TrialPeriodDays delays the first charge when positive.
	TrialPeriodDays int64

	// SetupFee is an extra first-invoice amount in minor units.
	SetupFee int64

	// PaymentMethodTypes restricts the offered methods. Empty means the
	// processor decides (automatic payment methods).
	PaymentMethodTypes []string

	// CaptureMethod is "automatic" or "manual".
	CaptureMethod string

	// ReceiptEnabled asks the processor to send its own receipt email.
	ReceiptEnabled bool
}

// Order is a submitted form payment: the extracted totals plus the
// customer-identifying fields the form collected.
type Order struct {
	// Total is the amount in minor units before any coupon discount.
	Total    int64
	Currency string

	Description string

	Email string
	Name  string

	// CustomerID references an upstream customer to reuse, when the host
	// maps the submitter to one.
	CustomerID string

	// PaymentMethod is the method hint the submitter selected, e.g.
	// "card" or "boleto".
	PaymentMethod string

	CouponCode string

	Metadata map[string]string
}

// Draft is a not-yet-finalized submission persisted by the host while
// the submitter completes confirmation off-site.
type Draft struct {
	ResumeToken  string
	FormID       string
	FeedID       string
	Continuation string
	Values       map[string]any
	CreatedAt    time.Time
}

// Entry is a finalized (or finalizing) form submission with its payment
// linkage.
type Entry struct {
	ID       string
	FormID   string
	FeedID   string
	Total    int64
	Currency string

	// PaymentStatus is the host-facing payment state: "Paid",
	// "Processing", "Authorized", "Active", "Failed", "Refunded".
	PaymentStatus string

	TransactionID  string
	SubscriptionID string
	CustomerID     string
}

// FormStore exposes the host's form and feed configuration.
type FormStore interface {
	GetForm(ctx context.Context, formID string) (*Form, error)
	GetFeed(ctx context.Context, feedID string) (*Feed, error)
}

// DraftStore persists unconfirmed submissions across the redirect
// boundary. Deleting an absent draft is a no-op, not an error.
type DraftStore interface {
	CreateDraft(ctx context.Context, draft *Draft) (resumeToken string, err error)
	GetDraft(ctx context.Context, resumeToken string) (*Draft, error)
	DeleteDraft(ctx context.Context, resumeToken string) error
}

// EntryStore creates and finalizes host entries and carries per-entry
// metadata, which the webhook path uses to find entries long after the
// originating request is gone.
type EntryStore interface {
	AddEntry(ctx context.Context, entry *Entry) (entryID string, err error)

	// FinalizeEntry triggers the host's own post-submission pipeline
	// (notifications, confirmations). Called at most once per entry by
	// the orchestrator.
	FinalizeEntry(ctx context.Context, entryID string) error

	// UpdatePaymentStatus records a payment-state transition on an
	// existing entry.
	UpdatePaymentStatus(ctx context.Context, entryID, status string) error

	GetEntryMetadata(ctx context.Context, entryID, key string) (string, error)
	SetEntryMetadata(ctx context.Context, entryID, key, value string) error

	// FindEntryByTransaction resolves the entry linked to a processor
	// transaction (payment intent, charge, or subscription ID). Returns
	// ErrEntryNotFound when no entry carries the identifier.
	FindEntryByTransaction(ctx context.Context, transactionID string) (*Entry, error)
}

// CredentialResolver supplies processor credentials. Hosts typically
// key these on the feed's mode and, for platform installs, a connected
// account on the feed.
type CredentialResolver interface {
	// SecretKey returns the API credential applicable to the feed.
	SecretKey(ctx context.Context, mode string, feed *Feed) (string, error)

	// WebhookSecret returns the endpoint signing secret for mode.
	WebhookSecret(ctx context.Context, mode string) (string, error)
}
