package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmorrow/formpay/pkg/stripeapi"
)

// RedirectParams is what the client brings back from the redirect. The
// claimed client secret is checked against the refetched object; the
// status the client saw is never trusted.
type RedirectParams struct {
	ClientSecret string
}

// CompletionResult is the terminal outcome of a successfully resumed
// checkout.
type CompletionResult struct {
	EntryID       string
	Amount        int64
	Currency      string
	PaymentStatus string

	TransactionID  string
	SubscriptionID string
	InvoiceID      string
}

// resumable is the status set a resumed intent may be in. Anything else
// aborts resuming; requires_payment_method gets its own distinct
// failure because it means the attempted method was declined.
var resumableIntentStatuses = map[string]string{
	"succeeded":        "Paid",
	"processing":       "Processing",
	"requires_capture": "Authorized",
}

// ResumeCheckout validates a returning redirect and finalizes the
// drafted submission exactly once. The draft's deletion is the
// idempotency boundary: a second resume for the same token finds no
// draft and fails closed with ErrDraftNotFound.
func (o *Orchestrator) ResumeCheckout(ctx context.Context, resumeToken string, redirect RedirectParams) (*CompletionResult, error) {
	started := time.Now()
	defer func() { o.metrics.RecordCheckoutDuration("resume", time.Since(started)) }()

	draft, err := o.drafts.GetDraft(ctx, resumeToken)
	if errors.Is(err, ErrDraftNotFound) {
		o.metrics.RecordCheckoutResumed("already_processed")
		o.logger.Warn("resume for missing draft", Field{Key: "resume_token", Value: resumeToken})
		return nil, ErrDraftNotFound
	}
	if err != nil {
		o.metrics.RecordCheckoutResumed("error")
		return nil, err
	}

	continuation, err := o.encryptor.Open(draft.Continuation)
	if err != nil {
		o.metrics.RecordCheckoutResumed("invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidRedirectState, err)
	}

	feed, err := o.forms.GetFeed(ctx, continuation.FeedID)
	if err != nil {
		o.metrics.RecordCheckoutResumed("error")
		return nil, fmt.Errorf("checkout: loading feed %s: %w", continuation.FeedID, err)
	}
	client, err := o.clientForFeed(ctx, feed)
	if err != nil {
		o.metrics.RecordCheckoutResumed("error")
		return nil, err
	}

	result, err := o.validateRedirect(ctx, client, continuation, redirect)
	if err != nil {
		outcome := "invalid"
		if errors.Is(err, ErrPaymentDeclined) {
			outcome = "declined"
		}
		o.metrics.RecordCheckoutResumed(outcome)
		o.logger.Warn("resume validation failed",
			Field{Key: "form_id", Value: continuation.FormID},
			Field{Key: "feed_id", Value: continuation.FeedID},
			Field{Key: "transaction_id", Value: continuation.IntentID},
			Field{Key: "error", Value: err.Error()},
		)
		return nil, err
	}

	entryID, err := o.entries.AddEntry(ctx, &Entry{
		FormID:         continuation.FormID,
		FeedID:         continuation.FeedID,
		Total:          result.Amount,
		Currency:       result.Currency,
		PaymentStatus:  result.PaymentStatus,
		TransactionID:  result.TransactionID,
		SubscriptionID: result.SubscriptionID,
	})
	if err != nil {
		o.metrics.RecordCheckoutResumed("error")
		return nil, fmt.Errorf("checkout: adding entry: %w", err)
	}
	result.EntryID = entryID

	if err := o.entries.SetEntryMetadata(ctx, entryID, metaTransactionID, result.TransactionID); err != nil {
		return nil, err
	}
	if result.SubscriptionID != "" {
		if err := o.entries.SetEntryMetadata(ctx, entryID, metaSubscriptionID, result.SubscriptionID); err != nil {
			return nil, err
		}
	}

	if err := o.entries.FinalizeEntry(ctx, entryID); err != nil {
		o.metrics.RecordCheckoutResumed("error")
		return nil, fmt.Errorf("checkout: finalizing entry %s: %w", entryID, err)
	}
	if err := o.drafts.DeleteDraft(ctx, resumeToken); err != nil {
		return nil, fmt.Errorf("checkout: deleting draft: %w", err)
	}

	o.metrics.RecordCheckoutResumed("completed")
	o.logger.Info("checkout completed",
		Field{Key: "entry_id", Value: entryID},
		Field{Key: "transaction_id", Value: result.TransactionID},
		Field{Key: "status", Value: result.PaymentStatus},
		Field{Key: "amount", Value: result.Amount},
	)
	return result, nil
}

// validateRedirect refetches the authoritative object named by the
// continuation and checks it against what the redirect claims. The
// object kind is dispatched on the ID prefix.
func (o *Orchestrator) validateRedirect(ctx context.Context, client *stripeapi.Client, continuation Continuation, redirect RedirectParams) (*CompletionResult, error) {
	switch {
	case strings.HasPrefix(continuation.IntentID, "pi_"):
		return o.validatePaymentIntent(ctx, client, continuation, redirect)
	case strings.HasPrefix(continuation.IntentID, "seti_"):
		return o.validateSetupIntent(ctx, client, continuation, redirect)
	case strings.HasPrefix(continuation.IntentID, "in_"):
		return o.validateInvoice(ctx, client, continuation)
	}
	return nil, fmt.Errorf("%w: unrecognized object id %q", ErrInvalidRedirectState, continuation.IntentID)
}

func (o *Orchestrator) validatePaymentIntent(ctx context.Context, client *stripeapi.Client, continuation Continuation, redirect RedirectParams) (*CompletionResult, error) {
	intent, err := client.GetPaymentIntent(ctx, continuation.IntentID, nil)
	if err != nil {
		return nil, err
	}

	if intent.Status() == "requires_payment_method" {
		return nil, fmt.Errorf("%w: intent %s", ErrPaymentDeclined, intent.ID())
	}
	if intent.ClientSecret() != continuation.Secret || intent.ClientSecret() != redirect.ClientSecret {
		return nil, fmt.Errorf("%w: client secret mismatch for %s", ErrInvalidRedirectState, intent.ID())
	}
	status, ok := resumableIntentStatuses[intent.Status()]
	if !ok {
		return nil, fmt.Errorf("%w: intent %s in status %q", ErrInvalidRedirectState, intent.ID(), intent.Status())
	}

	// The charged amount must reflect the coupon, unless a trial or
	// setup fee makes the first charge intentionally different.
	if continuation.CouponCode != "" && continuation.TrialDays == 0 && continuation.SetupFee == 0 {
		if intent.Amount() != continuation.Total {
			return nil, fmt.Errorf("%w: charged %d, expected %d", ErrTotalMismatch, intent.Amount(), continuation.Total)
		}
	}

	return &CompletionResult{
		Amount:         intent.Amount(),
		Currency:       intent.Currency(),
		PaymentStatus:  status,
		TransactionID:  intent.ID(),
		SubscriptionID: continuation.SubscriptionID,
	}, nil
}

func (o *Orchestrator) validateSetupIntent(ctx context.Context, client *stripeapi.Client, continuation Continuation, redirect RedirectParams) (*CompletionResult, error) {
	intent, err := client.GetSetupIntent(ctx, continuation.IntentID, nil)
	if err != nil {
		return nil, err
	}

	if intent.Status() == "requires_payment_method" {
		return nil, fmt.Errorf("%w: setup intent %s", ErrPaymentDeclined, intent.ID())
	}
	if intent.ClientSecret() != continuation.Secret || intent.ClientSecret() != redirect.ClientSecret {
		return nil, fmt.Errorf("%w: client secret mismatch for %s", ErrInvalidRedirectState, intent.ID())
	}
	if intent.Status() != "succeeded" && intent.Status() != "processing" {
		return nil, fmt.Errorf("%w: setup intent %s in status %q", ErrInvalidRedirectState, intent.ID(), intent.Status())
	}

	return &CompletionResult{
		Amount:         continuation.Total,
		PaymentStatus:  "Active",
		TransactionID:  intent.ID(),
		SubscriptionID: continuation.SubscriptionID,
	}, nil
}

// validateInvoice handles send_invoice subscriptions: there was no
// client-side confirmation, so there is no secret to match. The invoice
// must exist and be awaiting or past settlement.
func (o *Orchestrator) validateInvoice(ctx context.Context, client *stripeapi.Client, continuation Continuation) (*CompletionResult, error) {
	invoice, err := client.GetInvoice(ctx, continuation.IntentID)
	if err != nil {
		return nil, err
	}

	var status string
	switch invoice.Status() {
	case "paid":
		status = "Paid"
	case "open":
		// Finalized, settlement pending; the webhook path completes it.
		status = "Processing"
	default:
		return nil, fmt.Errorf("%w: invoice %s in status %q", ErrInvalidRedirectState, invoice.ID(), invoice.Status())
	}

	return &CompletionResult{
		Amount:         invoice.AmountDue(),
		Currency:       invoice.GetString("currency"),
		PaymentStatus:  status,
		TransactionID:  invoice.ID(),
		SubscriptionID: continuation.SubscriptionID,
		InvoiceID:      invoice.ID(),
	}, nil
}
