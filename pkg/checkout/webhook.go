package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmorrow/formpay/pkg/stripeapi"
)

// ActionKind classifies what a webhook delivery did to entry state.
type ActionKind string

const (
	ActionCompletePayment             ActionKind = "complete_payment"
	ActionFailPayment                 ActionKind = "fail_payment"
	ActionRefundPayment               ActionKind = "refund_payment"
	ActionCompleteSubscriptionPayment ActionKind = "complete_subscription_payment"
	ActionFailSubscriptionPayment     ActionKind = "fail_subscription_payment"
	ActionCancelSubscription          ActionKind = "cancel_subscription"
	ActionIgnored                     ActionKind = "ignored"
)

// RoutedAction reports how a verified webhook delivery was handled.
type RoutedAction struct {
	Kind      ActionKind
	EventID   string
	EventType string

	// EntryID is the affected entry, empty when Kind is ActionIgnored.
	EntryID       string
	TransactionID string
	Amount        int64

	// Duplicate is true when the event was already applied to the entry
	// and nothing changed on this delivery.
	Duplicate bool
}

// HandleWebhookEvent verifies a webhook delivery and reconciles it into
// entry state. Deliveries are at-least-once: the last-applied event ID
// is tracked in entry metadata and repeats return early as duplicates.
func (o *Orchestrator) HandleWebhookEvent(ctx context.Context, body []byte, sigHeader string) (*RoutedAction, error) {
	secret, err := o.credentials.WebhookSecret(ctx, o.mode)
	if err != nil {
		return nil, fmt.Errorf("checkout: resolving webhook secret: %w", err)
	}

	event, err := stripeapi.ConstructEvent(body, sigHeader, secret)
	if err != nil {
		o.metrics.RecordWebhookEvent("unknown", "rejected")
		o.logger.Warn("webhook rejected", Field{Key: "error", Value: err.Error()})
		return nil, err
	}

	kind, transactionID, amount, status := routeEvent(event)
	action := &RoutedAction{
		Kind:          kind,
		EventID:       event.ID(),
		EventType:     event.Type(),
		TransactionID: transactionID,
		Amount:        amount,
	}
	if kind == ActionIgnored || transactionID == "" {
		action.Kind = ActionIgnored
		o.metrics.RecordWebhookEvent(event.Type(), "ignored")
		return action, nil
	}

	entry, err := o.entries.FindEntryByTransaction(ctx, transactionID)
	if errors.Is(err, ErrEntryNotFound) {
		// Nothing on this installation owns the transaction; tell the
		// processor the delivery is handled so it stops retrying.
		action.Kind = ActionIgnored
		o.metrics.RecordWebhookEvent(event.Type(), "ignored")
		o.logger.Debug("webhook for unknown transaction",
			Field{Key: "event_id", Value: event.ID()},
			Field{Key: "transaction_id", Value: transactionID},
		)
		return action, nil
	}
	if err != nil {
		return nil, err
	}
	action.EntryID = entry.ID

	lastEventID, err := o.entries.GetEntryMetadata(ctx, entry.ID, metaLastEventID)
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		return nil, err
	}
	if lastEventID == event.ID() {
		action.Duplicate = true
		o.metrics.RecordWebhookEvent(event.Type(), "duplicate")
		return action, nil
	}

	if err := o.entries.UpdatePaymentStatus(ctx, entry.ID, status); err != nil {
		return nil, fmt.Errorf("checkout: updating entry %s: %w", entry.ID, err)
	}
	if err := o.entries.SetEntryMetadata(ctx, entry.ID, metaLastEventID, event.ID()); err != nil {
		return nil, err
	}

	o.metrics.RecordWebhookEvent(event.Type(), "routed")
	o.logger.Info("webhook routed",
		Field{Key: "event_id", Value: event.ID()},
		Field{Key: "event_type", Value: event.Type()},
		Field{Key: "entry_id", Value: entry.ID},
		Field{Key: "action", Value: string(action.Kind)},
	)
	return action, nil
}

// routeEvent maps an event type to the entry action it implies, the
// transaction identifier linking it to an entry, the settled amount,
// and the resulting payment status.
func routeEvent(event *stripeapi.Event) (kind ActionKind, transactionID string, amount int64, status string) {
	data := event.Data()
	if data == nil {
		return ActionIgnored, "", 0, ""
	}

	switch event.Type() {
	case "payment_intent.succeeded":
		if pi := data.PaymentIntent(); pi != nil {
			return ActionCompletePayment, pi.ID(), pi.Amount(), "Paid"
		}
	case "charge.captured":
		if ch := data.Charge(); ch != nil {
			return ActionCompletePayment, chargeTransactionID(ch), ch.Amount(), "Paid"
		}
	case "charge.failed":
		if ch := data.Charge(); ch != nil {
			return ActionFailPayment, chargeTransactionID(ch), ch.Amount(), "Failed"
		}
	case "charge.refunded":
		if ch := data.Charge(); ch != nil {
			return ActionRefundPayment, chargeTransactionID(ch), ch.Amount(), "Refunded"
		}
	case "invoice.payment_succeeded":
		if inv := data.Invoice(); inv != nil {
			return ActionCompleteSubscriptionPayment, invoiceTransactionID(inv), inv.AmountPaid(), "Active"
		}
	case "invoice.payment_failed":
		if inv := data.Invoice(); inv != nil {
			return ActionFailSubscriptionPayment, invoiceTransactionID(inv), inv.AmountDue(), "Failed"
		}
	case "customer.subscription.deleted":
		if sub := data.Subscription(); sub != nil {
			return ActionCancelSubscription, sub.ID(), 0, "Cancelled"
		}
	}
	return ActionIgnored, "", 0, ""
}

// chargeTransactionID prefers the charge's owning payment intent, since
// entries are keyed by intent; direct charges fall back to the charge
// ID.
func chargeTransactionID(ch *stripeapi.Charge) string {
	if id := ch.PaymentIntentID(); id != "" {
		return id
	}
	return ch.ID()
}

// invoiceTransactionID links invoice events to the entry through the
// subscription, falling back to the invoice itself for send_invoice
// entries recorded before the subscription ID was known.
func invoiceTransactionID(inv *stripeapi.Invoice) string {
	if id := inv.Subscription(); id != "" {
		return id
	}
	return inv.ID()
}
