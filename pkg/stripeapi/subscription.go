package stripeapi

import (
	"context"
	"net/http"
)

// Subscription represents a recurring billing agreement.
type Subscription struct {
	Object
}

var subscriptionUpdatable = []string{
	"cancel_at_period_end",
	"default_payment_method",
	"description",
	"items",
	"metadata",
	"payment_behavior",
	"proration_behavior",
	"add_invoice_items",
	"application_fee_percent",
	"automatic_tax",
	"billing_cycle_anchor",
	"billing_thresholds",
	"cancel_at",
	"cancellation_details",
	"collection_method",
	"coupon",
	"days_until_due",
	"default_source",
	"default_tax_rates",
	"on_behalf_of",
	"pause_collection",
	"payment_settings",
	"pending_invoice_item_interval",
	"promotion_code",
	"proration_date",
	"transfer_data",
	"trial_end",
	"trial_from_plan",
	"trial_settings",
}

func newSubscription(data map[string]any, api *Client) *Subscription {
	s := &Subscription{}
	s.Object = newObject(api, objectConfig{
		endpoint:  "subscriptions",
		updatable: subscriptionUpdatable,
		nested: map[string]nestedCtor{
			"customer":       func(m map[string]any, api *Client) any { return newCustomer(m, api) },
			"latest_invoice": func(m map[string]any, api *Client) any { return newInvoice(m, api) },
			"plan":           func(m map[string]any, api *Client) any { return newPlan(m, api) },
		},
	}, data)
	return s
}

func (s *Subscription) Status() string           { return s.GetString("status") }
func (s *Subscription) CollectionMethod() string { return s.GetString("collection_method") }
func (s *Subscription) CustomerID() string       { return referenceID(s.Get("customer")) }

// LatestInvoice returns the expanded latest invoice, or nil when the
// field is an unexpanded reference.
func (s *Subscription) LatestInvoice() *Invoice {
	inv, _ := s.Get("latest_invoice").(*Invoice)
	return inv
}

// LatestInvoiceID works whether or not latest_invoice was expanded.
func (s *Subscription) LatestInvoiceID() string {
	return referenceID(s.Get("latest_invoice"))
}

// PendingSetupIntentID returns the pending setup intent reference, if
// any. Present on subscriptions whose first cycle needs no payment
// (e.g. trials), where the payment method is collected via setup intent.
func (s *Subscription) PendingSetupIntentID() string {
	return referenceID(s.Get("pending_setup_intent"))
}

// CreateSubscription creates a subscription.
func (c *Client) CreateSubscription(ctx context.Context, params Params) (*Subscription, error) {
	response, err := c.create(ctx, "subscriptions", params)
	if err != nil {
		return nil, err
	}
	return newSubscription(response, c), nil
}

// GetSubscription retrieves a subscription; ErrNotFound when missing.
func (c *Client) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	response, err := c.retrieve(ctx, "subscriptions/"+id, nil)
	if err != nil {
		return nil, err
	}
	return newSubscription(response, c), nil
}

// UpdateSubscription updates a subscription by ID.
func (c *Client) UpdateSubscription(ctx context.Context, id string, params Params) (*Subscription, error) {
	response, err := c.create(ctx, "subscriptions/"+id, params)
	if err != nil {
		return nil, err
	}
	return newSubscription(response, c), nil
}

// SaveSubscription transmits the subscription's whitelisted dirty
// fields.
func (c *Client) SaveSubscription(ctx context.Context, subscription *Subscription) (*Subscription, error) {
	return c.UpdateSubscription(ctx, subscription.ID(), subscription.UpdateParameters())
}

// CancelSubscription cancels the subscription. The returned snapshot
// reflects server-side cancellation through its status fields; nothing
// is deleted client-side.
func (c *Client) CancelSubscription(ctx context.Context, subscription *Subscription) (*Subscription, error) {
	response, err := c.Request(ctx, "subscriptions/"+subscription.ID(), nil, http.MethodDelete, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newSubscription(response, c), nil
}
