package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmorrow/formpay/pkg/stripeapi"
)

// StartResult is what the host hands to its client-side code after a
// checkout has been started.
type StartResult struct {
	// ClientSecret drives client-side confirmation. Empty for
	// send_invoice subscriptions, which have no confirmation step.
	ClientSecret string

	// InvoiceID is set instead of ClientSecret for send_invoice
	// subscriptions: the finalized invoice awaiting settlement.
	InvoiceID string

	// ContinuationToken is the encrypted resume state, carried through
	// the redirect round trip by the client.
	ContinuationToken string

	// ResumeToken keys the persisted draft submission.
	ResumeToken string

	// Total is the amount the first charge is expected to settle, in
	// minor units, after any coupon discount.
	Total int64

	TransactionID  string
	SubscriptionID string
	CustomerID     string
}

// StartCheckout builds the processor-side objects for a submitted order
// and persists a draft so the submission can be resumed after the
// client-side redirect.
func (o *Orchestrator) StartCheckout(ctx context.Context, formID, feedID string, order Order) (*StartResult, error) {
	started := time.Now()
	defer func() { o.metrics.RecordCheckoutDuration("start", time.Since(started)) }()

	form, err := o.forms.GetForm(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("checkout: loading form %s: %w", formID, err)
	}
	feed, err := o.forms.GetFeed(ctx, feedID)
	if err != nil {
		return nil, fmt.Errorf("checkout: loading feed %s: %w", feedID, err)
	}
	if feed.FormID != form.ID {
		return nil, fmt.Errorf("checkout: feed %s does not belong to form %s", feedID, formID)
	}

	client, err := o.clientForFeed(ctx, feed)
	if err != nil {
		return nil, err
	}

	var coupon *stripeapi.Coupon
	if order.CouponCode != "" {
		coupon, err = o.coupons.Lookup(ctx, client, order.CouponCode)
		if errors.Is(err, stripeapi.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCouponInvalid, order.CouponCode)
		}
		if err != nil {
			return nil, err
		}
		if !coupon.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrCouponInvalid, order.CouponCode)
		}
	}

	o.metrics.RecordCheckoutStarted(string(feed.Settings.TransactionType))

	var result *StartResult
	if feed.Settings.TransactionType == TransactionSubscription {
		result, err = o.startSubscription(ctx, client, feed, order, coupon)
	} else {
		result, err = o.startPayment(ctx, client, feed, order, coupon)
	}
	if err != nil {
		o.metrics.RecordProcessorCall("start_checkout", "error")
		return nil, err
	}
	o.metrics.RecordProcessorCall("start_checkout", "success")

	o.logger.Info("checkout started",
		Field{Key: "form_id", Value: formID},
		Field{Key: "feed_id", Value: feedID},
		Field{Key: "transaction_id", Value: result.TransactionID},
		Field{Key: "subscription_id", Value: result.SubscriptionID},
		Field{Key: "total", Value: result.Total},
	)
	return result, nil
}

// startPayment handles one-time orders: one payment intent, confirmed
// client-side.
func (o *Orchestrator) startPayment(ctx context.Context, client *stripeapi.Client, feed *Feed, order Order, coupon *stripeapi.Coupon) (*StartResult, error) {
	total := DiscountedTotal(order.Total, coupon)

	params := stripeapi.Params{
		"amount":   total,
		"currency": order.Currency,
	}
	if order.Description != "" {
		params["description"] = order.Description
	}
	if len(order.Metadata) > 0 {
		params["metadata"] = order.Metadata
	}
	if feed.Settings.CaptureMethod == "manual" {
		params["capture_method"] = "manual"
	}
	if feed.Settings.ReceiptEnabled && order.Email != "" {
		params["receipt_email"] = order.Email
	}
	if len(feed.Settings.PaymentMethodTypes) > 0 {
		params["payment_method_types"] = withCard(feed.Settings.PaymentMethodTypes)
	} else {
		params["automatic_payment_methods"] = stripeapi.Params{"enabled": true}
	}

	var customerID string
	if order.CustomerID != "" || order.Email != "" {
		customer, err := o.ensureCustomer(ctx, client, order)
		if err != nil {
			return nil, err
		}
		customerID = customer.ID()
		params["customer"] = customerID
	}

	intent, err := client.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, err
	}

	continuation := Continuation{
		FormID:     feed.FormID,
		FeedID:     feed.ID,
		IntentID:   intent.ID(),
		Secret:     intent.ClientSecret(),
		Total:      total,
		CouponCode: order.CouponCode,
	}
	token, resumeToken, err := o.persistDraft(ctx, feed, order, continuation)
	if err != nil {
		return nil, err
	}

	return &StartResult{
		ClientSecret:      intent.ClientSecret(),
		ContinuationToken: token,
		ResumeToken:       resumeToken,
		Total:             total,
		TransactionID:     intent.ID(),
		CustomerID:        customerID,
	}, nil
}

// startSubscription handles recurring orders. The subscription is
// created incomplete so the first invoice's payment intent can be
// confirmed client-side; payment methods that settle asynchronously
// bill through a finalized invoice instead.
func (o *Orchestrator) startSubscription(ctx context.Context, client *stripeapi.Client, feed *Feed, order Order, coupon *stripeapi.Coupon) (*StartResult, error) {
	customer, err := o.ensureCustomer(ctx, client, order)
	if err != nil {
		return nil, err
	}

	plan, err := client.GetPlan(ctx, feed.Settings.PlanID)
	if err != nil {
		return nil, fmt.Errorf("checkout: resolving plan %s: %w", feed.Settings.PlanID, err)
	}

	if feed.Settings.SetupFee > 0 {
		_, err = customer.AddInvoiceItem(ctx, stripeapi.Params{
			"amount":      feed.Settings.SetupFee,
			"currency":    order.Currency,
			"description": "Setup fee",
		})
		if err != nil {
			return nil, fmt.Errorf("checkout: adding setup fee: %w", err)
		}
	}

	method := order.PaymentMethod
	if method == "" {
		method = "card"
	}
	sendInvoice := !automaticChargeMethods[method]

	params := stripeapi.Params{
		"customer":         customer,
		"items":            []stripeapi.Params{{"plan": plan.ID()}},
		"payment_behavior": "default_incomplete",
		"payment_settings": stripeapi.Params{"save_default_payment_method": "on_subscription"},
		"expand":           []string{"latest_invoice.payment_intent"},
	}
	if order.CouponCode != "" {
		params["coupon"] = order.CouponCode
	}
	if len(order.Metadata) > 0 {
		params["metadata"] = order.Metadata
	}
	if feed.Settings.TrialPeriodDays > 0 {
		params["trial_period_days"] = feed.Settings.TrialPeriodDays
	} else {
		params["trial_from_plan"] = true
	}
	if len(feed.Settings.PaymentMethodTypes) > 0 {
		settings := params["payment_settings"].(stripeapi.Params)
		settings["payment_method_types"] = withCard(feed.Settings.PaymentMethodTypes)
	}
	if sendInvoice {
		params["collection_method"] = "send_invoice"
		params["days_until_due"] = 1
	}

	subscription, err := client.CreateSubscription(ctx, params)
	if err != nil {
		return nil, err
	}

	total := DiscountedTotal(plan.Amount()+feed.Settings.SetupFee, coupon)
	continuation := Continuation{
		FormID:         feed.FormID,
		FeedID:         feed.ID,
		SubscriptionID: subscription.ID(),
		Total:          total,
		SetupFee:       feed.Settings.SetupFee,
		TrialDays:      feed.Settings.TrialPeriodDays,
		CouponCode:     order.CouponCode,
	}

	result := &StartResult{
		Total:          total,
		SubscriptionID: subscription.ID(),
		CustomerID:     customer.ID(),
	}

	if sendInvoice {
		invoiceID := subscription.LatestInvoiceID()
		if invoiceID == "" {
			return nil, fmt.Errorf("%w: subscription %s has no invoice to finalize", ErrInvalidRedirectState, subscription.ID())
		}
		invoice, err := client.FinalizeInvoice(ctx, invoiceID)
		if err != nil {
			return nil, fmt.Errorf("checkout: finalizing invoice %s: %w", invoiceID, err)
		}
		continuation.IntentID = invoice.ID()
		continuation.InvoiceID = invoice.ID()
		result.InvoiceID = invoice.ID()
		result.TransactionID = invoice.ID()
	} else if intent := firstPaymentIntent(subscription); intent != nil {
		// The saved method should cover future off-session renewals.
		_, err = client.UpdatePaymentIntent(ctx, intent.ID(), stripeapi.Params{
			"setup_future_usage": "off_session",
		})
		if err != nil {
			return nil, err
		}
		continuation.IntentID = intent.ID()
		continuation.Secret = intent.ClientSecret()
		result.ClientSecret = intent.ClientSecret()
		result.TransactionID = intent.ID()
	} else if setupIntentID := subscription.PendingSetupIntentID(); setupIntentID != "" {
		// Trials with no immediate charge collect the method through a
		// setup intent.
		setupIntent, err := client.GetSetupIntent(ctx, setupIntentID, nil)
		if err != nil {
			return nil, err
		}
		continuation.IntentID = setupIntent.ID()
		continuation.Secret = setupIntent.ClientSecret()
		result.ClientSecret = setupIntent.ClientSecret()
		result.TransactionID = setupIntent.ID()
	} else {
		return nil, fmt.Errorf("%w: subscription %s has neither a payment intent nor a setup intent", ErrInvalidRedirectState, subscription.ID())
	}

	token, resumeToken, err := o.persistDraft(ctx, feed, order, continuation)
	if err != nil {
		return nil, err
	}
	result.ContinuationToken = token
	result.ResumeToken = resumeToken
	return result, nil
}

// firstPaymentIntent digs the expanded payment intent out of the
// subscription's latest invoice.
func firstPaymentIntent(subscription *stripeapi.Subscription) *stripeapi.PaymentIntent {
	invoice := subscription.LatestInvoice()
	if invoice == nil {
		return nil
	}
	return invoice.PaymentIntent()
}

// ensureCustomer reuses an existing upstream customer when the order
// maps to one, updating its profile fields from the current submission,
// and creates one otherwise. The read-modify-write against the
// processor is unlocked; concurrent submissions from the same customer
// settle on a last-writer-wins basis.
func (o *Orchestrator) ensureCustomer(ctx context.Context, client *stripeapi.Client, order Order) (*stripeapi.Customer, error) {
	if order.CustomerID != "" {
		customer, err := client.GetCustomer(ctx, order.CustomerID)
		switch {
		case err == nil:
			if order.Email != "" {
				customer.Set("email", order.Email)
			}
			if order.Name != "" {
				customer.Set("name", order.Name)
			}
			if len(customer.UpdateParameters()) > 0 {
				return client.SaveCustomer(ctx, customer)
			}
			return customer, nil
		case errors.Is(err, stripeapi.ErrNotFound):
			// Stale reference; fall through to create.
		default:
			return nil, err
		}
	}

	params := stripeapi.Params{}
	if order.Email != "" {
		params["email"] = order.Email
	}
	if order.Name != "" {
		params["name"] = order.Name
	}
	if len(order.Metadata) > 0 {
		params["metadata"] = order.Metadata
	}
	return client.CreateCustomer(ctx, params)
}

// persistDraft seals the continuation and stores the unconfirmed
// submission with the host.
func (o *Orchestrator) persistDraft(ctx context.Context, feed *Feed, order Order, continuation Continuation) (token, resumeToken string, err error) {
	token, err = o.encryptor.Seal(continuation)
	if err != nil {
		return "", "", err
	}
	resumeToken, err = o.drafts.CreateDraft(ctx, &Draft{
		FormID:       feed.FormID,
		FeedID:       feed.ID,
		Continuation: token,
		Values: map[string]any{
			"email":          order.Email,
			"name":           order.Name,
			"total":          order.Total,
			"currency":       order.Currency,
			"payment_method": order.PaymentMethod,
		},
		CreatedAt: time.Now(),
	})
	if err != nil {
		return "", "", fmt.Errorf("checkout: persisting draft: %w", err)
	}
	return token, resumeToken, nil
}
