package stripeapi

import (
	"context"
	"net/http"
)

// PaymentIntent represents an attempt to move money, progressing through
// a status lifecycle that ends in success, failure, or cancellation.
type PaymentIntent struct {
	Object
}

// The update, confirm, and capture endpoints accept three disjoint
// parameter whitelists over the same entity.
var (
	paymentIntentUpdatable = []string{
		"amount",
		"currency",
		"customer",
		"description",
		"metadata",
		"payment_method",
		"receipt_email",
		"setup_future_usage",
		"shipping",
		"statement_descriptor",
		"statement_descriptor_suffix",
		"payment_method_data",
		"payment_method_options",
		"payment_method_types",
	}

	paymentIntentConfirmable = []string{
		"payment_method",
		"receipt_email",
		"setup_future_usage",
		"shipping",
		"error_on_requires_action",
		"mandate_data",
		"payment_method_data",
		"return_url",
		"use_stripe_sdk",
	}

	paymentIntentCapturable = []string{
		"amount_to_capture",
		"metadata",
		"statement_descriptor",
		"statement_descriptor_suffix",
	}
)

func newPaymentIntent(data map[string]any, api *Client) *PaymentIntent {
	pi := &PaymentIntent{}
	pi.Object = newObject(api, objectConfig{
		endpoint:  "payment_intents",
		updatable: paymentIntentUpdatable,
		nested: map[string]nestedCtor{
			"payment_method": func(m map[string]any, api *Client) any { return newPaymentMethod(m, api) },
			"invoice":        func(m map[string]any, api *Client) any { return newInvoice(m, api) },
		},
	}, data)
	return pi
}

func (pi *PaymentIntent) Amount() int64        { return pi.GetInt("amount") }
func (pi *PaymentIntent) Currency() string     { return pi.GetString("currency") }
func (pi *PaymentIntent) Status() string       { return pi.GetString("status") }
func (pi *PaymentIntent) ClientSecret() string { return pi.GetString("client_secret") }
func (pi *PaymentIntent) CustomerID() string   { return referenceID(pi.Get("customer")) }

// PaymentMethod returns the expanded payment method, or nil when the
// field is an unexpanded reference.
func (pi *PaymentIntent) PaymentMethod() *PaymentMethod {
	pm, _ := pi.Get("payment_method").(*PaymentMethod)
	return pm
}

// Invoice returns the expanded invoice, or nil when the field is an
// unexpanded reference.
func (pi *PaymentIntent) Invoice() *Invoice {
	inv, _ := pi.Get("invoice").(*Invoice)
	return inv
}

// ConfirmParameters returns the dirty diff restricted to the confirm
// endpoint's whitelist.
func (pi *PaymentIntent) ConfirmParameters() Params {
	return pi.serializeParameters(paymentIntentConfirmable)
}

// CaptureParameters returns the dirty diff restricted to the capture
// endpoint's whitelist.
func (pi *PaymentIntent) CaptureParameters() Params {
	return pi.serializeParameters(paymentIntentCapturable)
}

// CreatePaymentIntent creates a payment intent.
func (c *Client) CreatePaymentIntent(ctx context.Context, params Params) (*PaymentIntent, error) {
	response, err := c.create(ctx, "payment_intents", params)
	if err != nil {
		return nil, err
	}
	return newPaymentIntent(response, c), nil
}

// GetPaymentIntent retrieves a payment intent. A missing intent yields
// ErrNotFound. params may carry retrieval options such as expand.
func (c *Client) GetPaymentIntent(ctx context.Context, id string, params Params) (*PaymentIntent, error) {
	response, err := c.retrieve(ctx, "payment_intents/"+id, params)
	if err != nil {
		return nil, err
	}
	return newPaymentIntent(response, c), nil
}

// ConfirmPaymentIntent confirms the intent server-side using the
// intent's dirty confirm parameters.
func (c *Client) ConfirmPaymentIntent(ctx context.Context, intent *PaymentIntent) (*PaymentIntent, error) {
	response, err := c.Request(ctx, "payment_intents/"+intent.ID()+"/confirm", intent.ConfirmParameters(), http.MethodPost, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newPaymentIntent(response, c), nil
}

// CapturePaymentIntent captures a previously authorized intent.
func (c *Client) CapturePaymentIntent(ctx context.Context, intent *PaymentIntent) (*PaymentIntent, error) {
	response, err := c.Request(ctx, "payment_intents/"+intent.ID()+"/capture", intent.CaptureParameters(), http.MethodPost, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newPaymentIntent(response, c), nil
}

// UpdatePaymentIntent updates an intent by ID.
func (c *Client) UpdatePaymentIntent(ctx context.Context, id string, data Params) (*PaymentIntent, error) {
	response, err := c.create(ctx, "payment_intents/"+id, data)
	if err != nil {
		return nil, err
	}
	return newPaymentIntent(response, c), nil
}

// SavePaymentIntent transmits the intent's whitelisted dirty fields.
func (c *Client) SavePaymentIntent(ctx context.Context, intent *PaymentIntent) (*PaymentIntent, error) {
	return c.UpdatePaymentIntent(ctx, intent.ID(), intent.UpdateParameters())
}

// CancelPaymentIntent cancels an intent, optionally recording a reason.
// Cancellation produces a new snapshot reflecting the server-side state,
// not a removed object.
func (c *Client) CancelPaymentIntent(ctx context.Context, id string, reason string) (*PaymentIntent, error) {
	params := Params{}
	if reason != "" {
		params["cancellation_reason"] = reason
	}
	response, err := c.Request(ctx, "payment_intents/"+id+"/cancel", params, http.MethodPost, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newPaymentIntent(response, c), nil
}
