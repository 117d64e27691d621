package stripeapi

import (
	"context"
	"net/http"
)

// Charge represents a completed or attempted movement of funds.
type Charge struct {
	Object
}

var (
	chargeUpdatable = []string{
		"customer",
		"description",
		"metadata",
		"receipt_email",
		"shipping",
		"fraud_details",
	}

	chargeCapturable = []string{
		"amount",
		"receipt_email",
		"statement_descriptor",
		"statement_descriptor_suffix",
	}
)

func newCharge(data map[string]any, api *Client) *Charge {
	ch := &Charge{}
	ch.Object = newObject(api, objectConfig{
		endpoint:  "charges",
		updatable: chargeUpdatable,
		nested: map[string]nestedCtor{
			"payment_intent":      func(m map[string]any, api *Client) any { return newPaymentIntent(m, api) },
			"invoice":             func(m map[string]any, api *Client) any { return newInvoice(m, api) },
			"customer":            func(m map[string]any, api *Client) any { return newCustomer(m, api) },
			"balance_transaction": func(m map[string]any, api *Client) any { return newCustomerBalanceTransaction(m, api) },
		},
	}, data)
	return ch
}

func (ch *Charge) Amount() int64          { return ch.GetInt("amount") }
func (ch *Charge) Status() string         { return ch.GetString("status") }
func (ch *Charge) Paid() bool             { return ch.GetBool("paid") }
func (ch *Charge) PaymentIntentID() string { return referenceID(ch.Get("payment_intent")) }

// CaptureParameters returns the dirty diff restricted to the capture
// endpoint's whitelist.
func (ch *Charge) CaptureParameters() Params {
	return ch.serializeParameters(chargeCapturable)
}

// CreateCharge creates a charge.
func (c *Client) CreateCharge(ctx context.Context, params Params) (*Charge, error) {
	response, err := c.create(ctx, "charges", params)
	if err != nil {
		return nil, err
	}
	return newCharge(response, c), nil
}

// GetCharge retrieves a charge by transaction ID; ErrNotFound when
// missing.
func (c *Client) GetCharge(ctx context.Context, id string) (*Charge, error) {
	response, err := c.retrieve(ctx, "charges/"+id, nil)
	if err != nil {
		return nil, err
	}
	return newCharge(response, c), nil
}

// SaveCharge transmits the charge's whitelisted dirty fields.
func (c *Client) SaveCharge(ctx context.Context, charge *Charge) (*Charge, error) {
	response, err := c.create(ctx, "charges/"+charge.ID(), charge.UpdateParameters())
	if err != nil {
		return nil, err
	}
	return newCharge(response, c), nil
}

// CaptureCharge captures a previously authorized charge.
func (c *Client) CaptureCharge(ctx context.Context, charge *Charge) (*Charge, error) {
	response, err := c.Request(ctx, "charges/"+charge.ID()+"/capture", charge.CaptureParameters(), http.MethodPost, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newCharge(response, c), nil
}
