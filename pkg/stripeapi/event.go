package stripeapi

import "context"

// Event is a read-only model wrapping a webhook delivery:
// {id, type, api_version, livemode, data}. Its data field expands into
// EventData, whose object expands polymorphically.
type Event struct {
	Object
}

func newEvent(data map[string]any, api *Client) *Event {
	e := &Event{}
	e.Object = newObject(api, objectConfig{
		endpoint:     "events",
		immutable:    true,
		immutableMsg: "events cannot be updated",
		nested: map[string]nestedCtor{
			"data": func(m map[string]any, api *Client) any { return newEventData(m, api) },
		},
	}, data)
	return e
}

func (e *Event) Type() string       { return e.GetString("type") }
func (e *Event) APIVersion() string { return e.GetString("api_version") }
func (e *Event) Livemode() bool     { return e.GetBool("livemode") }
func (e *Event) Created() int64     { return e.GetInt("created") }

// Data returns the expanded event data, or nil when absent.
func (e *Event) Data() *EventData {
	d, _ := e.Get("data").(*EventData)
	return d
}

// GetEvent retrieves an event by ID; ErrNotFound when missing.
func (c *Client) GetEvent(ctx context.Context, id string) (*Event, error) {
	response, err := c.retrieve(ctx, "events/"+id, nil)
	if err != nil {
		return nil, err
	}
	return newEvent(response, c), nil
}

// EventData wraps an event's data envelope. Its object field is
// expanded into the concrete variant matching the payload's own object
// tag; unrecognized tags fall back to the generic EventObject.
type EventData struct {
	Object
}

func newEventData(data map[string]any, api *Client) *EventData {
	d := &EventData{}
	d.Object = newObject(api, objectConfig{
		immutable:    true,
		immutableMsg: "event data cannot be updated",
		expandHook:   expandEventObject,
	}, data)
	return d
}

// RawObject returns the expanded data.object model. Callers type-assert
// to the concrete variant, falling back on EventObject for unrecognized
// payloads.
func (d *EventData) RawObject() any {
	return d.Get("object")
}

// Charge returns the expanded object as a Charge, or nil.
func (d *EventData) Charge() *Charge {
	ch, _ := d.Get("object").(*Charge)
	return ch
}

// PaymentIntent returns the expanded object as a PaymentIntent, or nil.
func (d *EventData) PaymentIntent() *PaymentIntent {
	pi, _ := d.Get("object").(*PaymentIntent)
	return pi
}

// Invoice returns the expanded object as an Invoice, or nil.
func (d *EventData) Invoice() *Invoice {
	inv, _ := d.Get("object").(*Invoice)
	return inv
}

// Subscription returns the expanded object as a Subscription, or nil.
func (d *EventData) Subscription() *Subscription {
	s, _ := d.Get("object").(*Subscription)
	return s
}

// expandEventObject maps the payload's object tag to a concrete variant
// constructor. The tag set is closed; unknown tags produce the untyped
// EventObject wrapper rather than failing.
func expandEventObject(key string, value any, api *Client) (any, bool) {
	if key != "object" {
		return nil, false
	}
	raw, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	tag, _ := raw["object"].(string)
	if ctor, known := eventObjectCtors[tag]; known {
		return ctor(raw, api), true
	}
	return newEventObject(raw, api), true
}

var eventObjectCtors = map[string]nestedCtor{
	"account":                      func(m map[string]any, api *Client) any { return newAccount(m, api) },
	"charge":                       func(m map[string]any, api *Client) any { return newCharge(m, api) },
	"coupon":                       func(m map[string]any, api *Client) any { return newCoupon(m, api) },
	"customer":                     func(m map[string]any, api *Client) any { return newCustomer(m, api) },
	"customer_balance_transaction": func(m map[string]any, api *Client) any { return newCustomerBalanceTransaction(m, api) },
	"invoice":                      func(m map[string]any, api *Client) any { return newInvoice(m, api) },
	"invoiceitem":                  func(m map[string]any, api *Client) any { return newInvoiceItem(m, api) },
	"payment_intent":               func(m map[string]any, api *Client) any { return newPaymentIntent(m, api) },
	"payment_method":               func(m map[string]any, api *Client) any { return newPaymentMethod(m, api) },
	"plan":                         func(m map[string]any, api *Client) any { return newPlan(m, api) },
	"product":                      func(m map[string]any, api *Client) any { return newProduct(m, api) },
	"refund":                       func(m map[string]any, api *Client) any { return newRefund(m, api) },
	"checkout.session":             func(m map[string]any, api *Client) any { return newCheckoutSession(m, api) },
	"setup_intent":                 func(m map[string]any, api *Client) any { return newSetupIntent(m, api) },
	"subscription":                 func(m map[string]any, api *Client) any { return newSubscription(m, api) },
}

// EventObject is the untyped fallback wrapper for event payloads whose
// object tag has no dedicated variant.
type EventObject struct {
	Object
}

func newEventObject(data map[string]any, api *Client) *EventObject {
	o := &EventObject{}
	o.Object = newObject(api, objectConfig{
		immutable:    true,
		immutableMsg: "event objects cannot be updated",
	}, data)
	return o
}
