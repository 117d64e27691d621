package stripeapi

import "context"

// Refund represents a full or partial return of a charge.
type Refund struct {
	Object
}

var refundUpdatable = []string{
	"metadata",
}

func newRefund(data map[string]any, api *Client) *Refund {
	r := &Refund{}
	r.Object = newObject(api, objectConfig{
		endpoint:  "refunds",
		updatable: refundUpdatable,
	}, data)
	return r
}

func (r *Refund) Amount() int64  { return r.GetInt("amount") }
func (r *Refund) Status() string { return r.GetString("status") }

// CreateRefund refunds a transaction. When byPaymentIntent is true the
// transaction ID is treated as a payment intent reference, otherwise as
// a charge reference.
func (c *Client) CreateRefund(ctx context.Context, transactionID string, byPaymentIntent bool) (*Refund, error) {
	key := "charge"
	if byPaymentIntent {
		key = "payment_intent"
	}
	response, err := c.create(ctx, "refunds", Params{key: transactionID})
	if err != nil {
		return nil, err
	}
	return newRefund(response, c), nil
}
