package stripeapi

import "context"

// Coupon represents a discount that can be applied to charges and
// subscriptions: either a flat amount off or a percentage off.
type Coupon struct {
	Object
}

var couponUpdatable = []string{
	"metadata",
	"name",
	"currency_options",
}

func newCoupon(data map[string]any, api *Client) *Coupon {
	co := &Coupon{}
	co.Object = newObject(api, objectConfig{
		endpoint:  "coupons",
		updatable: couponUpdatable,
	}, data)
	return co
}

func (co *Coupon) Valid() bool { return co.GetBool("valid") }

// AmountOff returns the flat discount in minor units, or 0 when the
// coupon is percentage-based.
func (co *Coupon) AmountOff() int64 { return co.GetInt("amount_off") }

// PercentOff returns the percentage discount, or 0 when the coupon is
// amount-based.
func (co *Coupon) PercentOff() float64 { return co.GetFloat("percent_off") }

// GetCoupon retrieves a coupon by code; ErrNotFound when missing.
func (c *Client) GetCoupon(ctx context.Context, code string) (*Coupon, error) {
	response, err := c.retrieve(ctx, "coupons/"+code, nil)
	if err != nil {
		return nil, err
	}
	return newCoupon(response, c), nil
}
