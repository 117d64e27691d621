package stripeapi

// PaymentMethod represents a stored means of payment.
type PaymentMethod struct {
	Object
}

var paymentMethodUpdatable = []string{
	"billing_details",
	"metadata",
	"card",
	"link",
	"us_bank_account",
}

func newPaymentMethod(data map[string]any, api *Client) *PaymentMethod {
	pm := &PaymentMethod{}
	pm.Object = newObject(api, objectConfig{
		endpoint:  "payment_methods",
		updatable: paymentMethodUpdatable,
	}, data)
	return pm
}

func (pm *PaymentMethod) Type() string { return pm.GetString("type") }

// Card returns the card details mapping, or nil for non-card methods.
func (pm *PaymentMethod) Card() map[string]any { return pm.GetMap("card") }
