package stripeapi

import "context"

// SetupIntent represents an attempt to save a payment method for future
// use without moving money.
type SetupIntent struct {
	Object
}

var setupIntentUpdatable = []string{
	"customer",
	"description",
	"metadata",
	"payment_method",
	"attach_to_self",
	"flow_directions",
	"payment_method_configuration",
	"payment_method_data",
	"payment_method_options",
	"payment_method_types",
}

func newSetupIntent(data map[string]any, api *Client) *SetupIntent {
	si := &SetupIntent{}
	si.Object = newObject(api, objectConfig{
		endpoint:  "setup_intents",
		updatable: setupIntentUpdatable,
		nested: map[string]nestedCtor{
			"payment_method": func(m map[string]any, api *Client) any { return newPaymentMethod(m, api) },
		},
	}, data)
	return si
}

func (si *SetupIntent) Status() string       { return si.GetString("status") }
func (si *SetupIntent) ClientSecret() string { return si.GetString("client_secret") }
func (si *SetupIntent) CustomerID() string   { return referenceID(si.Get("customer")) }

// PaymentMethod returns the expanded payment method, or nil when the
// field is an unexpanded reference.
func (si *SetupIntent) PaymentMethod() *PaymentMethod {
	pm, _ := si.Get("payment_method").(*PaymentMethod)
	return pm
}

// CreateSetupIntent creates a setup intent.
func (c *Client) CreateSetupIntent(ctx context.Context, params Params) (*SetupIntent, error) {
	response, err := c.create(ctx, "setup_intents", params)
	if err != nil {
		return nil, err
	}
	return newSetupIntent(response, c), nil
}

// GetSetupIntent retrieves a setup intent; ErrNotFound when missing.
func (c *Client) GetSetupIntent(ctx context.Context, id string, params Params) (*SetupIntent, error) {
	response, err := c.retrieve(ctx, "setup_intents/"+id, params)
	if err != nil {
		return nil, err
	}
	return newSetupIntent(response, c), nil
}

// UpdateSetupIntent updates a setup intent by ID.
func (c *Client) UpdateSetupIntent(ctx context.Context, id string, params Params) (*SetupIntent, error) {
	response, err := c.create(ctx, "setup_intents/"+id, params)
	if err != nil {
		return nil, err
	}
	return newSetupIntent(response, c), nil
}
