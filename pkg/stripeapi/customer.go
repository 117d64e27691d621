package stripeapi

import (
	"context"
	"net/http"
)

// Customer represents an upstream customer record.
type Customer struct {
	Object
}

var customerUpdatable = []string{
	"address",
	"description",
	"email",
	"metadata",
	"name",
	"phone",
	"shipping",
	"balance",
	"coupon",
	"default_source",
	"invoice_prefix",
	"invoice_settings",
	"next_invoice_sequence",
	"preferred_locales",
	"promotion_code",
	"source",
	"tax",
	"tax_exempt",
}

func newCustomer(data map[string]any, api *Client) *Customer {
	cu := &Customer{}
	cu.Object = newObject(api, objectConfig{
		endpoint:  "customers",
		updatable: customerUpdatable,
	}, data)
	return cu
}

func (cu *Customer) Email() string { return cu.GetString("email") }
func (cu *Customer) Name() string  { return cu.GetString("name") }

// AddInvoiceItem creates a pending invoice item attached to this
// customer; it will be picked up by the customer's next invoice.
func (cu *Customer) AddInvoiceItem(ctx context.Context, data Params) (*InvoiceItem, error) {
	if data == nil {
		data = Params{}
	}
	data["customer"] = cu.ID()
	return cu.api.AddInvoiceItem(ctx, data)
}

// CreateCustomer creates a customer.
func (c *Client) CreateCustomer(ctx context.Context, params Params) (*Customer, error) {
	response, err := c.create(ctx, "customers", params)
	if err != nil {
		return nil, err
	}
	return newCustomer(response, c), nil
}

// GetCustomer retrieves a customer; ErrNotFound when missing.
func (c *Client) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	response, err := c.retrieve(ctx, "customers/"+id, nil)
	if err != nil {
		return nil, err
	}
	return newCustomer(response, c), nil
}

// UpdateCustomer updates a customer by ID.
func (c *Client) UpdateCustomer(ctx context.Context, id string, params Params) (*Customer, error) {
	response, err := c.create(ctx, "customers/"+id, params)
	if err != nil {
		return nil, err
	}
	return newCustomer(response, c), nil
}

// SaveCustomer transmits the customer's whitelisted dirty fields.
func (c *Client) SaveCustomer(ctx context.Context, customer *Customer) (*Customer, error) {
	return c.UpdateCustomer(ctx, customer.ID(), customer.UpdateParameters())
}

// AdjustCustomerBalance applies a balance credit or debit to the
// customer, returning the resulting balance transaction. Balance
// transactions themselves are immutable; adjustments always go through
// this call.
func (c *Client) AdjustCustomerBalance(ctx context.Context, customerID string, amount int64, currency string) (*CustomerBalanceTransaction, error) {
	params := Params{
		"amount":   amount,
		"currency": currency,
	}
	response, err := c.Request(ctx, "customers/"+customerID+"/balance_transactions", params, http.MethodPost, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newCustomerBalanceTransaction(response, c), nil
}
