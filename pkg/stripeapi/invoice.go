package stripeapi

import (
	"context"
	"net/http"
)

// Invoice represents a statement of amounts owed by a customer.
type Invoice struct {
	Object
}

var invoiceUpdatable = []string{
	"auto_advance",
	"collection_method",
	"description",
	"metadata",
	"account_tax_ids",
	"automatic_tax",
	"custom_fields",
	"days_until_due",
	"default_payment_method",
	"default_source",
	"default_tax_rates",
	"discounts",
	"due_date",
	"effective_at",
	"footer",
	"payment_settings",
	"rendering",
	"shipping_cost",
	"shipping_details",
	"statement_descriptor",
}

func newInvoice(data map[string]any, api *Client) *Invoice {
	inv := &Invoice{}
	inv.Object = newObject(api, objectConfig{
		endpoint:  "invoices",
		updatable: invoiceUpdatable,
		nested: map[string]nestedCtor{
			"payment_intent": func(m map[string]any, api *Client) any { return newPaymentIntent(m, api) },
		},
	}, data)
	return inv
}

func (inv *Invoice) Status() string      { return inv.GetString("status") }
func (inv *Invoice) AmountDue() int64    { return inv.GetInt("amount_due") }
func (inv *Invoice) AmountPaid() int64   { return inv.GetInt("amount_paid") }
func (inv *Invoice) Total() int64        { return inv.GetInt("total") }
func (inv *Invoice) CustomerID() string  { return referenceID(inv.Get("customer")) }
func (inv *Invoice) HostedURL() string   { return inv.GetString("hosted_invoice_url") }
func (inv *Invoice) Subscription() string {
	return referenceID(inv.Get("subscription"))
}

// PaymentIntent returns the expanded payment intent, or nil when the
// field is an unexpanded reference.
func (inv *Invoice) PaymentIntent() *PaymentIntent {
	pi, _ := inv.Get("payment_intent").(*PaymentIntent)
	return pi
}

// PaymentIntentID works whether or not payment_intent was expanded.
func (inv *Invoice) PaymentIntentID() string {
	return referenceID(inv.Get("payment_intent"))
}

// GetInvoice retrieves an invoice; ErrNotFound when missing.
func (c *Client) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	response, err := c.retrieve(ctx, "invoices/"+id, nil)
	if err != nil {
		return nil, err
	}
	return newInvoice(response, c), nil
}

// PayInvoice attempts payment of the invoice.
func (c *Client) PayInvoice(ctx context.Context, invoice *Invoice, params Params) (*Invoice, error) {
	response, err := c.Request(ctx, "invoices/"+invoice.ID()+"/pay", params, http.MethodPost, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newInvoice(response, c), nil
}

// FinalizeInvoice finalizes a draft invoice so it can be paid or sent.
func (c *Client) FinalizeInvoice(ctx context.Context, id string) (*Invoice, error) {
	response, err := c.Request(ctx, "invoices/"+id+"/finalize", nil, http.MethodPost, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newInvoice(response, c), nil
}

// InvoiceItem represents a pending line item for a customer's next
// invoice.
type InvoiceItem struct {
	Object
}

var invoiceItemUpdatable = []string{
	"amount",
	"description",
	"metadata",
	"period",
	"price",
	"discountable",
	"discounts",
	"price_data",
	"quantity",
	"tax_behavior",
	"tax_code",
	"tax_rates",
	"unit_amount",
	"unit_amount_decimal",
}

func newInvoiceItem(data map[string]any, api *Client) *InvoiceItem {
	item := &InvoiceItem{}
	item.Object = newObject(api, objectConfig{
		endpoint:  "invoiceitems",
		updatable: invoiceItemUpdatable,
	}, data)
	return item
}

// AddInvoiceItem creates an invoice item.
func (c *Client) AddInvoiceItem(ctx context.Context, params Params) (*InvoiceItem, error) {
	response, err := c.create(ctx, "invoiceitems", params)
	if err != nil {
		return nil, err
	}
	return newInvoiceItem(response, c), nil
}
