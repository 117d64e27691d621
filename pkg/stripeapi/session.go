package stripeapi

import (
	"context"
	"net/http"
)

// CheckoutSession represents a hosted checkout session. Sessions are
// immutable by contract: update/save fail with ErrImmutable.
type CheckoutSession struct {
	Object
}

func newCheckoutSession(data map[string]any, api *Client) *CheckoutSession {
	s := &CheckoutSession{}
	s.Object = newObject(api, objectConfig{
		endpoint:     "checkout/sessions",
		immutable:    true,
		immutableMsg: "checkout sessions cannot be updated",
	}, data)
	return s
}

func (s *CheckoutSession) Mode() string          { return s.GetString("mode") }
func (s *CheckoutSession) Status() string        { return s.GetString("status") }
func (s *CheckoutSession) PaymentStatus() string { return s.GetString("payment_status") }
func (s *CheckoutSession) URL() string           { return s.GetString("url") }
func (s *CheckoutSession) CustomerID() string    { return referenceID(s.Get("customer")) }
func (s *CheckoutSession) SubscriptionID() string {
	return referenceID(s.Get("subscription"))
}

// CreateCheckoutSession creates a hosted checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params Params) (*CheckoutSession, error) {
	response, err := c.create(ctx, "checkout/sessions", params)
	if err != nil {
		return nil, err
	}
	return newCheckoutSession(response, c), nil
}

// GetCheckoutSession retrieves a session; ErrNotFound when missing.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	response, err := c.retrieve(ctx, "checkout/sessions/"+id, nil)
	if err != nil {
		return nil, err
	}
	return newCheckoutSession(response, c), nil
}

// BillingPortalLink creates a billing-portal session for the customer
// and returns its URL.
func (c *Client) BillingPortalLink(ctx context.Context, customerID, returnURL string) (string, error) {
	params := Params{
		"customer":   customerID,
		"return_url": returnURL,
	}
	response, err := c.Request(ctx, "billing_portal/sessions", params, http.MethodPost, http.StatusOK)
	if err != nil {
		return "", err
	}
	link, _ := response["url"].(string)
	return link, nil
}
