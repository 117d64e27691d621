package stripeapi

import "context"

// Account represents the processor account the credential belongs to.
type Account struct {
	Object
}

var accountUpdatable = []string{
	"business_type",
	"capabilities",
	"metadata",
	"account_token",
	"settings",
}

func newAccount(data map[string]any, api *Client) *Account {
	a := &Account{}
	a.Object = newObject(api, objectConfig{
		endpoint:  "accounts",
		updatable: accountUpdatable,
	}, data)
	return a
}

func (a *Account) Country() string        { return a.GetString("country") }
func (a *Account) ChargesEnabled() bool   { return a.GetBool("charges_enabled") }
func (a *Account) DefaultCurrency() string { return a.GetString("default_currency") }

// GetAccount retrieves the account for the configured credential;
// ErrNotFound when missing.
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	response, err := c.retrieve(ctx, "account", nil)
	if err != nil {
		return nil, err
	}
	return newAccount(response, c), nil
}
