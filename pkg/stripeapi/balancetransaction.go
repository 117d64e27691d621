package stripeapi

// CustomerBalanceTransaction represents a credit or debit applied to a
// customer's balance. Balance transactions are immutable: adjustments
// go through Client.AdjustCustomerBalance, never through update/save.
type CustomerBalanceTransaction struct {
	Object
}

func newCustomerBalanceTransaction(data map[string]any, api *Client) *CustomerBalanceTransaction {
	t := &CustomerBalanceTransaction{}
	t.Object = newObject(api, objectConfig{
		endpoint:     "customer_balance_transactions",
		immutable:    true,
		immutableMsg: "customer balance transactions cannot be updated; use AdjustCustomerBalance",
	}, data)
	return t
}

func (t *CustomerBalanceTransaction) Amount() int64        { return t.GetInt("amount") }
func (t *CustomerBalanceTransaction) EndingBalance() int64 { return t.GetInt("ending_balance") }
