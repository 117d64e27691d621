package api

// StartCheckoutRequest is the payload for starting a checkout.
type StartCheckoutRequest struct {
	FormID string `json:"form_id" validate:"required,max=64"`
	FeedID string `json:"feed_id" validate:"required,max=64"`

	// Total is the order amount in minor units before any discount.
	// Plan-priced subscriptions may submit zero.
	Total    int64  `json:"total" validate:"gte=0"`
	Currency string `json:"currency" validate:"required,len=3,lowercase"`

	Description string `json:"description,omitempty" validate:"max=500"`

	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Name  string `json:"name,omitempty" validate:"max=255"`

	CustomerID    string `json:"customer_id,omitempty" validate:"max=255"`
	PaymentMethod string `json:"payment_method,omitempty" validate:"max=64"`
	CouponCode    string `json:"coupon_code,omitempty" validate:"max=64"`

	Metadata map[string]string `json:"metadata,omitempty" validate:"max=50,dive,keys,max=40,endkeys,max=500"`
}

// StartCheckoutResponse carries everything the client needs to confirm
// the payment and return.
type StartCheckoutResponse struct {
	ClientSecret      string `json:"client_secret,omitempty"`
	InvoiceID         string `json:"invoice_id,omitempty"`
	ContinuationToken string `json:"continuation_token"`
	ResumeToken       string `json:"resume_token"`
	Total             int64  `json:"total"`
	TransactionID     string `json:"transaction_id,omitempty"`
	SubscriptionID    string `json:"subscription_id,omitempty"`
	CustomerID        string `json:"customer_id,omitempty"`
}

// ResumeCheckoutRequest is the payload for finishing a checkout after
// the processor redirect.
type ResumeCheckoutRequest struct {
	ResumeToken  string `json:"resume_token" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
}

// ResumeCheckoutResponse reports the finalized entry.
type ResumeCheckoutResponse struct {
	EntryID        string `json:"entry_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	PaymentStatus  string `json:"payment_status"`
	TransactionID  string `json:"transaction_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	InvoiceID      string `json:"invoice_id,omitempty"`
}

// WebhookResponse acknowledges a processed webhook delivery.
type WebhookResponse struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Handled   bool   `json:"handled"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
