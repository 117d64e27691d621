// Package api provides ready-made HTTP endpoints for the checkout
// orchestrator: starting a checkout, resuming it after the processor
// redirect, and receiving webhook deliveries.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cmorrow/formpay/pkg/checkout"
	"github.com/cmorrow/formpay/pkg/stripeapi"
)

// Handler provides HTTP endpoints for hosted checkout flows.
type Handler struct {
	config   Config
	validate *validator.Validate
}

// StartCheckout handles POST /checkout.
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req StartCheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.config.Service.StartCheckout(r.Context(), req.FormID, req.FeedID, checkout.Order{
		Total:         req.Total,
		Currency:      req.Currency,
		Description:   req.Description,
		Email:         req.Email,
		Name:          req.Name,
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		CouponCode:    req.CouponCode,
		Metadata:      req.Metadata,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, StartCheckoutResponse{
		ClientSecret:      result.ClientSecret,
		InvoiceID:         result.InvoiceID,
		ContinuationToken: result.ContinuationToken,
		ResumeToken:       result.ResumeToken,
		Total:             result.Total,
		TransactionID:     result.TransactionID,
		SubscriptionID:    result.SubscriptionID,
		CustomerID:        result.CustomerID,
	})
}

// ResumeCheckout handles POST /checkout/resume.
func (h *Handler) ResumeCheckout(w http.ResponseWriter, r *http.Request) {
	var req ResumeCheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.config.Service.ResumeCheckout(r.Context(), req.ResumeToken, checkout.RedirectParams{
		ClientSecret: req.ClientSecret,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ResumeCheckoutResponse{
		EntryID:        result.EntryID,
		Amount:         result.Amount,
		Currency:       result.Currency,
		PaymentStatus:  result.PaymentStatus,
		TransactionID:  result.TransactionID,
		SubscriptionID: result.SubscriptionID,
		InvoiceID:      result.InvoiceID,
	})
}

// HandleWebhook handles POST /webhooks/stripe. The raw body is passed
// through untouched so signature verification sees the exact payload.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		return
	}

	action, err := h.config.Service.HandleWebhookEvent(r.Context(), body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, WebhookResponse{
		EventID:   action.EventID,
		EventType: action.EventType,
		Handled:   action.Kind != checkout.ActionIgnored,
		Duplicate: action.Duplicate,
	})
}

// Routes returns a mux with the three endpoints mounted.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /checkout", h.StartCheckout)
	mux.HandleFunc("POST /checkout/resume", h.ResumeCheckout)
	mux.HandleFunc("POST /webhooks/stripe", h.HandleWebhook)
	return mux
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_request",
				"invalid field: "+fields[0].Field())
			return false
		}
		h.writeError(w, http.StatusBadRequest, "invalid_request", "request failed validation")
		return false
	}
	return true
}

// handleError maps checkout errors to status codes. Internal failures
// are logged but never echoed to the caller.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if h.config.OnError != nil {
		h.config.OnError(w, r, err)
		return
	}

	switch {
	case errors.Is(err, checkout.ErrDraftNotFound):
		h.writeError(w, http.StatusNotFound, "draft_not_found", "no pending checkout for this token")
	case errors.Is(err, checkout.ErrPaymentDeclined):
		h.writeError(w, http.StatusPaymentRequired, "payment_declined", "the payment method was declined")
	case errors.Is(err, checkout.ErrCouponInvalid):
		h.writeError(w, http.StatusUnprocessableEntity, "coupon_invalid", "the coupon code is not valid")
	case errors.Is(err, checkout.ErrTotalMismatch):
		h.writeError(w, http.StatusConflict, "total_mismatch", "the charged amount does not match the order")
	case errors.Is(err, checkout.ErrInvalidRedirectState):
		h.writeError(w, http.StatusConflict, "invalid_state", "the checkout cannot be completed from this state")
	case errors.Is(err, stripeapi.ErrSignatureMismatch),
		errors.Is(err, stripeapi.ErrStaleTimestamp),
		errors.Is(err, stripeapi.ErrMalformedHeader),
		errors.Is(err, stripeapi.ErrMalformedPayload):
		h.writeError(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
	case errors.Is(err, stripeapi.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "a referenced processor object does not exist")
	default:
		var apiErr *stripeapi.APIError
		if errors.As(err, &apiErr) {
			h.config.Logger.Error("processor error", checkout.Field{Key: "error", Value: err})
			h.writeError(w, http.StatusBadGateway, "processor_error", "the payment processor rejected the request")
			return
		}
		h.config.Logger.Error("internal error", checkout.Field{Key: "error", Value: err})
		h.writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.config.Logger.Error("encoding response", checkout.Field{Key: "error", Value: err})
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
