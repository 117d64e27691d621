package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmorrow/formpay/pkg/checkout"
)

type stubService struct {
	startResult  *checkout.StartResult
	startErr     error
	startFormID  string
	startOrder   checkout.Order
	resumeResult *checkout.CompletionResult
	resumeErr    error
	resumeToken  string
	action       *checkout.RoutedAction
	webhookErr   error
	webhookBody  []byte
}

func (s *stubService) StartCheckout(_ context.Context, formID, feedID string, order checkout.Order) (*checkout.StartResult, error) {
	s.startFormID = formID
	s.startOrder = order
	return s.startResult, s.startErr
}

func (s *stubService) ResumeCheckout(_ context.Context, resumeToken string, _ checkout.RedirectParams) (*checkout.CompletionResult, error) {
	s.resumeToken = resumeToken
	return s.resumeResult, s.resumeErr
}

func (s *stubService) HandleWebhookEvent(_ context.Context, body []byte, _ string) (*checkout.RoutedAction, error) {
	s.webhookBody = body
	return s.action, s.webhookErr
}

func newTestHandler(t *testing.T, service CheckoutService) *Handler {
	t.Helper()
	handler, err := NewHandler(Config{Service: service})
	require.NoError(t, err)
	return handler
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStartCheckout(t *testing.T) {
	service := &stubService{startResult: &checkout.StartResult{
		ClientSecret:      "pi_1_secret_x",
		ContinuationToken: "sealed",
		ResumeToken:       "resume_1",
		Total:             1500,
		TransactionID:     "pi_1",
	}}
	handler := newTestHandler(t, service)

	rec := postJSON(t, handler.StartCheckout, StartCheckoutRequest{
		FormID:   "form_1",
		FeedID:   "feed_1",
		Total:    1500,
		Currency: "usd",
		Email:    "a@example.com",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp StartCheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pi_1_secret_x", resp.ClientSecret)
	assert.Equal(t, "resume_1", resp.ResumeToken)
	assert.Equal(t, int64(1500), resp.Total)

	assert.Equal(t, "form_1", service.startFormID)
	assert.Equal(t, "a@example.com", service.startOrder.Email)
}

func TestStartCheckout_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  StartCheckoutRequest
	}{
		{"missing form", StartCheckoutRequest{FeedID: "feed_1", Total: 100, Currency: "usd"}},
		{"missing feed", StartCheckoutRequest{FormID: "form_1", Total: 100, Currency: "usd"}},
		{"bad currency", StartCheckoutRequest{FormID: "form_1", FeedID: "feed_1", Total: 100, Currency: "USDX"}},
		{"negative total", StartCheckoutRequest{FormID: "form_1", FeedID: "feed_1", Total: -1, Currency: "usd"}},
		{"bad email", StartCheckoutRequest{FormID: "form_1", FeedID: "feed_1", Total: 100, Currency: "usd", Email: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &stubService{}
			handler := newTestHandler(t, service)
			rec := postJSON(t, handler.StartCheckout, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_request", decodeError(t, rec).Code)
			assert.Empty(t, service.startFormID, "service must not be called")
		})
	}
}

func TestStartCheckout_MalformedJSON(t *testing.T) {
	handler := newTestHandler(t, &stubService{})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	handler.StartCheckout(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decodeError(t, rec).Code)
}

func TestResumeCheckout(t *testing.T) {
	service := &stubService{resumeResult: &checkout.CompletionResult{
		EntryID:       "entry_1",
		Amount:        1500,
		Currency:      "usd",
		PaymentStatus: "Paid",
		TransactionID: "pi_1",
	}}
	handler := newTestHandler(t, service)

	rec := postJSON(t, handler.ResumeCheckout, ResumeCheckoutRequest{
		ResumeToken:  "resume_1",
		ClientSecret: "pi_1_secret_x",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ResumeCheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "entry_1", resp.EntryID)
	assert.Equal(t, "Paid", resp.PaymentStatus)
	assert.Equal(t, "resume_1", service.resumeToken)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{checkout.ErrDraftNotFound, http.StatusNotFound, "draft_not_found"},
		{checkout.ErrPaymentDeclined, http.StatusPaymentRequired, "payment_declined"},
		{checkout.ErrCouponInvalid, http.StatusUnprocessableEntity, "coupon_invalid"},
		{checkout.ErrTotalMismatch, http.StatusConflict, "total_mismatch"},
		{checkout.ErrInvalidRedirectState, http.StatusConflict, "invalid_state"},
		{errors.New("storage exploded"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			handler := newTestHandler(t, &stubService{resumeErr: tt.err})
			rec := postJSON(t, handler.ResumeCheckout, ResumeCheckoutRequest{
				ResumeToken:  "resume_1",
				ClientSecret: "pi_1_secret_x",
			})
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotContains(t, body.Message, "exploded", "internal detail must not leak")
		})
	}
}

func TestHandleWebhook(t *testing.T) {
	service := &stubService{action: &checkout.RoutedAction{
		Kind:      checkout.ActionCompletePayment,
		EventID:   "evt_1",
		EventType: "payment_intent.succeeded",
	}}
	handler := newTestHandler(t, service)

	payload := []byte(`{"id":"evt_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "evt_1", resp.EventID)
	assert.True(t, resp.Handled)
	assert.Equal(t, payload, service.webhookBody, "raw body must reach verification untouched")
}

func TestHandleWebhook_IgnoredEvent(t *testing.T) {
	service := &stubService{action: &checkout.RoutedAction{
		Kind:      checkout.ActionIgnored,
		EventID:   "evt_2",
		EventType: "charge.succeeded",
	}}
	handler := newTestHandler(t, service)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Handled)
}

func TestRoutes(t *testing.T) {
	service := &stubService{startResult: &checkout.StartResult{ResumeToken: "resume_1"}}
	handler := newTestHandler(t, service)
	server := httptest.NewServer(handler.Routes())
	defer server.Close()

	body, _ := json.Marshal(StartCheckoutRequest{
		FormID: "form_1", FeedID: "feed_1", Total: 100, Currency: "usd",
	})
	resp, err := http.Post(server.URL+"/checkout", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	getResp, err := http.Get(server.URL + "/checkout")
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}
