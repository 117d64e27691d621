package fiber

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmorrow/formpay/pkg/api"
	"github.com/cmorrow/formpay/pkg/checkout"
)

type stubService struct {
	startErr    error
	resumeErr   error
	webhookBody []byte
}

func (s *stubService) StartCheckout(context.Context, string, string, checkout.Order) (*checkout.StartResult, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return &checkout.StartResult{ResumeToken: "resume_1", ClientSecret: "pi_1_secret_x", Total: 100}, nil
}

func (s *stubService) ResumeCheckout(context.Context, string, checkout.RedirectParams) (*checkout.CompletionResult, error) {
	if s.resumeErr != nil {
		return nil, s.resumeErr
	}
	return &checkout.CompletionResult{EntryID: "entry_1", PaymentStatus: "Paid"}, nil
}

func (s *stubService) HandleWebhookEvent(_ context.Context, body []byte, _ string) (*checkout.RoutedAction, error) {
	s.webhookBody = body
	return &checkout.RoutedAction{Kind: checkout.ActionCompletePayment, EventID: "evt_1"}, nil
}

func newTestApp(t *testing.T, service *stubService) *fiber.App {
	t.Helper()
	app := fiber.New()
	RegisterRoutes(app, Config{Service: service, PathPrefix: "/v1"})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestStartCheckout(t *testing.T) {
	app := newTestApp(t, &stubService{})

	resp := postJSON(t, app, "/v1/checkout", api.StartCheckoutRequest{
		FormID: "form_1", FeedID: "feed_1", Total: 100, Currency: "usd",
	})
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var out api.StartCheckoutResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "resume_1", out.ResumeToken)
}

func TestStartCheckout_Validation(t *testing.T) {
	app := newTestApp(t, &stubService{})

	resp := postJSON(t, app, "/v1/checkout", api.StartCheckoutRequest{
		FeedID: "feed_1", Total: 100, Currency: "usd",
	})
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestResumeCheckout_ErrorMapping(t *testing.T) {
	app := newTestApp(t, &stubService{resumeErr: checkout.ErrPaymentDeclined})

	resp := postJSON(t, app, "/v1/checkout/resume", api.ResumeCheckoutRequest{
		ResumeToken: "resume_1", ClientSecret: "pi_1_secret_x",
	})
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	var out api.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "payment_declined", out.Code)
}

func TestHandleWebhook_RawBody(t *testing.T) {
	service := &stubService{}
	app := newTestApp(t, service)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, payload, service.webhookBody)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out api.WebhookResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Handled)
}
