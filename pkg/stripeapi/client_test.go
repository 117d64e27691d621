package stripeapi_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmorrow/formpay/pkg/stripeapi"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *stripeapi.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return stripeapi.New(stripeapi.Config{
		SecretKey: "sk_test_secret",
		BaseURL:   server.URL,
	})
}

func TestRequest_SendsAuthAndVersionHeaders(t *testing.T) {
	var (
		gotUser, gotPass string
		gotVersion       string
		gotAccept        string
		gotContentType   string
		gotUA            string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		gotVersion = r.Header.Get("Stripe-Version")
		gotAccept = r.Header.Get("Accept")
		gotContentType = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, `{"id":"cus_123","object":"customer"}`)
	})

	_, err := client.CreateCustomer(context.Background(), stripeapi.Params{"email": "a@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "sk_test_secret", gotUser)
	assert.Empty(t, gotPass)
	assert.Equal(t, "2023-10-16", gotVersion)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.True(t, strings.HasPrefix(gotUA, "formpay/"), "user agent %q", gotUA)
}

func TestRequest_FormEncoding(t *testing.T) {
	var form map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		fmt.Fprint(w, `{"id":"pi_123"}`)
	})

	_, err := client.CreatePaymentIntent(context.Background(), stripeapi.Params{
		"amount":               1500,
		"currency":             "usd",
		"capture_method":       "manual",
		"metadata":             stripeapi.Params{"form_id": "42", "entry_id": "7"},
		"payment_method_types": []string{"card", "link"},
		"confirm":              false,
	})
	require.NoError(t, err)

	assert.Equal(t, "1500", form["amount"][0])
	assert.Equal(t, "usd", form["currency"][0])
	assert.Equal(t, "false", form["confirm"][0], "booleans encode as literal strings")
	assert.Equal(t, "42", form["metadata[form_id]"][0], "nested maps use bracket notation")
	assert.Equal(t, "7", form["metadata[entry_id]"][0])
	assert.Equal(t, "card", form["payment_method_types[0]"][0], "arrays use indexed brackets")
	assert.Equal(t, "link", form["payment_method_types[1]"][0])
}

func TestRequest_ModelParameterReducesToID(t *testing.T) {
	step := 0
	var form map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		step++
		if step == 1 {
			fmt.Fprint(w, `{"id":"cus_abc","object":"customer"}`)
			return
		}
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		fmt.Fprint(w, `{"id":"sub_123"}`)
	})

	ctx := context.Background()
	customer, err := client.GetCustomer(ctx, "cus_abc")
	require.NoError(t, err)

	_, err = client.CreateSubscription(ctx, stripeapi.Params{
		"customer": customer,
		"items":    []stripeapi.Params{{"plan": "plan_1"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "cus_abc", form["customer"][0], "model values reduce to their ID")
	assert.Equal(t, "plan_1", form["items[0][plan]"][0])
}

func TestRequest_GetParamsGoIntoQueryString(t *testing.T) {
	var query map[string][]string
	var hasBody bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		body := make([]byte, 1)
		n, _ := r.Body.Read(body)
		hasBody = n > 0
		fmt.Fprint(w, `{"id":"pi_123","status":"succeeded"}`)
	})

	_, err := client.GetPaymentIntent(context.Background(), "pi_123", stripeapi.Params{
		"expand": []string{"invoice"},
	})
	require.NoError(t, err)

	assert.Equal(t, "invoice", query["expand[0]"][0])
	assert.False(t, hasBody, "GET requests must not carry a body")
}

func TestRequest_MissingCredential(t *testing.T) {
	client := stripeapi.New(stripeapi.Config{SecretKey: "  "})
	_, err := client.GetCustomer(context.Background(), "cus_123")
	assert.ErrorIs(t, err, stripeapi.ErrMissingCredential)
}

func TestRetrieve_MissingResourceIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"message":"No such customer: cus_missing"}}`)
	})

	_, err := client.GetCustomer(context.Background(), "cus_missing")
	assert.ErrorIs(t, err, stripeapi.ErrNotFound)
}

func TestRequest_APIErrorCarriesProcessorMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"message":"Your card was declined."}}`)
	})

	_, err := client.CreatePaymentIntent(context.Background(), stripeapi.Params{"amount": 100})
	var apiErr *stripeapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.Code)
	assert.Equal(t, "Your card was declined.", apiErr.Message)
}

func TestRequest_NetworkFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	client := stripeapi.New(stripeapi.Config{
		SecretKey: "sk_test_secret",
		BaseURL:   server.URL,
	})
	_, err := client.GetCustomer(context.Background(), "cus_123")

	var transportErr *stripeapi.TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.False(t, errors.Is(err, stripeapi.ErrNotFound))
}

func TestSave_SendsOnlyDirtyWhitelistedFields(t *testing.T) {
	step := 0
	var form map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		step++
		if step == 1 {
			fmt.Fprint(w, `{"id":"cus_123","email":"old@example.com","name":"Unchanged","currency":"usd"}`)
			return
		}
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		assert.Equal(t, "/customers/cus_123", r.URL.Path)
		fmt.Fprint(w, `{"id":"cus_123","email":"new@example.com","name":"Unchanged"}`)
	})

	ctx := context.Background()
	customer, err := client.GetCustomer(ctx, "cus_123")
	require.NoError(t, err)

	customer.Set("email", "new@example.com")
	updated, err := client.SaveCustomer(ctx, customer)
	require.NoError(t, err)

	assert.Equal(t, []string{"new@example.com"}, form["email"])
	_, hasName := form["name"]
	assert.False(t, hasName, "unchanged fields must not be transmitted")
	assert.Equal(t, "new@example.com", updated.Email())
}

// captureLogger records debug entries so tests can inspect what would be
// written to the log.
type captureLogger struct {
	mu      sync.Mutex
	entries []map[string]any
}

func (l *captureLogger) log(fields []stripeapi.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := make(map[string]any, len(fields))
	for _, f := range fields {
		entry[f.Key] = f.Value
	}
	l.entries = append(l.entries, entry)
}

func (l *captureLogger) Debug(msg string, fields ...stripeapi.Field) { l.log(fields) }
func (l *captureLogger) Info(msg string, fields ...stripeapi.Field)  { l.log(fields) }
func (l *captureLogger) Warn(msg string, fields ...stripeapi.Field)  { l.log(fields) }
func (l *captureLogger) Error(msg string, fields ...stripeapi.Field) { l.log(fields) }

func TestDebugLogging_RedactsAuthorizationHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"cus_123"}`)
	}))
	t.Cleanup(server.Close)

	logger := &captureLogger{}
	client := stripeapi.New(stripeapi.Config{
		SecretKey:    "sk_test_secret",
		BaseURL:      server.URL,
		Logger:       logger,
		DebugLogging: true,
	})

	_, err := client.GetCustomer(context.Background(), "cus_123")
	require.NoError(t, err)
	require.NotEmpty(t, logger.entries)

	for _, entry := range logger.entries {
		headers, ok := entry["headers"].(map[string]string)
		if !ok {
			continue
		}
		assert.Equal(t, "Basic [redacted]", headers["Authorization"])
	}
	assert.NotContains(t, fmt.Sprint(logger.entries), "sk_test_secret")
}
