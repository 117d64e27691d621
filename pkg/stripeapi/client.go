// Package stripeapi is a typed client for the payment processor's REST
// API. It provides the transport (signed form-encoded requests with a
// pinned API version), a model hierarchy with dirty-field tracking and
// declarative nested-object expansion, and the signed-webhook verifier.
package stripeapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// Version is reported in the User-Agent of outgoing requests.
	Version = "1.2.0"

	defaultBaseURL = "https://api.stripe.com/v1/"
	defaultTimeout = 30 * time.Second

	// apiVersion pins the processor API version for every request.
	apiVersion = "2023-10-16"
)

// Config configures a Client. Only SecretKey is required.
type Config struct {
	// SecretKey is the secret API credential. Requests fail with
	// ErrMissingCredential when it is empty.
	SecretKey string

	// BaseURL overrides the processor endpoint. Used by tests.
	BaseURL string

	// HTTPClient is an optional HTTP client. If nil, a default client
	// with a 30s timeout is used. A stuck call blocks the inbound
	// request; retries are the caller's concern, never the client's.
	HTTPClient *http.Client

	// Logger receives structured debug output. If nil, logging is a
	// no-op.
	Logger Logger

	// DebugLogging enables logging of outgoing requests and raw
	// responses. The Authorization header is redacted.
	DebugLogging bool

	// UserAgentSuffix is appended to the User-Agent, typically the host
	// site identifier.
	UserAgentSuffix string
}

// Client makes requests to the payment processor. Construct one per
// applicable credential and pass it explicitly; there is no ambient
// instance.
type Client struct {
	secretKey       string
	baseURL         string
	httpClient      *http.Client
	logger          Logger
	debugLogging    bool
	userAgentSuffix string
}

// New creates a Client from config, applying defaults.
func New(config Config) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	logger := config.Logger
	if logger == nil {
		logger = &NoopLogger{}
	}
	return &Client{
		secretKey:       strings.TrimSpace(config.SecretKey),
		baseURL:         baseURL,
		httpClient:      httpClient,
		logger:          logger,
		debugLogging:    config.DebugLogging,
		userAgentSuffix: config.UserAgentSuffix,
	}
}

// Request performs a call against the processor API. GET parameters go
// into the query string; all other methods send a urlencoded body with
// booleans as the literal strings "true"/"false" and model objects
// reduced to their IDs. A response status other than expectedStatus
// yields an *APIError carrying the processor's error message; network
// failures yield a *TransportError.
func (c *Client) Request(ctx context.Context, path string, params Params, method string, expectedStatus int) (map[string]any, error) {
	if c.secretKey == "" {
		return nil, ErrMissingCredential
	}

	requestURL := c.baseURL + path
	var body io.Reader
	encoded := ""
	if len(params) > 0 {
		encoded = encodeParams(params).Encode()
	}
	if method == http.MethodGet {
		if encoded != "" {
			requestURL += "?" + encoded
		}
	} else if encoded != "" {
		body = strings.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Stripe-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent())
	req.SetBasicAuth(c.secretKey, "")
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if c.debugLogging {
		c.logger.Debug("outgoing request",
			Field{Key: "method", Value: method},
			Field{Key: "url", Value: requestURL},
			Field{Key: "headers", Value: redactedHeaders(req.Header)},
			Field{Key: "body", Value: encoded},
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if c.debugLogging {
		c.logger.Debug("raw response",
			Field{Key: "status", Value: resp.StatusCode},
			Field{Key: "body", Value: string(rawBody)},
		)
	}

	var decoded map[string]any
	if len(rawBody) > 0 {
		// A malformed body on an error status must not mask the status
		// itself, so the decode error is only surfaced on success.
		decodeErr := json.Unmarshal(rawBody, &decoded)
		if decodeErr != nil && resp.StatusCode == expectedStatus {
			return nil, &TransportError{Err: decodeErr}
		}
	}

	if resp.StatusCode != expectedStatus {
		return nil, &APIError{Code: resp.StatusCode, Message: errorMessage(decoded)}
	}
	return decoded, nil
}

func (c *Client) userAgent() string {
	ua := "formpay/" + Version
	if c.userAgentSuffix != "" {
		ua += " (" + c.userAgentSuffix + ")"
	}
	return ua
}

// create POSTs params to a collection endpoint.
func (c *Client) create(ctx context.Context, endpoint string, params Params) (map[string]any, error) {
	return c.Request(ctx, endpoint, params, http.MethodPost, http.StatusOK)
}

// retrieve GETs a resource, mapping a 404 to ErrNotFound so callers can
// tell "does not exist" from "call failed".
func (c *Client) retrieve(ctx context.Context, path string, params Params) (map[string]any, error) {
	response, err := c.Request(ctx, path, params, http.MethodGet, http.StatusOK)
	if err != nil {
		return nil, notFoundOnMiss(err)
	}
	return response, nil
}

// errorMessage digs the processor's error/message path out of a failure
// body.
func errorMessage(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	msg, _ := errObj["message"].(string)
	return msg
}

// redactedHeaders copies headers with the Basic-auth credential masked
// so debug logs never carry the secret key.
func redactedHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key := range headers {
		if strings.EqualFold(key, "Authorization") {
			out[key] = "Basic [redacted]"
			continue
		}
		out[key] = headers.Get(key)
	}
	return out
}
