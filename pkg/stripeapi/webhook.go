package stripeapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the maximum accepted age of a signed webhook
// payload, measured from the timestamp embedded in the signature
// header.
const DefaultTolerance = 300 * time.Second

// Webhook verification errors.
var (
	// ErrMalformedHeader is returned when the signature header lacks a
	// timestamp or a v1 signature.
	ErrMalformedHeader = errors.New("stripeapi: malformed signature header")

	// ErrSignatureMismatch is returned when no v1 signature in the
	// header matches the expected HMAC of the payload.
	ErrSignatureMismatch = errors.New("stripeapi: no matching signature")

	// ErrStaleTimestamp is returned when the signed timestamp is
	// outside the verification tolerance.
	ErrStaleTimestamp = errors.New("stripeapi: timestamp outside tolerance")

	// ErrMalformedPayload is returned when a verified payload is not
	// valid JSON.
	ErrMalformedPayload = errors.New("stripeapi: malformed event payload")
)

// VerifyOptions tunes signature verification. The zero value applies
// DefaultTolerance and the wall clock.
type VerifyOptions struct {
	// Tolerance overrides DefaultTolerance when positive. A negative
	// value disables the staleness check.
	Tolerance time.Duration

	// Now supplies the verification clock. Defaults to time.Now.
	Now func() time.Time
}

// ConstructEvent verifies a webhook payload against the Stripe-Signature
// header value and the endpoint's signing secret, then hydrates the
// event. Verification must pass before any part of the payload is
// parsed or trusted.
func ConstructEvent(payload []byte, header, secret string) (*Event, error) {
	return ConstructEventWithOptions(payload, header, secret, VerifyOptions{})
}

// ConstructEventWithOptions is ConstructEvent with an explicit clock
// and tolerance, for callers replaying stored deliveries or testing.
func ConstructEventWithOptions(payload []byte, header, secret string, opts VerifyOptions) (*Event, error) {
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return nil, err
	}

	tolerance := opts.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}
	if tolerance > 0 {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		age := now().Unix() - timestamp
		if age < 0 {
			age = -age
		}
		if age > int64(tolerance/time.Second) {
			return nil, ErrStaleTimestamp
		}
	}

	expected := computeSignature(timestamp, payload, secret)
	matched := false
	for _, sig := range signatures {
		if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) == 1 {
			matched = true
		}
	}
	if !matched {
		return nil, ErrSignatureMismatch
	}

	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, ErrMalformedPayload
	}
	return newEvent(data, nil), nil
}

// ConstructEvent verifies and hydrates a webhook payload, binding the
// resulting event's models to this client for follow-up API calls.
func (c *Client) ConstructEvent(payload []byte, header, secret string) (*Event, error) {
	return c.ConstructEventWithOptions(payload, header, secret, VerifyOptions{})
}

func (c *Client) ConstructEventWithOptions(payload []byte, header, secret string, opts VerifyOptions) (*Event, error) {
	if _, err := ConstructEventWithOptions(payload, header, secret, opts); err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, ErrMalformedPayload
	}
	return newEvent(data, c), nil
}

// parseSignatureHeader splits a Stripe-Signature header into its signed
// timestamp and the v1 signature list. Elements under other schemes are
// ignored.
func parseSignatureHeader(header string) (int64, []string, error) {
	var (
		timestamp  int64 = -1
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "t":
			ts, err := strconv.ParseInt(pair[1], 10, 64)
			if err != nil {
				return 0, nil, ErrMalformedHeader
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, pair[1])
		}
	}
	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, ErrMalformedHeader
	}
	return timestamp, signatures, nil
}

// computeSignature produces the hex HMAC-SHA256 of "{t}.{payload}"
// keyed by the endpoint secret.
func computeSignature(timestamp int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
