package stripeapi_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmorrow/formpay/pkg/stripeapi"
)

const webhookSecret = "whsec_test_secret"

func signPayload(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func signedHeader(secret string, timestamp int64, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signPayload(secret, timestamp, payload))
}

var intentSucceededPayload = []byte(`{
	"id": "evt_1",
	"type": "payment_intent.succeeded",
	"api_version": "2023-10-16",
	"livemode": false,
	"data": {
		"object": {
			"id": "pi_1",
			"object": "payment_intent",
			"status": "succeeded",
			"amount": 1500
		}
	}
}`)

func TestConstructEvent_ValidSignature(t *testing.T) {
	now := time.Now().Unix()
	header := signedHeader(webhookSecret, now, intentSucceededPayload)

	event, err := stripeapi.ConstructEvent(intentSucceededPayload, header, webhookSecret)
	require.NoError(t, err)

	assert.Equal(t, "payment_intent.succeeded", event.Type())
	assert.Equal(t, "2023-10-16", event.APIVersion())
	assert.False(t, event.Livemode())

	pi := event.Data().PaymentIntent()
	require.NotNil(t, pi)
	assert.Equal(t, "succeeded", pi.Status())
	assert.Equal(t, int64(1500), pi.Amount())
}

func TestConstructEvent_AnyOfMultipleSignaturesMatches(t *testing.T) {
	now := time.Now().Unix()
	good := signPayload(webhookSecret, now, intentSucceededPayload)
	stale := signPayload("whsec_rotated_out", now, intentSucceededPayload)
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s", now, stale, good)

	_, err := stripeapi.ConstructEvent(intentSucceededPayload, header, webhookSecret)
	assert.NoError(t, err)
}

func TestConstructEvent_TamperedSignature(t *testing.T) {
	now := time.Now().Unix()
	sig := signPayload(webhookSecret, now, intentSucceededPayload)
	flipped := "0" + sig[1:]
	if flipped == sig {
		flipped = "1" + sig[1:]
	}
	header := fmt.Sprintf("t=%d,v1=%s", now, flipped)

	_, err := stripeapi.ConstructEvent(intentSucceededPayload, header, webhookSecret)
	assert.ErrorIs(t, err, stripeapi.ErrSignatureMismatch)
}

func TestConstructEvent_TamperedPayload(t *testing.T) {
	now := time.Now().Unix()
	header := signedHeader(webhookSecret, now, intentSucceededPayload)

	tampered := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_other"}}}`)
	_, err := stripeapi.ConstructEvent(tampered, header, webhookSecret)
	assert.ErrorIs(t, err, stripeapi.ErrSignatureMismatch)
}

func TestConstructEvent_WrongSecret(t *testing.T) {
	now := time.Now().Unix()
	header := signedHeader("whsec_other_endpoint", now, intentSucceededPayload)

	_, err := stripeapi.ConstructEvent(intentSucceededPayload, header, webhookSecret)
	assert.ErrorIs(t, err, stripeapi.ErrSignatureMismatch)
}

func TestConstructEvent_StaleTimestamp(t *testing.T) {
	signedAt := int64(1700000000)
	header := signedHeader(webhookSecret, signedAt, intentSucceededPayload)

	opts := stripeapi.VerifyOptions{
		Now: func() time.Time { return time.Unix(signedAt+301, 0) },
	}
	_, err := stripeapi.ConstructEventWithOptions(intentSucceededPayload, header, webhookSecret, opts)
	assert.ErrorIs(t, err, stripeapi.ErrStaleTimestamp)

	// The boundary itself is accepted.
	opts.Now = func() time.Time { return time.Unix(signedAt+300, 0) }
	_, err = stripeapi.ConstructEventWithOptions(intentSucceededPayload, header, webhookSecret, opts)
	assert.NoError(t, err)
}

func TestConstructEvent_FutureTimestampOutsideTolerance(t *testing.T) {
	signedAt := int64(1700000000)
	header := signedHeader(webhookSecret, signedAt, intentSucceededPayload)

	opts := stripeapi.VerifyOptions{
		Now: func() time.Time { return time.Unix(signedAt-600, 0) },
	}
	_, err := stripeapi.ConstructEventWithOptions(intentSucceededPayload, header, webhookSecret, opts)
	assert.ErrorIs(t, err, stripeapi.ErrStaleTimestamp)
}

func TestConstructEvent_ToleranceDisabled(t *testing.T) {
	signedAt := int64(1500000000) // years ago
	header := signedHeader(webhookSecret, signedAt, intentSucceededPayload)

	opts := stripeapi.VerifyOptions{Tolerance: -1}
	_, err := stripeapi.ConstructEventWithOptions(intentSucceededPayload, header, webhookSecret, opts)
	assert.NoError(t, err)
}

func TestConstructEvent_MalformedHeader(t *testing.T) {
	now := time.Now().Unix()
	sig := signPayload(webhookSecret, now, intentSucceededPayload)

	cases := map[string]string{
		"empty":             "",
		"missing timestamp": "v1=" + sig,
		"missing signature": fmt.Sprintf("t=%d", now),
		"garbage timestamp": "t=notanumber,v1=" + sig,
		"wrong scheme only": fmt.Sprintf("t=%d,v0=%s", now, sig),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := stripeapi.ConstructEvent(intentSucceededPayload, header, webhookSecret)
			assert.ErrorIs(t, err, stripeapi.ErrMalformedHeader)
		})
	}
}

func TestConstructEvent_MalformedPayload(t *testing.T) {
	payload := []byte("this is not json")
	now := time.Now().Unix()
	header := signedHeader(webhookSecret, now, payload)

	_, err := stripeapi.ConstructEvent(payload, header, webhookSecret)
	assert.ErrorIs(t, err, stripeapi.ErrMalformedPayload)
}

func TestConstructEvent_UnknownObjectTypeStillVerifies(t *testing.T) {
	payload := []byte(`{
		"id": "evt_2",
		"type": "mandate.updated",
		"data": {"object": {"id": "mandate_1", "object": "mandate", "status": "active"}}
	}`)
	now := time.Now().Unix()
	header := signedHeader(webhookSecret, now, payload)

	event, err := stripeapi.ConstructEvent(payload, header, webhookSecret)
	require.NoError(t, err)

	obj, ok := event.Data().RawObject().(*stripeapi.EventObject)
	require.True(t, ok, "unknown object tags fall back to EventObject, got %T", event.Data().RawObject())
	assert.Equal(t, "active", obj.GetString("status"))
}
