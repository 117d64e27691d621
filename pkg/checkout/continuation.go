package checkout

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Continuation is the state carried across the client-side redirect:
// enough to refetch the authoritative processor object and re-run the
// server-side consistency checks without trusting anything the client
// sends back. It travels only inside an encrypted token.
type Continuation struct {
	FormID string `json:"form_id"`
	FeedID string `json:"feed_id"`

	// IntentID is the payment intent, setup intent, or invoice ID to
	// refetch; its prefix selects the object kind on resume.
	IntentID string `json:"intent_id"`

	// Secret is the intent's client secret as issued at start time. The
	// redirect parameters must claim the same one.
	Secret string `json:"secret,omitempty"`

	SubscriptionID string `json:"subscription_id,omitempty"`
	InvoiceID      string `json:"invoice_id,omitempty"`

	// Fields for the resume-time coupon consistency check.
	Total      int64  `json:"total"`
	SetupFee   int64  `json:"setup_fee,omitempty"`
	TrialDays  int64  `json:"trial_days,omitempty"`
	CouponCode string `json:"coupon,omitempty"`
}

// ErrInvalidToken is returned when a continuation token fails to
// decrypt or authenticate.
var ErrInvalidToken = errors.New("checkout: invalid continuation token")

// Encryptor seals and opens continuation tokens with AES-256-GCM under
// a per-installation key. Tokens are authenticated: any tampering fails
// Open with ErrInvalidToken.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor from a 32-byte key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("checkout: encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Encryptor{aead: aead}, nil
}

// Seal serializes and encrypts a continuation into a URL-safe token.
func (e *Encryptor) Seal(c Continuation) (string, error) {
	plaintext, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts and deserializes a token produced by Seal.
func (e *Encryptor) Open(token string) (Continuation, error) {
	var c Continuation
	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, ErrInvalidToken
	}
	if len(sealed) < e.aead.NonceSize() {
		return c, ErrInvalidToken
	}
	nonce, ciphertext := sealed[:e.aead.NonceSize()], sealed[e.aead.NonceSize():]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return c, ErrInvalidToken
	}
	if err := json.Unmarshal(plaintext, &c); err != nil {
		return c, ErrInvalidToken
	}
	return c, nil
}
