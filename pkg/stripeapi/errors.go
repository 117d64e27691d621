package stripeapi

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when a request is attempted without a secret API key
	ErrMissingCredential = errors.New("secret API key is not set")

	// ErrNotFound is returned when a retrieve targets a resource that does not exist upstream
	ErrNotFound = errors.New("resource not found")

	// ErrImmutable is returned when update/save is called on an object the API treats as read-only
	ErrImmutable = errors.New("object cannot be updated")
)

// APIError is a structured rejection from the payment processor: the HTTP
// status code and the processor-supplied error message.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("stripe API error (status %d)", e.Code)
	}
	return fmt.Sprintf("stripe API error (status %d): %s", e.Code, e.Message)
}

// TransportError wraps a network-level failure reaching the processor.
// It is distinct from APIError: the request never produced a processor
// response, so retrying is at the caller's discretion.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "stripe request failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// notFoundOnMiss converts a 404 APIError into ErrNotFound so callers can
// implement create-or-fetch patterns without inspecting status codes.
func notFoundOnMiss(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	}
	return err
}
