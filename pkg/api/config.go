package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cmorrow/formpay/pkg/checkout"
)

// CheckoutService is the orchestrator surface the handler needs.
// *checkout.Orchestrator satisfies it.
type CheckoutService interface {
	StartCheckout(ctx context.Context, formID, feedID string, order checkout.Order) (*checkout.StartResult, error)
	ResumeCheckout(ctx context.Context, resumeToken string, redirect checkout.RedirectParams) (*checkout.CompletionResult, error)
	HandleWebhookEvent(ctx context.Context, body []byte, sigHeader string) (*checkout.RoutedAction, error)
}

// Config holds configuration for the checkout API handler.
type Config struct {
	// Service executes checkout operations (required).
	Service CheckoutService

	// Logger is optional; defaults to a no-op logger.
	Logger checkout.Logger

	// OnError overrides the default JSON error responses.
	// If nil, errors are mapped to status codes by errorStatus.
	OnError func(http.ResponseWriter, *http.Request, error)

	// MaxBodyBytes bounds request body size (default: 1 MiB).
	MaxBodyBytes int64
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Service == nil {
		return fmt.Errorf("service is required")
	}
	return nil
}

// NewHandler creates a new checkout API handler with the given
// configuration.
func NewHandler(config Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Logger == nil {
		config.Logger = &checkout.NoopLogger{}
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}
	return &Handler{
		config:   config,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}
