package checkout

import "time"

// Metrics defines the interface for tracking checkout operations.
// All methods are optional; the orchestrator falls back to NoopMetrics
// when none is configured.
type Metrics interface {
	// RecordCheckoutStarted records a started checkout.
	// transactionType: "product" or "subscription"
	RecordCheckoutStarted(transactionType string)

	// RecordCheckoutResumed records a resume attempt.
	// outcome: "completed", "declined", "invalid", "already_processed", "error"
	RecordCheckoutResumed(outcome string)

	// RecordCheckoutDuration records how long a start or resume took.
	// phase: "start" or "resume"
	RecordCheckoutDuration(phase string, duration time.Duration)

	// RecordWebhookEvent records a webhook delivery.
	// status: "routed", "duplicate", "ignored", "rejected"
	RecordWebhookEvent(eventType, status string)

	// RecordProcessorCall records an outbound processor API operation.
	// status: "success" or "error"
	RecordProcessorCall(operation, status string)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordCheckoutStarted(_ string)                   {}
func (n *NoopMetrics) RecordCheckoutResumed(_ string)                   {}
func (n *NoopMetrics) RecordCheckoutDuration(_ string, _ time.Duration) {}
func (n *NoopMetrics) RecordWebhookEvent(_, _ string)                   {}
func (n *NoopMetrics) RecordProcessorCall(_, _ string)                  {}
