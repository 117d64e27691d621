package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements checkout.Metrics using Prometheus.
type Metrics struct {
	checkoutsStarted *prometheus.CounterVec
	checkoutsResumed *prometheus.CounterVec
	checkoutDuration *prometheus.HistogramVec
	webhookEvents    *prometheus.CounterVec
	processorCalls   *prometheus.CounterVec
}

// NewMetrics creates a new Prometheus metrics implementation for the
// checkout orchestrator.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checkoutsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "started_total",
			Help:      "Total number of started checkouts.",
		}, []string{"transaction_type"}),

		checkoutsResumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "resumed_total",
			Help:      "Total number of resume attempts by outcome.",
		}, []string{"outcome"}),

		checkoutDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "phase_duration_seconds",
			Help:      "Duration of checkout start and resume phases in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),

		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "webhook_events_total",
			Help:      "Total number of webhook deliveries by type and status.",
		}, []string{"event_type", "status"}),

		processorCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "processor_calls_total",
			Help:      "Total number of processor API operations by status.",
		}, []string{"operation", "status"}),
	}
}

func (m *Metrics) RecordCheckoutStarted(transactionType string) {
	m.checkoutsStarted.WithLabelValues(transactionType).Inc()
}

func (m *Metrics) RecordCheckoutResumed(outcome string) {
	m.checkoutsResumed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCheckoutDuration(phase string, duration time.Duration) {
	m.checkoutDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

func (m *Metrics) RecordWebhookEvent(eventType, status string) {
	m.webhookEvents.WithLabelValues(eventType, status).Inc()
}

func (m *Metrics) RecordProcessorCall(operation, status string) {
	m.processorCalls.WithLabelValues(operation, status).Inc()
}
