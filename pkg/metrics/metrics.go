// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// WebhookEventsTotal counts inbound webhook events by result tag.
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Inbound webhook events by result status",
		},
		[]string{"status"},
	)

	// DuplicatesSuppressed counts inbound messages dropped by the
	// duplicate filter.
	DuplicatesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_duplicates_suppressed_total",
			Help: "Inbound messages suppressed as duplicates",
		},
	)

	// ExtractionDuration tracks extraction round-trip duration.
	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extraction_duration_seconds",
			Help:    "Extraction service round-trip duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider", "outcome"},
	)

	// OutboundMessagesTotal counts dispatch attempts by outcome.
	OutboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_messages_total",
			Help: "Outbound messages by dispatch outcome",
		},
		[]string{"outcome"},
	)

	// DeliveriesCompleted counts deliveries whose disposition reached
	// complete.
	DeliveriesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deliveries_completed_total",
			Help: "Deliveries whose disposition completed",
		},
	)

	// BatchesCreated counts created delivery batches.
	BatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batches_created_total",
			Help: "Delivery batches created",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordWebhookEvent records the result tag of an inbound event.
func RecordWebhookEvent(status string) {
	WebhookEventsTotal.WithLabelValues(status).Inc()
}

// RecordExtraction records an extraction round trip.
func RecordExtraction(provider, outcome string, seconds float64) {
	ExtractionDuration.WithLabelValues(provider, outcome).Observe(seconds)
}

// RecordOutbound records a dispatch attempt.
func RecordOutbound(outcome string) {
	OutboundMessagesTotal.WithLabelValues(outcome).Inc()
}
