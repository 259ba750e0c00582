// Package metrics holds the Prometheus collectors shared by the reservation
// service, the tool adapter and the HTTP layer.  A nil *Metrics is valid and
// records nothing, so tests and the CLI can run without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels used across counters.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeNotFound    = "not_found"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

// Metrics groups every collector the application exposes.
type Metrics struct {
	// ReservationOps counts lifecycle operations by op and outcome.
	ReservationOps *prometheus.CounterVec
	// AvailabilityChecks counts availability verdicts by result code.
	AvailabilityChecks *prometheus.CounterVec
	// PersistDuration tracks the durable write sequence.
	PersistDuration prometheus.Histogram
	// PersistFailures counts failed durable writes.
	PersistFailures prometheus.Counter
	// ToolCalls counts tool invocations by tool name and outcome.
	ToolCalls *prometheus.CounterVec
	// EventPublishFailures counts events the broker did not accept.
	EventPublishFailures prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ReservationOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_operations_total",
			Help: "Reservation lifecycle operations by operation and outcome",
		}, []string{"op", "outcome"}),
		AvailabilityChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_availability_checks_total",
			Help: "Availability checks by result code",
		}, []string{"code"}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "reservation_persist_duration_seconds",
			Help:    "Durable write duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "reservation_persist_failures_total",
			Help: "Durable writes that failed and were rolled back",
		}),
		ToolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_tool_calls_total",
			Help: "Tool invocations by tool and outcome",
		}, []string{"tool", "outcome"}),
		EventPublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "reservation_event_publish_failures_total",
			Help: "Lifecycle events that could not be published",
		}),
	}
}

// ObserveOp increments the lifecycle counter.
func (m *Metrics) ObserveOp(op, outcome string) {
	if m == nil {
		return
	}
	m.ReservationOps.WithLabelValues(op, outcome).Inc()
}

// ObserveAvailability increments the availability counter for code.
func (m *Metrics) ObserveAvailability(code string) {
	if m == nil {
		return
	}
	m.AvailabilityChecks.WithLabelValues(code).Inc()
}

// ObservePersist matches the store's persist observer signature.
func (m *Metrics) ObservePersist(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.PersistFailures.Inc()
	}
}

// ObserveTool increments the tool counter.
func (m *Metrics) ObserveTool(tool, outcome string) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

// ObservePublishFailure increments the publish failure counter.
func (m *Metrics) ObservePublishFailure() {
	if m == nil {
		return
	}
	m.EventPublishFailures.Inc()
}
