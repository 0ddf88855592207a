package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for communication routing and inbox
// processing. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Router and inbox operations by outcome (ok or error code)
	Operations *prometheus.CounterVec

	OperationLatency *prometheus.HistogramVec

	// Communications written by operation
	Created *prometheus.CounterVec

	// Cancellation restores by target (inbox or administration)
	Restored *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "correspondence_communication_operations_total",
			Help: "Communication operations by operation and outcome",
		}, []string{"operation", "outcome"}),

		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "correspondence_communication_operation_duration_seconds",
			Help:    "Duration of communication operations including their transaction",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "correspondence_communications_created_total",
			Help: "Communications created by operation",
		}, []string{"operation"}),

		Restored: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "correspondence_communication_restores_total",
			Help: "Items restored after a cancellation by target",
		}, []string{"target"}),
	}
}

func (m *Metrics) ObserveOperation(operation, outcome string, d time.Duration) {
	if m != nil {
		m.Operations.WithLabelValues(operation, outcome).Inc()
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (m *Metrics) AddCreated(operation string, n int) {
	if m != nil {
		m.Created.WithLabelValues(operation).Add(float64(n))
	}
}

func (m *Metrics) IncrementRestored(target string) {
	if m != nil {
		m.Restored.WithLabelValues(target).Inc()
	}
}
