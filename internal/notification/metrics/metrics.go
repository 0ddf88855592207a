package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks completion notifications. A nil *Metrics records nothing.
type Metrics struct {
	Outcomes    *prometheus.CounterVec
	SendLatency prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "correspondence_notifications_total",
			Help: "Completion notifications by outcome",
		}, []string{"outcome"}),
		SendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "correspondence_notification_send_duration_seconds",
			Help:    "Duration of calls to the messaging gateway",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveSend(d time.Duration) {
	if m != nil {
		m.SendLatency.Observe(d.Seconds())
	}
}
