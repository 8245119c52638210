// Package metrics exposes the registry's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration engine and the outbox relay.
type Metrics struct {
	// Admissions by record kind
	Registered *prometheus.CounterVec

	// Rejections by record kind and reason
	Rejected *prometheus.CounterVec

	RegisterDuration *prometheus.HistogramVec

	OutboxPublished      prometheus.Counter
	OutboxPublishFailure prometheus.Counter
}

// New registers the registry collectors with reg. Tests pass a fresh
// prometheus.NewRegistry so repeated construction does not panic.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerreg_records_registered_total",
			Help: "Total records admitted by kind",
		}, []string{"kind"}),

		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerreg_registrations_rejected_total",
			Help: "Total registrations rejected by kind and reason",
		}, []string{"kind", "reason"}),

		RegisterDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledgerreg_register_duration_seconds",
			Help:    "Duration of register calls including rejected ones",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),

		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "ledgerreg_outbox_published_total",
			Help: "Total outbox events delivered to the event log",
		}),

		OutboxPublishFailure: f.NewCounter(prometheus.CounterOpts{
			Name: "ledgerreg_outbox_publish_failures_total",
			Help: "Total outbox batches that failed to publish",
		}),
	}
}

func (m *Metrics) IncRegistered(kind string) {
	if m != nil {
		m.Registered.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncRejected(kind, reason string) {
	if m != nil {
		m.Rejected.WithLabelValues(kind, reason).Inc()
	}
}

// ObserveRegister records the duration of one register call.
func (m *Metrics) ObserveRegister(kind string, d time.Duration) {
	if m != nil {
		m.RegisterDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

func (m *Metrics) AddOutboxPublished(n int) {
	if m != nil {
		m.OutboxPublished.Add(float64(n))
	}
}

func (m *Metrics) IncOutboxPublishFailure() {
	if m != nil {
		m.OutboxPublishFailure.Inc()
	}
}
