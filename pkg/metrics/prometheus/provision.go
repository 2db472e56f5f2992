package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/pushstore/pkg/metrics"
)

// provisionMetrics is the Prometheus implementation of provision.Metrics.
type provisionMetrics struct {
	provisions   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	deprovisions *prometheus.CounterVec
}

// NewProvisionMetrics creates the provisioning metrics on the shared
// registry. Returns nil if metrics are not enabled.
func NewProvisionMetrics() *provisionMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &provisionMetrics{
		provisions: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Name:      "provisions_total",
				Help:      "Datastore provisioning attempts by backend kind and outcome",
			},
			[]string{"kind", "outcome"},
		)),
		duration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Name:      "provision_duration_milliseconds",
				Help:      "Duration of provisioning calls, including synchronous service start",
				Buckets: []float64{
					0.1,   // planning failures
					1,     // in-memory start
					10,    // local sqlite
					100,   // remote connect
					1000,  // connect with retries
					5000,  // slow backend
					30000, // exhausted retries
				},
			},
			[]string{"kind"},
		)),
		deprovisions: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Name:      "deprovisions_total",
				Help:      "Datastore removals by outcome",
			},
			[]string{"outcome"},
		)),
	}
}

func (m *provisionMetrics) ObserveProvision(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.provisions.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(float64(d.Microseconds()) / 1000)
}

func (m *provisionMetrics) ObserveDeprovision(outcome string) {
	if m == nil {
		return
	}
	m.deprovisions.WithLabelValues(outcome).Inc()
}
