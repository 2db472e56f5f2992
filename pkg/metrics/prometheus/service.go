package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/pushstore/pkg/metrics"
	"github.com/marmos91/pushstore/pkg/service"
)

// serviceMetrics is the Prometheus implementation of service.Metrics.
type serviceMetrics struct {
	registrations *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	services      *prometheus.GaugeVec
}

// NewServiceMetrics creates the service container metrics on the shared
// registry. Returns nil if metrics are not enabled.
func NewServiceMetrics() *serviceMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &serviceMetrics{
		registrations: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Name:      "service_registrations_total",
				Help:      "Service registration attempts by outcome",
			},
			[]string{"outcome"}, // registered, name_conflict, dependency_unsatisfiable, invalid
		)),
		transitions: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Name:      "service_transitions_total",
				Help:      "Service lifecycle transitions",
			},
			[]string{"from", "to"},
		)),
		services: register(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Name:      "services",
				Help:      "Registered services by lifecycle state",
			},
			[]string{"state"},
		)),
	}
}

func (m *serviceMetrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
	if outcome == service.OutcomeRegistered {
		m.services.WithLabelValues(service.StateDown.String()).Inc()
	}
}

func (m *serviceMetrics) ObserveTransition(from, to service.State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	m.services.WithLabelValues(from.String()).Dec()
	if to != service.StateRemoved {
		m.services.WithLabelValues(to.String()).Inc()
	}
}
