package metrics

import "github.com/marmos91/pushstore/pkg/provision"

var newPrometheusProvisionMetrics func() provision.Metrics

// RegisterProvisionMetricsConstructor is called by pkg/metrics/prometheus
// during package initialization.
func RegisterProvisionMetricsConstructor(constructor func() provision.Metrics) {
	newPrometheusProvisionMetrics = constructor
}

// NewProvisionMetrics returns the engine metrics, or nil when metrics are
// disabled or no implementation is linked in.
//
//	metrics.InitRegistry()
//	engine := provision.NewEngine(container, provision.WithMetrics(metrics.NewProvisionMetrics()))
func NewProvisionMetrics() provision.Metrics {
	if !IsEnabled() || newPrometheusProvisionMetrics == nil {
		return nil
	}
	return newPrometheusProvisionMetrics()
}
