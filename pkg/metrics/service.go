package metrics

import "github.com/marmos91/pushstore/pkg/service"

var newPrometheusServiceMetrics func() service.Metrics

// RegisterServiceMetricsConstructor is called by pkg/metrics/prometheus
// during package initialization.
func RegisterServiceMetricsConstructor(constructor func() service.Metrics) {
	newPrometheusServiceMetrics = constructor
}

// NewServiceMetrics returns the container metrics, or nil when metrics are
// disabled or no implementation is linked in. The result can be passed
// straight to service.NewContainer.
func NewServiceMetrics() service.Metrics {
	if !IsEnabled() || newPrometheusServiceMetrics == nil {
		return nil
	}
	return newPrometheusServiceMetrics()
}
