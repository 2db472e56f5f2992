// Package prometheus provides the Prometheus implementations of the
// provisioning and service container metrics. Importing it (usually for
// side effects) makes pkg/metrics hand them out once the registry is
// initialized.
package prometheus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/pushstore/pkg/metrics"
	"github.com/marmos91/pushstore/pkg/provision"
	"github.com/marmos91/pushstore/pkg/service"
)

func init() {
	metrics.RegisterProvisionMetricsConstructor(func() provision.Metrics { return NewProvisionMetrics() })
	metrics.RegisterServiceMetricsConstructor(func() service.Metrics { return NewServiceMetrics() })
}

// register adds c to reg. If an identical collector is already registered
// the existing one is returned, so constructors can be called repeatedly
// against the same registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
