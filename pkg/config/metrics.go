package config

import (
	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/pkg/metrics"

	// Registers the Prometheus metric constructors.
	_ "github.com/marmos91/pushstore/pkg/metrics/prometheus"
)

// InitializeMetrics creates the metrics registry when metrics are enabled.
// With metrics disabled every metrics constructor returns nil.
func InitializeMetrics(cfg *Config) {
	if !cfg.Metrics.Enabled {
		logger.Debug("Metrics disabled")
		return
	}
	metrics.InitRegistry()
	logger.Info("Metrics enabled", logger.KeyPort, cfg.API.Port)
}
