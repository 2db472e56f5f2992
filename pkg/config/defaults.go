package config

import (
	"strings"
	"time"

	"github.com/marmos91/pushstore/pkg/datastore"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
// Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	cfg.API.ApplyDefaults()
	for i := range cfg.Datasources {
		cfg.Datasources[i].ApplyDefaults()
	}
	applyServerDefaults(cfg.Servers)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "inuse_space"}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyServerDefaults trims datastore types. Case is kept: discriminators
// are case-sensitive.
func applyServerDefaults(servers []ServerConfig) {
	for i := range servers {
		servers[i].Datastore.Type = strings.TrimSpace(servers[i].Datastore.Type)
	}
}

// GetDefaultConfig returns a Config with all default values applied and a
// single in-memory server named "default".
func GetDefaultConfig() *Config {
	cfg := &Config{
		Servers: []ServerConfig{{
			Name:      "default",
			Datastore: DatastoreConfig{Type: datastore.KindInMemory.String()},
		}},
	}
	ApplyDefaults(cfg)
	return cfg
}
