package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/pushstore/pkg/api"
	"github.com/marmos91/pushstore/pkg/datasource"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_API(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.True(t, cfg.API.IsEnabled())
	assert.Equal(t, api.DefaultPort, cfg.API.Port)
	assert.Equal(t, 60*time.Second, cfg.API.IdleTimeout)
}

func TestApplyDefaults_Telemetry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.Equal(t, "http://localhost:4040", cfg.Telemetry.Profiling.Endpoint)
	assert.Equal(t, []string{"cpu", "alloc_objects", "inuse_space"}, cfg.Telemetry.Profiling.ProfileTypes)
}

func TestApplyDefaults_Datasources(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg := &Config{Datasources: []datasource.Config{
		{JNDIName: "java:jboss/datasources/ExampleDS"},
		{JNDIName: "java:jboss/datasources/PG", Type: datasource.TypePostgres},
	}}
	ApplyDefaults(cfg)

	assert.Equal(t, datasource.TypeSQLite, cfg.Datasources[0].Type)
	assert.NotEmpty(t, cfg.Datasources[0].SQLite.Path)
	assert.Equal(t, 5432, cfg.Datasources[1].Postgres.Port)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:         LoggingConfig{Level: "warn", Format: "json", Output: "stderr"},
		ShutdownTimeout: time.Minute,
		Servers:         []ServerConfig{{Name: "a", Datastore: DatastoreConfig{Type: " redis "}}},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
	assert.Equal(t, "redis", cfg.Servers[0].Datastore.Type)
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Len(t, cfg.Servers, 1)
	assert.Equal(t, "default", cfg.Servers[0].Name)
	assert.Equal(t, "in-memory", cfg.Servers[0].Datastore.Type)
	assert.NoError(t, Validate(cfg))
}
