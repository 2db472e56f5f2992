package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pushstore/pkg/datasource"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/provision"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_Nil(t *testing.T) {
	assert.EqualError(t, Validate(nil), "configuration is nil")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("Expected error to name logging.level, got: %v", err)
	}
}

func TestValidate_StructRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"LogFormat", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"APIPortTooLarge", func(c *Config) { c.API.Port = 70000 }, "api.port: failed 'max'"},
		{"APIPortNegative", func(c *Config) { c.API.Port = -1 }, "api.port: failed 'min'"},
		{"ShutdownTimeout", func(c *Config) { c.ShutdownTimeout = -1 }, "shutdown_timeout"},
		{"SampleRate", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "telemetry.sample_rate"},
		{
			"TelemetryEndpoint",
			func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Endpoint = "" },
			"telemetry.endpoint: failed 'required_if'",
		},
		{"ProfileType", func(c *Config) { c.Telemetry.Profiling.ProfileTypes = []string{"heap"} }, "telemetry.profiling.profile_types[0]"},
		{"ServerName", func(c *Config) { c.Servers[0].Name = "" }, "servers[0].name: failed 'required'"},
		{"ServerNameWithDot", func(c *Config) { c.Servers[0].Name = "a.b" }, "servers[0].name: failed 'excludesall'"},
		{"DatastoreType", func(c *Config) { c.Servers[0].Datastore.Type = "" }, "servers[0].datastore.type"},
		{
			"DatasourceType",
			func(c *Config) {
				c.Datasources = []datasource.Config{{JNDIName: "java:/DS", Type: "oracle"}}
			},
			"datasources[0].type: failed 'oneof'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_Consistency(t *testing.T) {
	exampleDS := datasource.Config{
		JNDIName: "java:jboss/datasources/ExampleDS",
		Type:     datasource.TypeSQLite,
		SQLite:   datasource.SQLiteConfig{Path: "/tmp/example.db"},
	}
	jpaServer := func(ref string) ServerConfig {
		return ServerConfig{Name: "default", Datastore: DatastoreConfig{
			Type:       "jpa",
			Attributes: map[string]any{"datasource-reference": ref, "persistence-unit": "pu"},
		}}
	}

	tests := []struct {
		name string
		cfg  func() *Config
		is   error
		want string
	}{
		{
			name: "JPAWithDatasource",
			cfg: func() *Config {
				c := GetDefaultConfig()
				c.Datasources = []datasource.Config{exampleDS}
				c.Servers = []ServerConfig{jpaServer("java:jboss/datasources/ExampleDS")}
				return c
			},
		},
		{
			name: "JPAReferenceWithoutJavaPrefix",
			cfg: func() *Config {
				c := GetDefaultConfig()
				c.Datasources = []datasource.Config{exampleDS}
				c.Servers = []ServerConfig{jpaServer("jboss/datasources/ExampleDS")}
				return c
			},
		},
		{
			name: "JPAWithoutDatasource",
			cfg: func() *Config {
				c := GetDefaultConfig()
				c.Servers = []ServerConfig{jpaServer("java:jboss/datasources/ExampleDS")}
				return c
			},
			want: `datasource "java:jboss/datasources/ExampleDS" is not configured`,
		},
		{
			name: "DuplicateServer",
			cfg: func() *Config {
				c := GetDefaultConfig()
				c.Servers = append(c.Servers, c.Servers[0])
				return c
			},
			want: `server "default": duplicate name`,
		},
		{
			name: "DuplicateDatasource",
			cfg: func() *Config {
				c := GetDefaultConfig()
				dup := exampleDS
				dup.JNDIName = "jboss/datasources/ExampleDS"
				c.Datasources = []datasource.Config{exampleDS, dup}
				return c
			},
			want: "duplicates",
		},
		{
			name: "InvalidDatasourceName",
			cfg: func() *Config {
				c := GetDefaultConfig()
				ds := exampleDS
				ds.JNDIName = "jbossdata/x"
				c.Datasources = []datasource.Config{ds}
				return c
			},
			want: "invalid JNDI name",
		},
		{
			name: "UnknownKind",
			cfg: func() *Config {
				c := GetDefaultConfig()
				c.Servers[0].Datastore.Type = "In-Memory"
				return c
			},
			is: datastore.ErrUnknownKind,
		},
		{
			name: "InvalidAttribute",
			cfg: func() *Config {
				c := GetDefaultConfig()
				c.Servers[0].Datastore = DatastoreConfig{Type: "redis", Attributes: map[string]any{"host": "localhost", "port": "6379"}}
				return c
			},
			is: provision.ErrInvalidAttribute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg())
			if tt.is == nil && tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	for _, level := range []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}

	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected ApplyDefaults to normalize 'info' to 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestServerConfigOperation(t *testing.T) {
	srv := ServerConfig{Name: "edge", Datastore: DatastoreConfig{Type: "redis", Attributes: map[string]any{"host": "h", "port": 1}}}
	op := srv.Operation()

	assert.Equal(t, "/subsystem=simplepush/server=edge/datastore=redis", op.Address.String())
	assert.Equal(t, []string{"host", "port"}, op.Attributes.Names())
}
