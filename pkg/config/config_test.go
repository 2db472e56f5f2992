package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pushstore/pkg/datasource"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/provision"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
logging:
  level: debug
  format: json
shutdown_timeout: 5s
metrics:
  enabled: true
api:
  port: 9191
datasources:
  - jndi_name: java:jboss/datasources/ExampleDS
    type: SQLite
    sqlite:
      path: "`+yamlSafePath(dir)+`/example.db"
servers:
  - name: default
    datastore:
      type: jpa
      attributes:
        datasource-reference: java:jboss/datasources/ExampleDS
        persistence-unit: SimplePushPU
  - name: cache
    datastore:
      type: redis
      attributes:
        host: localhost
        port: 6379
        url: http://ignored.example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.API.Port)
	assert.Equal(t, 10*time.Second, cfg.API.ReadTimeout)

	require.Len(t, cfg.Datasources, 1)
	assert.Equal(t, datasource.TypeSQLite, cfg.Datasources[0].Type)
	assert.Equal(t, filepath.Join(dir, "example.db"), filepath.FromSlash(cfg.Datasources[0].SQLite.Path))

	require.Len(t, cfg.Servers, 2)
	jpa, err := cfg.Servers[0].Backend()
	require.NoError(t, err)
	assert.Equal(t, provision.JPABackend{
		DatasourceReference: "java:jboss/datasources/ExampleDS",
		PersistenceUnit:     "SimplePushPU",
	}, jpa)

	redis, err := cfg.Servers[1].Backend()
	require.NoError(t, err)
	assert.Equal(t, provision.RedisBackend{Host: "localhost", Port: 6379}, redis)
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: INFO
servers:
  - name: default
    datastore:
      type: in-memory
`)
	t.Setenv("PUSHSTORE_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		is      error
		msg     string
	}{
		{
			name:    "MalformedYAML",
			content: "logging: [unclosed",
			msg:     "failed to read config file",
		},
		{
			name: "UnknownDatastoreType",
			content: `
servers:
  - name: default
    datastore:
      type: mongodb
`,
			is: datastore.ErrUnknownKind,
		},
		{
			name: "MissingAttribute",
			content: `
servers:
  - name: default
    datastore:
      type: redis
      attributes:
        host: localhost
`,
			is: provision.ErrMissingAttribute,
		},
		{
			name: "BadDuration",
			content: `
shutdown_timeout: soon
servers:
  - name: default
    datastore:
      type: in-memory
`,
			msg: "failed to unmarshal config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			if tt.msg != "" {
				assert.ErrorContains(t, err, tt.msg)
			}
		})
	}
}

func TestMustLoad(t *testing.T) {
	t.Run("MissingExplicitPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.yaml")
		_, err := MustLoad(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pushstore config init --config "+path)
	})

	t.Run("MissingDefault", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		_, err := MustLoad("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no configuration file found")
	})

	t.Run("DefaultLocation", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		_, err := InitConfig(false)
		require.NoError(t, err)

		cfg, err := MustLoad("")
		require.NoError(t, err)
		assert.True(t, cfg.Metrics.Enabled)
	})
}

func TestSaveConfigCanBeLoaded(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ShutdownTimeout = 45 * time.Second
	cfg.Servers = append(cfg.Servers, ServerConfig{
		Name: "docs",
		Datastore: DatastoreConfig{
			Type:       "couchdb",
			Attributes: map[string]any{"url": "http://localhost:5984", "database-name": "simplepush"},
		},
	})

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected file mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, loaded.ShutdownTimeout)
	require.Len(t, loaded.Servers, 2)

	backend, err := loaded.Servers[1].Backend()
	require.NoError(t, err)
	assert.Equal(t, provision.DocumentStoreBackend{URL: "http://localhost:5984", DatabaseName: "simplepush"}, backend)
}

func TestGetConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "pushstore"), GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "pushstore", "config.yaml"), GetDefaultConfigPath())
	assert.False(t, DefaultConfigExists())
}
