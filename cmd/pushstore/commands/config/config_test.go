package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pushstore/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := &cobra.Command{Use: "pushstore", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String("config", "", "config file")
	root.AddCommand(Cmd)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	t.Cleanup(func() {
		initForce, initInteractive = false, false
		showOutput, schemaOutput = "yaml", ""
	})

	err := root.Execute()
	return out.String(), err
}

func TestInitWritesSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushstore", "config.yaml")

	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 1)
	assert.Equal(t, "in-memory", cfg.Servers[0].Datastore.Type)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("servers: []\n"), 0o600))

	_, err := execute(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)

	out, err := execute(t, "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "server default: in-memory -> simplepush.datastore.default")
}

func TestValidateRejectsBadAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
servers:
  - name: push1
    datastore:
      type: redis
      attributes:
        host: localhost
        port: 70000
`), 0o600))

	_, err := execute(t, "config", "validate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `server "push1"`)
}

func TestShowJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)

	out, err := execute(t, "config", "show", "--config", path, "-o", "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "servers")
}

func TestSchema(t *testing.T) {
	s := Schema()
	assert.Equal(t, "pushstore configuration", s.Title)

	out, err := execute(t, "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"servers"`)
	assert.Contains(t, out, `"in-memory"`)

	file := filepath.Join(t.TempDir(), "schema.json")
	_, err = execute(t, "config", "schema", "--output", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}
