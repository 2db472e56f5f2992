package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const sampleHeader = `# pushstore Configuration File
#
# Every server below gets a datastore service registered as
# simplepush.datastore.<name>. Datastore types and their attributes:
#
#   jpa        datasource-reference (JNDI name of a configured datasource),
#              persistence-unit (table prefix)
#   redis      host, port
#   couchdb    url, database-name
#   in-memory  (none)
#
# Environment variables override file values, e.g. PUSHSTORE_LOGGING_LEVEL=DEBUG.

`

// InitConfig writes a sample configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	return WriteSample(path, SampleConfig(), force)
}

// WriteSample writes cfg to path, prefixed with the explanatory header.
func WriteSample(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return writeConfigFile(path, append([]byte(sampleHeader), body...))
}

// SampleConfig returns the configuration written by InitConfig: the
// defaults with metrics enabled.
func SampleConfig() *Config {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	return cfg
}
