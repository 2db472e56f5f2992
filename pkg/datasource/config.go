// Package datasource provides SQL datasource services. A datasource opens a
// *gorm.DB and is published in the naming context under its JNDI name, where
// JPA datastores pick it up.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Type defines the supported database backends.
type Type string

const (
	// TypeSQLite uses an embedded SQLite file.
	TypeSQLite Type = "sqlite"

	// TypePostgres uses a PostgreSQL server.
	TypePostgres Type = "postgres"
)

// dbSystem returns the OpenTelemetry db.system value for t.
func (t Type) dbSystem() string {
	if t == TypePostgres {
		return "postgresql"
	}
	return string(t)
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file. Default: $XDG_DATA_HOME/pushstore/<jndi bind name>.db
	Path string `mapstructure:"path" yaml:"path" json:"path,omitempty"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host" json:"host,omitempty"`
	Port         int    `mapstructure:"port" yaml:"port" json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Database     string `mapstructure:"database" yaml:"database" json:"database,omitempty"`
	User         string `mapstructure:"user" yaml:"user" json:"user,omitempty"`
	Password     string `mapstructure:"password" yaml:"password" json:"password,omitempty"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode" json:"sslmode,omitempty" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns" json:"max_open_conns,omitempty" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns" json:"max_idle_conns,omitempty" validate:"gte=0"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += " sslmode=" + c.SSLMode
	}
	return dsn
}

// Config describes one datasource.
type Config struct {
	// JNDIName is where the datasource is published, e.g.
	// "java:jboss/datasources/ExampleDS".
	JNDIName string         `mapstructure:"jndi_name" yaml:"jndi_name" json:"jndi_name" validate:"required"`
	Type     Type           `mapstructure:"type" yaml:"type" json:"type" validate:"omitempty,oneof=sqlite postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite,omitempty" json:"sqlite,omitempty"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres,omitempty" json:"postgres,omitempty"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = TypeSQLite
	}

	if c.Type == TypeSQLite && c.SQLite.Path == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			homeDir, _ := os.UserHomeDir()
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
		c.SQLite.Path = filepath.Join(dataDir, "pushstore", fileName(c.JNDIName)+".db")
	}

	if c.Type == TypePostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 25
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 5
		}
	}
}

// Validate checks the type-specific settings.
func (c *Config) Validate() error {
	if c.JNDIName == "" {
		return fmt.Errorf("datasource jndi_name is required")
	}
	switch c.Type {
	case TypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("datasource %s: sqlite path is required", c.JNDIName)
		}
	case TypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("datasource %s: postgres host is required", c.JNDIName)
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("datasource %s: postgres database is required", c.JNDIName)
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("datasource %s: postgres user is required", c.JNDIName)
		}
	default:
		return fmt.Errorf("datasource %s: unsupported type %q", c.JNDIName, c.Type)
	}
	return nil
}

// fileName turns a JNDI name into a file name: "java:jboss/datasources/ExampleDS"
// becomes "ExampleDS".
func fileName(jndiName string) string {
	name := jndiName[strings.LastIndexAny(jndiName, ":/")+1:]
	if name == "" {
		return "datasource"
	}
	return name
}
