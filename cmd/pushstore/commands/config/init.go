package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/pushstore/internal/cli/prompt"
	"github.com/marmos91/pushstore/pkg/config"
	"github.com/marmos91/pushstore/pkg/datasource"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/provision"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Write a configuration file. By default a sample with one in-memory
server is written; --interactive asks for the server and its datastore.

Examples:
  # Write the sample to the default location
  pushstore config init

  # Answer questions instead
  pushstore config init --interactive

  # Overwrite a custom file
  pushstore config init --config ./pushstore.yaml --force`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the server and datastore settings")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg := config.SampleConfig()
	if initInteractive {
		var err error
		if cfg, err = promptConfig(); err != nil {
			if prompt.IsAborted(err) {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
				return nil
			}
			return err
		}
	}

	if err := config.WriteSample(path, cfg, initForce); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Configuration written to %s\n", path)
	_, _ = fmt.Fprintln(w, "\nNext steps:")
	_, _ = fmt.Fprintf(w, "  pushstore plan --config %s\n", path)
	_, _ = fmt.Fprintf(w, "  pushstore start --config %s\n", path)
	return nil
}

func promptConfig() (*config.Config, error) {
	cfg := config.SampleConfig()

	name, err := prompt.Input("Server name", "default", prompt.Required)
	if err != nil {
		return nil, err
	}

	options := make([]prompt.Option, 0, len(datastore.Kinds))
	for _, k := range datastore.Kinds {
		options = append(options, prompt.Option{Label: k.String(), Value: k.String(), Description: kindDescription(k)})
	}
	token, err := prompt.Select("Datastore type", options)
	if err != nil {
		return nil, err
	}
	kind, err := datastore.ParseKind(token)
	if err != nil {
		return nil, err
	}

	srv := config.ServerConfig{Name: name, Datastore: config.DatastoreConfig{Type: token}}
	if srv.Datastore.Attributes, err = promptAttributes(kind); err != nil {
		return nil, err
	}
	cfg.Servers = []config.ServerConfig{srv}

	if kind == datastore.KindJPA {
		ds, err := promptDatasource(srv.Datastore.Attributes[provision.AttrDatasourceReference].(string))
		if err != nil {
			return nil, err
		}
		cfg.Datasources = []datasource.Config{ds}
	}

	if cfg.API.Port, err = prompt.InputPort("Status API port", cfg.API.Port); err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled, err = prompt.Confirm("Expose Prometheus metrics", true); err != nil {
		return nil, err
	}

	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func kindDescription(k datastore.Kind) string {
	switch k {
	case datastore.KindJPA:
		return "SQL database through a configured datasource"
	case datastore.KindRedis:
		return "Redis server"
	case datastore.KindDocumentStore:
		return "CouchDB database"
	default:
		return "Process memory, lost on restart"
	}
}

func promptAttributes(kind datastore.Kind) (map[string]any, error) {
	defaults := map[string]string{
		provision.AttrDatasourceReference: "java:jboss/datasources/PushStoreDS",
		provision.AttrPersistenceUnit:     "SimplePushPU",
		provision.AttrHost:                "localhost",
		provision.AttrPort:                "6379",
		provision.AttrURL:                 "http://localhost:5984",
		provision.AttrDatabaseName:        "simplepush",
	}

	attrs := make(map[string]any)
	for _, name := range provision.RequiredAttributes(kind) {
		if name == provision.AttrPort {
			def, _ := strconv.Atoi(defaults[name])
			port, err := prompt.InputPort(name, def)
			if err != nil {
				return nil, err
			}
			attrs[name] = port
			continue
		}
		value, err := prompt.Input(name, defaults[name], prompt.Required)
		if err != nil {
			return nil, err
		}
		attrs[name] = value
	}
	return attrs, nil
}

func promptDatasource(jndiName string) (datasource.Config, error) {
	ds := datasource.Config{JNDIName: jndiName}

	typ, err := prompt.Select("Datasource type", []prompt.Option{
		{Label: "sqlite", Value: string(datasource.TypeSQLite), Description: "Embedded SQLite file"},
		{Label: "postgres", Value: string(datasource.TypePostgres), Description: "PostgreSQL server"},
	})
	if err != nil {
		return ds, err
	}
	ds.Type = datasource.Type(typ)

	if ds.Type != datasource.TypePostgres {
		return ds, nil
	}

	pg := &ds.Postgres
	if pg.Host, err = prompt.Input("PostgreSQL host", "localhost", prompt.Required); err != nil {
		return ds, err
	}
	if pg.Port, err = prompt.InputPort("PostgreSQL port", 5432); err != nil {
		return ds, err
	}
	if pg.Database, err = prompt.Input("Database", "simplepush", prompt.Required); err != nil {
		return ds, err
	}
	if pg.User, err = prompt.Input("User", "postgres", prompt.Required); err != nil {
		return ds, err
	}
	if pg.Password, err = prompt.Input("Password", "", nil); err != nil {
		return ds, err
	}
	return ds, nil
}
