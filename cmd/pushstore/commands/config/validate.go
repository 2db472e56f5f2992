package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/pushstore/pkg/config"
	"github.com/marmos91/pushstore/pkg/datastore"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Load the configuration and check it the way "pushstore start" does,
including every server's datastore attributes.

Examples:
  pushstore config validate
  pushstore config validate --config /etc/pushstore/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(w, "Configuration is valid")
	for _, srv := range cfg.Servers {
		backend, err := srv.Backend()
		if err != nil {
			return fmt.Errorf("server %q: %w", srv.Name, err)
		}
		_, _ = fmt.Fprintf(w, "  server %s: %s -> %s\n", srv.Name, backend.Kind(), datastore.ServiceName(srv.Name))
	}
	for _, ds := range cfg.Datasources {
		_, _ = fmt.Fprintf(w, "  datasource %s: %s\n", ds.JNDIName, ds.Type)
	}
	return nil
}
