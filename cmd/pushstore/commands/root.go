// Package commands implements the pushstore CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/pushstore/cmd/pushstore/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "pushstore",
	Short: "pushstore - SimplePush datastore provisioning",
	Long: `pushstore turns the datastore configuration of SimplePush servers into
running, dependency-ordered datastore services.

Each configured server gets a datastore service named
simplepush.datastore.<server> backed by JPA (a SQL datasource), Redis,
CouchDB or memory.

Use "pushstore [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/pushstore/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(config.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
