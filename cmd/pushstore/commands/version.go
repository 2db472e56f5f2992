package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/marmos91/pushstore/internal/cli/output"
)

var versionOutput string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(versionOutput)
		if err != nil {
			return err
		}
		info := versionInfo{Version: Version, Commit: Commit, Date: Date, Go: runtime.Version()}
		if format == output.FormatTable {
			return output.PrintPairs(cmd.OutOrStdout(), [][2]string{
				{"Version", info.Version},
				{"Commit", info.Commit},
				{"Built", info.Date},
				{"Go", info.Go},
			})
		}
		return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(info)
	},
}

type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
}

func init() {
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "table", "Output format (table|json|yaml)")
}
