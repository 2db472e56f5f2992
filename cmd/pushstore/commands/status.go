package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/pushstore/internal/cli/health"
	"github.com/marmos91/pushstore/internal/cli/output"
	"github.com/marmos91/pushstore/internal/cli/timeutil"
	"github.com/marmos91/pushstore/pkg/service"
)

var (
	statusAPIURL  string
	statusOutput  string
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running pushstore",
	Long: `Status queries the status API of a running "pushstore start" and shows
its uptime, readiness and registered services.

Examples:
  # Query the local instance
  pushstore status

  # Query a remote instance as JSON
  pushstore status --api-url http://push-1:9090 -o json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAPIURL, "api-url", "http://localhost:9090", "Status API base URL")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 5*time.Second, "Request timeout")
}

// StatusReport is what "pushstore status" prints.
type StatusReport struct {
	Service   string           `json:"service" yaml:"service"`
	StartedAt string           `json:"started_at" yaml:"started_at"`
	Uptime    string           `json:"uptime" yaml:"uptime"`
	Ready     bool             `json:"ready" yaml:"ready"`
	Reason    string           `json:"reason,omitempty" yaml:"reason,omitempty"`
	NotReady  []string         `json:"not_ready,omitempty" yaml:"not_ready,omitempty"`
	Services  []service.Status `json:"services" yaml:"services"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	client := health.NewClient(statusAPIURL, statusTimeout)
	ctx := cmd.Context()

	live, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("pushstore is not running at %s: %w", statusAPIURL, err)
	}

	report := StatusReport{
		Service:   live.Data.Service,
		StartedAt: live.Data.StartedAt,
		Uptime:    live.Data.Uptime,
		Ready:     true,
	}

	ready, err := client.Ready(ctx)
	if err != nil {
		return err
	}
	if ready.Status != "healthy" {
		report.Ready = false
		report.NotReady = ready.Data.NotReady
		report.Reason = ready.Error
	}

	report.Services, err = client.Services(ctx)
	if err != nil {
		return err
	}

	if format != output.FormatTable {
		return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(report)
	}
	return printStatusTable(cmd, report)
}

func printStatusTable(cmd *cobra.Command, r StatusReport) error {
	w := cmd.OutOrStdout()

	readiness := "ready"
	if !r.Ready {
		readiness = "not ready"
		if r.Reason != "" {
			readiness += ": " + r.Reason
		}
		if len(r.NotReady) > 0 {
			readiness += " (" + strings.Join(r.NotReady, ", ") + ")"
		}
	}

	if err := output.PrintPairs(w, [][2]string{
		{"Service", r.Service},
		{"Started", timeutil.FormatTime(r.StartedAt)},
		{"Uptime", timeutil.FormatUptime(r.Uptime)},
		{"Readiness", readiness},
	}); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w)

	table := output.NewTable("NAME", "STATE", "MODE", "DEPENDENCIES", "REGISTERED")
	for _, s := range r.Services {
		deps := "-"
		if len(s.Dependencies) > 0 {
			deps = strings.Join(s.Dependencies, ", ")
		}
		state := s.State
		if s.Error != "" {
			state += ": " + s.Error
		}
		table.AddRow(s.Name, state, s.Mode, deps, timeutil.FormatDuration(time.Since(s.RegisteredAt))+" ago")
	}
	return output.PrintTable(w, table)
}
