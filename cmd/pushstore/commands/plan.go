package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/pushstore/internal/cli/output"
	"github.com/marmos91/pushstore/pkg/config"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/provision"
)

var planOutput string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the datastore services the configuration would register",
	Long: `Plan resolves the datastore of every configured server into the service
registration "pushstore start" would perform, without starting anything.

Examples:
  # Show the plan as a table
  pushstore plan

  # Show the plan as JSON
  pushstore plan -o json`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// PlanEntry is the planned registration of one server's datastore.
type PlanEntry struct {
	Server       string   `json:"server" yaml:"server"`
	Kind         string   `json:"kind" yaml:"kind"`
	Address      string   `json:"address" yaml:"address"`
	Service      string   `json:"service" yaml:"service"`
	Mode         string   `json:"mode" yaml:"mode"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Plan is the list of planned registrations.
type Plan []PlanEntry

// Headers implements output.TableRenderer.
func (p Plan) Headers() []string {
	return []string{"SERVER", "KIND", "SERVICE", "MODE", "DEPENDENCIES"}
}

// Rows implements output.TableRenderer.
func (p Plan) Rows() [][]string {
	rows := make([][]string, 0, len(p))
	for _, e := range p {
		deps := "-"
		if len(e.Dependencies) > 0 {
			deps = strings.Join(e.Dependencies, ", ")
		}
		rows = append(rows, []string{e.Server, e.Kind, e.Service, e.Mode, deps})
	}
	return rows
}

func runPlan(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(planOutput)
	if err != nil {
		return err
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	plan, err := buildPlan(cfg)
	if err != nil {
		return err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(plan)
}

// buildPlan plans every server of cfg. Planning never touches a registry.
func buildPlan(cfg *config.Config) (Plan, error) {
	engine := provision.NewEngine(nil)

	plan := make(Plan, 0, len(cfg.Servers))
	for _, srv := range cfg.Servers {
		op := srv.Operation()
		req, err := engine.Plan(op)
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", srv.Name, err)
		}

		kind, err := datastore.ParseKind(srv.Datastore.Type)
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", srv.Name, err)
		}

		deps := make([]string, 0, len(req.Dependencies))
		for _, d := range req.Dependencies {
			deps = append(deps, d.String())
		}

		plan = append(plan, PlanEntry{
			Server:       srv.Name,
			Kind:         kind.String(),
			Address:      op.Address.String(),
			Service:      req.Name.String(),
			Mode:         req.Mode.String(),
			Dependencies: deps,
		})
	}
	return plan, nil
}
