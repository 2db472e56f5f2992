package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/marmos91/pushstore/pkg/config"
)

var schemaOutput string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schema for IDE/validation",
	Long: `Generate a JSON schema describing the configuration file. Point your
editor's YAML language server at it for completion and validation.

Examples:
  # Print to stdout
  pushstore config schema

  # Write to a file
  pushstore config schema --output pushstore.schema.json`,
	RunE: runConfigSchema,
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Write the schema to a file instead of stdout")
}

// Schema returns the JSON schema of the configuration file.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  false,
	}
	s := r.Reflect(&config.Config{})
	s.Title = "pushstore configuration"
	return s
}

func runConfigSchema(cmd *cobra.Command, args []string) error {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	data = append(data, '\n')

	if schemaOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(schemaOutput, data, 0o644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", schemaOutput)
	return nil
}
