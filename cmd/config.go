package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/gridx/internal/config"
)

var configOutput string

// configCmd prints the effective configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective gridx configuration",
	Long:  "Print the embedded defaults merged with --config-file, after command-line overrides.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		switch configOutput {
		case "", "yaml":
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		case "json":
			// Round-trip through YAML so the keys match the file format.
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			var doc map[string]any
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		default:
			return fmt.Errorf("unsupported config output %q (expected yaml or json)", configOutput)
		}
	},
}

var configDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the embedded default configuration with comments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := cmd.OutOrStdout().Write(config.DefaultYAML())
		return err
	},
}

func init() { //nolint:gochecknoinits
	configCmd.Flags().StringVarP(&configOutput, "output", "o", "yaml", "output format: yaml|json")
	configCmd.AddCommand(configDefaultCmd)
}
