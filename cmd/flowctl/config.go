package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chemgl/flowstate/internal/config"
)

var configExportFormat string

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "config",
	Short:   "Inspect the resolved flowstate configuration",
}

var configExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the resolved configuration as YAML or TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch configExportFormat {
		case "toml":
			return config.ExportTOML(os.Stdout)
		case "yaml", "":
			return config.ExportYAML(os.Stdout)
		default:
			return fmt.Errorf("flowctl config export: --format: want \"yaml\" or \"toml\", got %q", configExportFormat)
		}
	},
}

func init() {
	configExportCmd.Flags().StringVar(&configExportFormat, "format", "yaml", "output format: yaml or toml")
	configCmd.AddCommand(configExportCmd)
}
