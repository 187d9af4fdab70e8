package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/chemgl/flowstate/internal/cliui"
)

var (
	createName         string
	createStatus       string
	createMetadataJSON string
	createInteractive  bool
)

var createCmd = &cobra.Command{
	Use:     "create",
	GroupID: "flows",
	Short:   "Start a new flow",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if createInteractive {
			if err := runCreateForm(); err != nil {
				return err
			}
		}

		var metadata map[string]any
		if createMetadataJSON != "" {
			if err := json.Unmarshal([]byte(createMetadataJSON), &metadata); err != nil {
				return fmt.Errorf("flowctl create: parse --metadata: %w", err)
			}
		}

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		var namePtr, statusPtr *string
		if createName != "" {
			namePtr = &createName
		}
		if createStatus != "" {
			statusPtr = &createStatus
		}

		id, err := store.CreateFlow(ctx, namePtr, statusPtr, metadata)
		if err != nil {
			return fmt.Errorf("flowctl create: %w", err)
		}
		fmt.Println(id.String())
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "flow name")
	createCmd.Flags().StringVar(&createStatus, "status", "", "initial status")
	createCmd.Flags().StringVar(&createMetadataJSON, "metadata", "", "flow metadata, as a JSON object")
	createCmd.Flags().BoolVar(&createInteractive, "interactive", false, "prompt for fields with a form instead of flags")
}

// runCreateForm fills createName/createStatus/createMetadataJSON from an
// interactive huh form when --interactive is set and stdout is a TTY.
func runCreateForm() error {
	if !cliui.IsTerminal() {
		return fmt.Errorf("flowctl create --interactive: stdout is not a terminal")
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&createName),
			huh.NewInput().Title("Status").Value(&createStatus),
			huh.NewText().Title("Metadata (JSON object)").Value(&createMetadataJSON),
		),
	)
	return form.Run()
}
