package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chemgl/flowstate/internal/cliui"
)

var (
	branchParentID    string
	branchName        string
	branchStatus      string
	branchCursor      int64
	branchMetadata    string
	branchInteractive bool
)

var branchCmd = &cobra.Command{
	Use:     "branch",
	GroupID: "flows",
	Short:   "Fork a new flow from a parent flow at a given cursor",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if branchInteractive {
			if err := runBranchForm(); err != nil {
				return err
			}
		}

		parentID, err := uuid.Parse(branchParentID)
		if err != nil {
			return fmt.Errorf("flowctl branch: --parent: %w", err)
		}

		var metadata map[string]any
		if branchMetadata != "" {
			if err := json.Unmarshal([]byte(branchMetadata), &metadata); err != nil {
				return fmt.Errorf("flowctl branch: --metadata: %w", err)
			}
		}

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		var namePtr, statusPtr *string
		if branchName != "" {
			namePtr = &branchName
		}
		if branchStatus != "" {
			statusPtr = &branchStatus
		}

		id, err := store.CreateBranch(ctx, parentID, namePtr, statusPtr, branchCursor, metadata)
		if err != nil {
			return fmt.Errorf("flowctl branch: %w", err)
		}
		fmt.Println(id.String())
		return nil
	},
}

func init() {
	branchCmd.Flags().StringVar(&branchParentID, "parent", "", "parent flow id (required)")
	branchCmd.Flags().StringVar(&branchName, "name", "", "branch name")
	branchCmd.Flags().StringVar(&branchStatus, "status", "", "branch initial status")
	branchCmd.Flags().Int64Var(&branchCursor, "at-cursor", 0, "cursor to fork at (required)")
	branchCmd.Flags().StringVar(&branchMetadata, "metadata", "", "branch metadata, as a JSON object")
	branchCmd.Flags().BoolVar(&branchInteractive, "interactive", false, "prompt for fields with a form instead of flags")
	branchCmd.MarkFlagRequired("parent")
	branchCmd.MarkFlagRequired("at-cursor")
}

func runBranchForm() error {
	if !cliui.IsTerminal() {
		return fmt.Errorf("flowctl branch --interactive: stdout is not a terminal")
	}
	var cursorStr string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Parent flow id").Value(&branchParentID),
			huh.NewInput().Title("Fork at cursor").Value(&cursorStr),
			huh.NewInput().Title("Branch name").Value(&branchName),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	var parsed int64
	if _, err := fmt.Sscanf(cursorStr, "%d", &parsed); err != nil {
		return fmt.Errorf("flowctl branch --interactive: parse cursor: %w", err)
	}
	branchCursor = parsed
	return nil
}
