package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chemgl/flowstate/internal/cliui"
	"github.com/chemgl/flowstate/internal/storage/sqlite"
)

var (
	statusFlowID string
	statusWatch  bool
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "flows",
	Short:   "Show a flow's current cursor, version, and lifecycle status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		flowID, err := uuid.Parse(statusFlowID)
		if err != nil {
			return fmt.Errorf("flowctl status: --flow: %w", err)
		}

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		print := func() error {
			meta, err := store.GetFlowMeta(ctx, flowID)
			if err != nil {
				return fmt.Errorf("flowctl status: %w", err)
			}
			name, status := "", ""
			if meta.Name != nil {
				name = *meta.Name
			}
			if meta.Status != nil {
				status = *meta.Status
			}
			rows := [][]string{{
				meta.ID.String(), name, status,
				fmt.Sprintf("%d", meta.CurrentCursor), fmt.Sprintf("%d", meta.CurrentVersion),
			}}
			fmt.Println(cliui.FlowTable(rows))
			return nil
		}

		if err := print(); err != nil {
			return err
		}
		if !statusWatch {
			return nil
		}

		if _, ok := store.(*sqlite.DB); !ok {
			return fmt.Errorf("flowctl status --watch: only supported against a file: backend")
		}
		w, err := sqlite.WatchFile(ctx, dbPathFromBackend())
		if err != nil {
			return fmt.Errorf("flowctl status --watch: %w", err)
		}
		for range w.Events {
			if err := print(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusFlowID, "flow", "", "flow id (required)")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "re-print status whenever the backing file changes")
	statusCmd.MarkFlagRequired("flow")
}
