package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	snapshotFlowID   string
	snapshotCursor   int64
	snapshotStatePtr string
	snapshotSince    string
)

var snapshotCmd = &cobra.Command{
	Use:     "snapshot",
	GroupID: "flows",
	Short:   "Save or inspect a flow's snapshots",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a new snapshot for a flow",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		flowID, err := uuid.Parse(snapshotFlowID)
		if err != nil {
			return fmt.Errorf("flowctl snapshot save: --flow: %w", err)
		}

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.SaveSnapshot(ctx, flowID, snapshotCursor, snapshotStatePtr, nil)
		if err != nil {
			return fmt.Errorf("flowctl snapshot save: %w", err)
		}
		fmt.Println(id.String())
		return nil
	},
}

var snapshotLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show a flow's latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		flowID, err := uuid.Parse(snapshotFlowID)
		if err != nil {
			return fmt.Errorf("flowctl snapshot latest: --flow: %w", err)
		}

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		snap, err := store.LoadLatestSnapshot(ctx, flowID)
		if err != nil {
			return fmt.Errorf("flowctl snapshot latest: %w", err)
		}

		if snapshotSince != "" {
			since, err := parseNaturalTime(snapshotSince)
			if err != nil {
				return fmt.Errorf("flowctl snapshot latest: --since: %w", err)
			}
			if snap.CreatedAt.Before(since) {
				fmt.Println("no snapshot since", snapshotSince)
				return nil
			}
		}

		fmt.Printf("cursor=%d created_at=%s\n", snap.Cursor, snap.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	},
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapshotFlowID, "flow", "", "flow id (required)")
	snapshotCmd.MarkPersistentFlagRequired("flow")

	snapshotSaveCmd.Flags().Int64Var(&snapshotCursor, "cursor", 0, "cursor this snapshot represents")
	snapshotSaveCmd.Flags().StringVar(&snapshotStatePtr, "state", "", "base64-encoded snapshot payload")

	snapshotLatestCmd.Flags().StringVar(&snapshotSince, "since", "", `only show if newer than this, e.g. "3 days ago"`)

	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotLatestCmd)
}
