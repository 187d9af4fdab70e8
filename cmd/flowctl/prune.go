package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	pruneFlowID      string
	pruneFromCursor  int64
	pruneWholeBranch bool
)

var pruneCmd = &cobra.Command{
	Use:     "prune",
	GroupID: "flows",
	Short:   "Delete a flow, or truncate it from a cursor onward",
	Long: `By default, prune deletes records with cursor >= --from-cursor (and
snapshots at or past it) without rewinding the flow's current_cursor or
current_version. Children forked at or after --from-cursor are deleted too;
children forked earlier are left untouched.

With --whole-branch, the entire flow is deleted instead, and its direct
children are orphaned (their parent link is cleared) rather than deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		flowID, err := uuid.Parse(pruneFlowID)
		if err != nil {
			return fmt.Errorf("flowctl prune: --flow: %w", err)
		}

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		release, err := store.LockForUpdate(ctx, flowID)
		if err != nil {
			return fmt.Errorf("flowctl prune: %w", err)
		}
		defer release()

		if pruneWholeBranch {
			if err := store.DeleteBranch(ctx, flowID); err != nil {
				return fmt.Errorf("flowctl prune: %w", err)
			}
			return nil
		}
		if err := store.DeleteFromStep(ctx, flowID, pruneFromCursor); err != nil {
			return fmt.Errorf("flowctl prune: %w", err)
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringVar(&pruneFlowID, "flow", "", "flow id (required)")
	pruneCmd.Flags().Int64Var(&pruneFromCursor, "from-cursor", 0, "delete records with cursor >= this value")
	pruneCmd.Flags().BoolVar(&pruneWholeBranch, "whole-branch", false, "delete the entire flow instead of truncating it")
	pruneCmd.MarkFlagRequired("flow")
}
