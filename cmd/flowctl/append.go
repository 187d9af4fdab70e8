package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	appendFlowID     string
	appendKey        string
	appendPayload    string
	appendMetadata   string
	appendCommandID  string
	appendExpVersion int64
)

var appendCmd = &cobra.Command{
	Use:     "append",
	GroupID: "flows",
	Short:   "Append one record to a flow (optimistic append protocol)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		flowID, err := uuid.Parse(appendFlowID)
		if err != nil {
			return fmt.Errorf("flowctl append: --flow: %w", err)
		}

		var payload, metadata map[string]any
		if appendPayload != "" {
			if err := json.Unmarshal([]byte(appendPayload), &payload); err != nil {
				return fmt.Errorf("flowctl append: --payload: %w", err)
			}
		}
		if appendMetadata != "" {
			if err := json.Unmarshal([]byte(appendMetadata), &metadata); err != nil {
				return fmt.Errorf("flowctl append: --metadata: %w", err)
			}
		}

		var cmdIDPtr *uuid.UUID
		if appendCommandID != "" {
			cid, err := uuid.Parse(appendCommandID)
			if err != nil {
				return fmt.Errorf("flowctl append: --command-id: %w", err)
			}
			cmdIDPtr = &cid
		}

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		release, err := store.LockForUpdate(ctx, flowID)
		if err != nil {
			return fmt.Errorf("flowctl append: %w", err)
		}
		defer release()

		result, err := store.PersistData(ctx, flowID, appendKey, payload, metadata, cmdIDPtr, appendExpVersion)
		if err != nil {
			return fmt.Errorf("flowctl append: %w", err)
		}
		if result.Conflict {
			fmt.Println("conflict")
			return nil
		}
		fmt.Printf("version=%d\n", result.NewVersion)
		return nil
	},
}

func init() {
	appendCmd.Flags().StringVar(&appendFlowID, "flow", "", "flow id (required)")
	appendCmd.Flags().StringVar(&appendKey, "key", "", "record key (required)")
	appendCmd.Flags().StringVar(&appendPayload, "payload", "", "record payload, as a JSON object")
	appendCmd.Flags().StringVar(&appendMetadata, "metadata", "", "record metadata, as a JSON object")
	appendCmd.Flags().StringVar(&appendCommandID, "command-id", "", "idempotency key for this append")
	appendCmd.Flags().Int64Var(&appendExpVersion, "expected-version", 0, "expected current_version")
	appendCmd.MarkFlagRequired("flow")
	appendCmd.MarkFlagRequired("key")
}
