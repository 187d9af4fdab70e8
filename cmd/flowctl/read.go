package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/spf13/cobra"

	"github.com/chemgl/flowstate/internal/cliui"
	"github.com/chemgl/flowstate/internal/flowtypes"
)

var (
	readFlowID     string
	readFromCursor int64
	readDedupeHash bool
)

var readCmd = &cobra.Command{
	Use:     "read",
	GroupID: "flows",
	Short:   "Read a flow's step records from a cursor onward",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		flowID, err := uuid.Parse(readFlowID)
		if err != nil {
			return fmt.Errorf("flowctl read: --flow: %w", err)
		}

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.ReadData(ctx, flowID, readFromCursor)
		if err != nil {
			return fmt.Errorf("flowctl read: %w", err)
		}

		if readDedupeHash {
			recs, err = dedupeByPayloadHash(recs)
			if err != nil {
				return fmt.Errorf("flowctl read: %w", err)
			}
		}

		rows := make([][]string, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, []string{
				fmt.Sprintf("%d", r.Cursor), r.Key, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		fmt.Println(cliui.StepTable(rows))
		return nil
	},
}

// dedupeByPayloadHash drops consecutive records whose payload hashes to
// the same value as the previous kept record, via mitchellh/hashstructure/v2
// (the same library the teacher's content_hash column is built on).
func dedupeByPayloadHash(recs []flowtypes.StepRecord) ([]flowtypes.StepRecord, error) {
	out := make([]flowtypes.StepRecord, 0, len(recs))
	var lastHash uint64
	haveLast := false
	for _, r := range recs {
		h, err := hashstructure.Hash(r.Payload, hashstructure.FormatV2, nil)
		if err != nil {
			return nil, fmt.Errorf("hash payload: %w", err)
		}
		if haveLast && h == lastHash {
			continue
		}
		out = append(out, r)
		lastHash = h
		haveLast = true
	}
	return out, nil
}

func init() {
	readCmd.Flags().StringVar(&readFlowID, "flow", "", "flow id (required)")
	readCmd.Flags().Int64Var(&readFromCursor, "from-cursor", 0, "exclusive lower bound on cursor")
	readCmd.Flags().BoolVar(&readDedupeHash, "dedupe-by-hash", false, "drop consecutive records with identical payload hashes")
	readCmd.MarkFlagRequired("flow")
}
