package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chemgl/flowstate/internal/cliui"
	"github.com/chemgl/flowstate/internal/engine"
	"github.com/chemgl/flowstate/internal/config"
)

var rehydrateFlowID string

var rehydrateCmd = &cobra.Command{
	Use:     "rehydrate",
	GroupID: "flows",
	Short:   "Replay a flow's latest snapshot plus tail records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		flowID, err := uuid.Parse(rehydrateFlowID)
		if err != nil {
			return fmt.Errorf("flowctl rehydrate: --flow: %w", err)
		}

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		cfg := engine.DefaultConfig()
		cfg.EngineVersion = config.EngineVersion()
		cfg.SnapshotPolicy = engine.EveryN(config.SnapshotEvery())

		eng, err := engine.NewEngine(store, cfg, nil)
		if err != nil {
			return fmt.Errorf("flowctl rehydrate: %w", err)
		}

		recs, skew, err := eng.Rehydrate(ctx, flowID)
		if err != nil {
			return fmt.Errorf("flowctl rehydrate: %w", err)
		}
		if skew {
			fmt.Println(cliui.Warn("warning: stored engine_version differs from the running engine's version"))
		}
		fmt.Printf("replayed %d records\n", len(recs))

		if step, err := eng.CurrentStep(ctx, flowID); err == nil {
			fmt.Printf("next step cursor: %d\n", step)
		}
		return nil
	},
}

func init() {
	rehydrateCmd.Flags().StringVar(&rehydrateFlowID, "flow", "", "flow id (required)")
	rehydrateCmd.MarkFlagRequired("flow")
}
