package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

var describeFlowID string

var describeCmd = &cobra.Command{
	Use:     "describe",
	GroupID: "flows",
	Short:   "Render a flow's metadata and step log as Markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		flowID, err := uuid.Parse(describeFlowID)
		if err != nil {
			return fmt.Errorf("flowctl describe: --flow: %w", err)
		}

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		meta, err := store.GetFlowMeta(ctx, flowID)
		if err != nil {
			return fmt.Errorf("flowctl describe: %w", err)
		}
		recs, err := store.ReadData(ctx, flowID, 0)
		if err != nil {
			return fmt.Errorf("flowctl describe: %w", err)
		}

		md := renderFlowMarkdown(meta.ID.String(), meta.CurrentCursor, meta.CurrentVersion, recs)

		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
		if err != nil {
			return fmt.Errorf("flowctl describe: %w", err)
		}
		out, err := renderer.Render(md)
		if err != nil {
			return fmt.Errorf("flowctl describe: %w", err)
		}
		fmt.Print(out)
		return nil
	},
}

func renderFlowMarkdown(id string, cursor, version int64, recs []flowtypes.StepRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Flow %s\n\n", id)
	fmt.Fprintf(&b, "- current_cursor: %d\n- current_version: %d\n\n", cursor, version)
	fmt.Fprintf(&b, "## Steps\n\n")
	if len(recs) == 0 {
		fmt.Fprintf(&b, "_no step records_\n")
		return b.String()
	}
	fmt.Fprintf(&b, "| cursor | key | command_id | created_at |\n")
	fmt.Fprintf(&b, "| --- | --- | --- | --- |\n")
	for _, r := range recs {
		commandID := ""
		if r.CommandID != nil {
			commandID = r.CommandID.String()
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n",
			r.Cursor, r.Key, commandID, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return b.String()
}

func init() {
	describeCmd.Flags().StringVar(&describeFlowID, "flow", "", "flow id (required)")
	describeCmd.MarkFlagRequired("flow")
}
