package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chemgl/flowstate/internal/config"
	"github.com/chemgl/flowstate/internal/flowtypes"
	"github.com/chemgl/flowstate/internal/logging"
	"github.com/chemgl/flowstate/internal/storage"
	"github.com/chemgl/flowstate/internal/storage/memstore"
	"github.com/chemgl/flowstate/internal/storage/sqlite"
)

var rootCmd = &cobra.Command{
	Use:           "flowctl",
	Short:         "Inspect and drive branchable workflow flows",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		logging.Setup(config.LogPath(), config.LogMaxSizeMB())
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "flows", Title: "Flow commands:"},
		&cobra.Group{ID: "config", Title: "Configuration commands:"},
	)
	rootCmd.AddCommand(createCmd, appendCmd, branchCmd, pruneCmd, snapshotCmd,
		readCmd, statusCmd, rehydrateCmd, describeCmd, configCmd)
}

// openStorage builds a Storage backend from the configured "backend"
// setting: "memory" for the in-memory reference implementation, or
// "file:<path>" for the sqlite backend. Anything else is rejected, per
// SPEC_FULL.md section B.
func openStorage(ctx context.Context) (storage.Storage, error) {
	backend := config.Backend()
	switch {
	case backend == "memory":
		return memstore.New(), nil
	case strings.HasPrefix(backend, "file:"):
		path := strings.TrimPrefix(backend, "file:")
		return sqlite.Open(path)
	default:
		return nil, flowtypes.Other("flowctl", fmt.Errorf("unrecognized backend %q (want \"memory\" or \"file:<path>\")", backend))
	}
}

// dbPathFromBackend returns the filesystem path configured for a "file:"
// backend, or "" if the backend is not file-based.
func dbPathFromBackend() string {
	backend := config.Backend()
	if !strings.HasPrefix(backend, "file:") {
		return ""
	}
	return strings.TrimPrefix(backend, "file:")
}
