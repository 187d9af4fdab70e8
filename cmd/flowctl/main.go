// Command flowctl is the CLI front end for the flow persistence engine: it
// owns no workflow logic of its own, only create/append/branch/prune/
// snapshot/read/status/rehydrate/describe operations against a configured
// Storage backend.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
