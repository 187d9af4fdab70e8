// Package engine orchestrates step execution atop a storage.Storage: a
// closed, per-engine dispatch table of named steps, FlowMetaKV-backed
// lifecycle facts (current_step, status), snapshot-and-replay rehydration,
// and best-effort snapshotting after persisted steps.
package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// StepContext is handed to a StepHandler on each invocation: everything it
// needs to read prior state and produce its own payload, without reaching
// into storage directly.
type StepContext struct {
	Context      context.Context
	FlowID       uuid.UUID
	Cursor       int64 // the cursor this step's output will be recorded at
	LastPayload  map[string]any
	FlowMetadata map[string]any
}

// StepResult is what a StepHandler returns: the payload to persist for
// this step, and optional metadata to store alongside the record.
type StepResult struct {
	Payload  map[string]any
	Metadata map[string]any
}

// StepHandler executes one named step of a workflow.
type StepHandler func(StepContext) (StepResult, error)

// StepInfo describes one entry of an engine's dispatch table: its name
// (used to build the reserved "step_state:<name>" record key) and its
// index in execution order. DependsOn lists step names (by Name, not
// index) that must already have a step_state record before this one may
// run via ExecuteCurrentStep's dependency-checked path.
type StepInfo struct {
	Index     int
	Name      string
	Handler   StepHandler
	DependsOn []string
}

// recordKey returns the reserved record key this step writes under.
func (s StepInfo) recordKey() string {
	return flowtypes.StepStateKey(s.Name)
}
