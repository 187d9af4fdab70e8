// Package flowtypes defines the data model shared by every storage backend
// and by the engine layer that sits atop them: Flow, StepRecord, Snapshot,
// and the small FlowMetaKV side table, plus the append-protocol result type.
package flowtypes

import (
	"time"

	"github.com/google/uuid"
)

// FlowMeta is the aggregate root: a workflow's identity, lifecycle position,
// and optional branch lineage. It never holds a reference to its parent's
// data, only the parent's id and the cursor it was forked at.
type FlowMeta struct {
	ID             uuid.UUID      `json:"id"`
	Name           *string        `json:"name,omitempty"`
	Status         *string        `json:"status,omitempty"`
	CreatedBy      *string        `json:"created_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	CurrentCursor  int64          `json:"current_cursor"`
	CurrentVersion int64          `json:"current_version"`
	ParentFlowID   *uuid.UUID     `json:"parent_flow_id,omitempty"`
	ParentCursor   *int64         `json:"parent_cursor,omitempty"`
	Metadata       map[string]any `json:"metadata"`
}

// Clone returns a deep-enough copy suitable for use as a branch template:
// the metadata map is copied so neither FlowMeta can mutate the other's.
func (f FlowMeta) Clone() FlowMeta {
	c := f
	if f.Metadata != nil {
		c.Metadata = make(map[string]any, len(f.Metadata))
		for k, v := range f.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// StepRecord is one entry of a flow's append-only log (the "FlowData" of
// spec.md). Records are immutable once persisted; cursor is strictly
// positive and strictly increasing per flow.
type StepRecord struct {
	ID        uuid.UUID      `json:"id"`
	FlowID    uuid.UUID      `json:"flow_id"`
	Cursor    int64          `json:"cursor"`
	Key       string         `json:"key"`
	Payload   map[string]any `json:"payload"`
	Metadata  map[string]any `json:"metadata"`
	CommandID *uuid.UUID     `json:"command_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Snapshot is an opaque serialized engine state keyed by flow and cursor.
// (flow_id, cursor) is informational, not unique: several snapshots may
// share a cursor, the latest one winning ties by creation time.
type Snapshot struct {
	ID        uuid.UUID      `json:"id"`
	FlowID    uuid.UUID      `json:"flow_id"`
	Cursor    int64          `json:"cursor"`
	StatePtr  string         `json:"state_ptr"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// PersistResult is the outcome of an optimistic append: either a new
// version number, or a Conflict value (not an error - the caller is
// expected to re-read and retry).
type PersistResult struct {
	Conflict   bool
	NewVersion int64
}

// Ok reports a successful append at new version v.
func Ok(v int64) PersistResult { return PersistResult{NewVersion: v} }

// ConflictResult reports an optimistic-version mismatch.
func ConflictResult() PersistResult { return PersistResult{Conflict: true} }

// WorkItem is a unit of claimable work, used by the optional worker-claim
// queue (see SPEC_FULL.md section D). It is not part of any spec.md
// invariant: a backend that never populates it is fully compliant.
type WorkItem struct {
	FlowID      uuid.UUID `json:"flow_id"`
	LastCursor  int64     `json:"last_cursor"`
	SnapshotPtr *string   `json:"snapshot_ptr,omitempty"`
}

// Reserved record keys (spec.md section 6).
const (
	KeyBranchCreated = "BranchCreated"
	stepStatePrefix  = "step_state:"
)

// StepStateKey builds the reserved "step_state:<name>" record key, always
// lowercased on write (spec.md section 9: case sensitivity of step_state).
func StepStateKey(stepName string) string {
	return stepStatePrefix + lower(stepName)
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

// Reserved FlowMetaKV keys (spec.md section 6).
const (
	MetaKeyFlowMetadata = "flow_metadata"
	MetaKeyWorkflowType = "workflow_type"
)

// FlowStatus is the small closed set of lifecycle states a flow's
// flow_metadata.status string may hold. The core never transitions these
// automatically; they are set by engine/CLI writes.
type FlowStatus string

const (
	StatusNotStarted FlowStatus = "NotStarted"
	StatusRunning    FlowStatus = "Running"
	StatusCompleted  FlowStatus = "Completed"
	StatusFailed     FlowStatus = "Failed"
	StatusUnknown    FlowStatus = "Unknown"
)

// ParseFlowStatus maps an arbitrary string to the closed FlowStatus set,
// defaulting to StatusUnknown for anything it doesn't recognize.
func ParseFlowStatus(s string) FlowStatus {
	switch FlowStatus(s) {
	case StatusNotStarted, StatusRunning, StatusCompleted, StatusFailed:
		return FlowStatus(s)
	default:
		return StatusUnknown
	}
}
