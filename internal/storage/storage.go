// Package storage defines the record-store contract every backend
// (internal/storage/sqlite, internal/storage/memstore) must satisfy: the
// optimistic append protocol, branch materialization, prune/delete, the
// snapshot service, and FlowMetaKV access.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// Storage is the full record-store contract (spec.md section 4). A single
// implementation backs one logical store: a set of flows, their append-only
// step records, their snapshots, and their FlowMetaKV side table.
type Storage interface {
	// CreateFlow inserts a new FlowMeta at cursor 0, version 0. name,
	// status, and metadata are optional (status and name may be nil).
	CreateFlow(ctx context.Context, name, status *string, metadata map[string]any) (uuid.UUID, error)

	// GetFlowMeta returns the current FlowMeta, or a NotFound error.
	GetFlowMeta(ctx context.Context, flowID uuid.UUID) (flowtypes.FlowMeta, error)

	// SetFlowStatus updates only the FlowMeta status field, leaving
	// cursor/version untouched. It does not write any FlowMetaKV entry.
	SetFlowStatus(ctx context.Context, flowID uuid.UUID, status string) error

	// PersistData appends one record at the flow's current_cursor+1,
	// enforcing expectedVersion == current_version (optimistic
	// concurrency, spec.md section 4.2). commandID, if non-nil, makes the
	// append idempotent: a repeated call with the same commandID for the
	// same flow returns Ok with the flow's current version without
	// re-appending.
	PersistData(ctx context.Context, flowID uuid.UUID, key string, payload, metadata map[string]any, commandID *uuid.UUID, expectedVersion int64) (flowtypes.PersistResult, error)

	// ReadData returns records with cursor > fromCursor, in cursor order.
	ReadData(ctx context.Context, flowID uuid.UUID, fromCursor int64) ([]flowtypes.StepRecord, error)

	// CountSteps returns -1 if flowID does not exist; otherwise the number
	// of records with cursor <= current_cursor, which excludes any
	// BranchCreated marker (always one past current_cursor).
	CountSteps(ctx context.Context, flowID uuid.UUID) (int64, error)

	// CreateBranch forks a new flow from parentFlowID at parentCursor,
	// copying every record with cursor <= parentCursor under new record
	// ids, then appending a reserved flowtypes.KeyBranchCreated record at
	// parentCursor+1. The new flow's current_cursor is NOT advanced past
	// that marker record (spec.md section 4.3): callers must persist
	// further data starting at parentCursor+2.
	//
	// parentCursor may exceed the parent's current_cursor: branching
	// beyond the tip is permitted and simply copies everything available
	// (SPEC_FULL.md section E, decision 2).
	CreateBranch(ctx context.Context, parentFlowID uuid.UUID, name, status *string, parentCursor int64, metadata map[string]any) (uuid.UUID, error)

	// BranchExists reports whether flowID descends from parentFlowID,
	// directly or transitively, by walking parent_flow_id links.
	BranchExists(ctx context.Context, parentFlowID, flowID uuid.UUID) (bool, error)

	// DeleteBranch removes a single flow (its FlowMeta, records,
	// snapshots, and FlowMetaKV entries). Children of flowID are orphaned
	// (their parent_flow_id is cleared), never cascaded into, per the
	// explicit redesign in spec.md section 4.4.
	DeleteBranch(ctx context.Context, flowID uuid.UUID) error

	// DeleteFromStep removes every record of flowID with cursor >=
	// fromCursor, and every snapshot at or past that cursor. It does NOT
	// rewind current_cursor/current_version (SPEC_FULL.md section E,
	// decision 1), and it cascades ONLY to children whose parent_cursor
	// is now truncated away (parent_cursor >= fromCursor): those children
	// are themselves deleted via DeleteBranch, recursively. Children whose
	// fork point survives are left untouched.
	DeleteFromStep(ctx context.Context, flowID uuid.UUID, fromCursor int64) error

	// SaveSnapshot stores a new best-effort snapshot for flowID at cursor.
	SaveSnapshot(ctx context.Context, flowID uuid.UUID, cursor int64, statePtr string, metadata map[string]any) (uuid.UUID, error)

	// LoadLatestSnapshot returns the highest-cursor snapshot for flowID,
	// or a NotFound error if none exists.
	LoadLatestSnapshot(ctx context.Context, flowID uuid.UUID) (flowtypes.Snapshot, error)

	// LoadSnapshot returns a specific snapshot by id.
	LoadSnapshot(ctx context.Context, snapshotID uuid.UUID) (flowtypes.Snapshot, error)

	// GetMeta reads one FlowMetaKV value for flowID, or NotFound.
	GetMeta(ctx context.Context, flowID uuid.UUID, key string) (string, error)

	// SetMeta writes one FlowMetaKV value for flowID, creating it if
	// absent.
	SetMeta(ctx context.Context, flowID uuid.UUID, key, value string) error

	// LockForUpdate takes an advisory per-flow lock for the duration of
	// the returned release function's lifetime, serializing concurrent
	// append/branch/prune calls against the same flow within this
	// process. Both backends use an in-process mutex; the lock does not
	// extend across processes.
	LockForUpdate(ctx context.Context, flowID uuid.UUID) (release func(), err error)

	// ClaimWork pops one pending work item for workerID, or returns nil
	// if the queue is empty. Supplemental feature (SPEC_FULL.md section
	// D): no spec.md invariant depends on it.
	ClaimWork(ctx context.Context, workerID string) (*flowtypes.WorkItem, error)

	// EnqueueWork pushes a work item for a flow, making it eligible for a
	// future ClaimWork. Supplemental feature.
	EnqueueWork(ctx context.Context, item flowtypes.WorkItem) error

	// Close releases any resources (file handles, connections) held by
	// the backend.
	Close() error
}
