// Package memstore is the in-memory reference implementation of
// internal/storage.Storage, grounded on the original flow crate's
// InMemoryFlowRepository (stubs.rs). It exists for tests and for callers
// that don't need durability; it is not a cache in front of the sqlite
// backend.
//
// Lock ordering is fixed and must never be taken in reverse: flows, then
// steps, then snapshots. Every method that touches more than one map
// acquires them in that order to avoid deadlocking against itself.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

type flowEntry struct {
	meta flowtypes.FlowMeta
	kv   map[string]string
}

// Store is the in-memory Storage implementation.
type Store struct {
	flowsMu     sync.Mutex
	flows       map[uuid.UUID]*flowEntry
	stepsMu     sync.Mutex
	steps       map[uuid.UUID][]flowtypes.StepRecord
	snapshotsMu sync.Mutex
	snapshots   map[uuid.UUID][]flowtypes.Snapshot // keyed by flow id
	snapByID    map[uuid.UUID]flowtypes.Snapshot

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex

	idempMu sync.Mutex
	idemp   map[uuid.UUID]map[uuid.UUID]flowtypes.PersistResult // flow -> commandID -> result

	queueMu sync.Mutex
	queue   []flowtypes.WorkItem
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		flows:     make(map[uuid.UUID]*flowEntry),
		steps:     make(map[uuid.UUID][]flowtypes.StepRecord),
		snapshots: make(map[uuid.UUID][]flowtypes.Snapshot),
		snapByID:  make(map[uuid.UUID]flowtypes.Snapshot),
		locks:     make(map[uuid.UUID]*sync.Mutex),
		idemp:     make(map[uuid.UUID]map[uuid.UUID]flowtypes.PersistResult),
	}
}

func (s *Store) flowLock(id uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// LockForUpdate takes the per-flow advisory lock. ctx is accepted for
// interface parity with the Storage contract; this implementation never
// consults it for cancellation since acquiring
// an in-process mutex cannot deadlock against another process.
func (s *Store) LockForUpdate(_ context.Context, flowID uuid.UUID) (func(), error) {
	m := s.flowLock(flowID)
	m.Lock()
	return m.Unlock, nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func sortedSteps(recs []flowtypes.StepRecord) []flowtypes.StepRecord {
	out := make([]flowtypes.StepRecord, len(recs))
	copy(out, recs)
	sort.Slice(out, func(i, j int) bool { return out[i].Cursor < out[j].Cursor })
	return out
}
