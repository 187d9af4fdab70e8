package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

func (s *Store) SaveSnapshot(_ context.Context, flowID uuid.UUID, cursor int64, statePtr string, metadata map[string]any) (uuid.UUID, error) {
	s.flowsMu.Lock()
	_, ok := s.flows[flowID]
	s.flowsMu.Unlock()
	if !ok {
		return uuid.Nil, flowtypes.NotFound(op+".SaveSnapshot", nil)
	}

	snap := flowtypes.Snapshot{
		ID:        uuid.New(),
		FlowID:    flowID,
		Cursor:    cursor,
		StatePtr:  statePtr,
		Metadata:  cloneMap(metadata),
		CreatedAt: time.Now().UTC(),
	}

	s.snapshotsMu.Lock()
	s.snapshots[flowID] = append(s.snapshots[flowID], snap)
	s.snapByID[snap.ID] = snap
	s.snapshotsMu.Unlock()

	return snap.ID, nil
}

// LoadLatestSnapshot returns the snapshot with the highest cursor, ties
// broken by the most recently created (matches insertion order since
// SaveSnapshot always appends).
func (s *Store) LoadLatestSnapshot(_ context.Context, flowID uuid.UUID) (flowtypes.Snapshot, error) {
	s.snapshotsMu.Lock()
	defer s.snapshotsMu.Unlock()

	snaps := s.snapshots[flowID]
	if len(snaps) == 0 {
		return flowtypes.Snapshot{}, flowtypes.NotFound(op+".LoadLatestSnapshot", nil)
	}
	best := snaps[0]
	for _, sn := range snaps[1:] {
		if sn.Cursor >= best.Cursor {
			best = sn
		}
	}
	return best, nil
}

func (s *Store) LoadSnapshot(_ context.Context, snapshotID uuid.UUID) (flowtypes.Snapshot, error) {
	s.snapshotsMu.Lock()
	defer s.snapshotsMu.Unlock()
	sn, ok := s.snapByID[snapshotID]
	if !ok {
		return flowtypes.Snapshot{}, flowtypes.NotFound(op+".LoadSnapshot", nil)
	}
	return sn, nil
}
