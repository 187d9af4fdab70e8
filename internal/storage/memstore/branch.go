package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// CreateBranch forks flowID's prefix of records up to and including
// parentCursor into a brand new flow, then appends a BranchCreated marker
// at parentCursor+1 without advancing current_cursor past it (spec.md
// section 4.3). parentCursor may exceed the parent's own current_cursor:
// only the records the parent actually has are copied, and parentCursor
// itself is not clamped (the new flow's current_cursor, parent_cursor and
// marker position all derive from it as given).
func (s *Store) CreateBranch(_ context.Context, parentFlowID uuid.UUID, name, status *string, parentCursor int64, metadata map[string]any) (uuid.UUID, error) {
	s.flowsMu.Lock()
	parentEntry, ok := s.flows[parentFlowID]
	var parentMeta flowtypes.FlowMeta
	if ok {
		parentMeta = parentEntry.meta.Clone()
	}
	s.flowsMu.Unlock()
	if !ok {
		return uuid.Nil, flowtypes.NotFound(op+".CreateBranch", nil)
	}

	s.stepsMu.Lock()
	parentSteps := sortedSteps(s.steps[parentFlowID])
	s.stepsMu.Unlock()

	s.snapshotsMu.Lock()
	parentSnaps := s.snapshots[parentFlowID]
	s.snapshotsMu.Unlock()

	newID := uuid.New()
	now := time.Now().UTC()

	newMeta := flowtypes.FlowMeta{
		ID:           newID,
		Name:         name,
		Status:       status,
		CreatedAt:    now,
		ParentFlowID: &parentFlowID,
		ParentCursor: &parentCursor,
		Metadata:     cloneMap(metadata),
	}
	if newMeta.Metadata == nil {
		newMeta.Metadata = cloneMap(parentMeta.Metadata)
	}

	var copied []flowtypes.StepRecord
	for _, r := range parentSteps {
		if r.Cursor > parentCursor {
			break
		}
		nr := r
		nr.ID = uuid.New()
		nr.FlowID = newID
		copied = append(copied, nr)
	}

	marker := flowtypes.StepRecord{
		ID:        uuid.New(),
		FlowID:    newID,
		Cursor:    parentCursor + 1,
		Key:       flowtypes.KeyBranchCreated,
		Payload:   map[string]any{"parent": parentFlowID.String()},
		CreatedAt: now,
	}
	copied = append(copied, marker)

	newMeta.CurrentCursor = parentCursor
	// CurrentVersion stays at its zero value: a branch starts its own
	// optimistic-lock generation at 0 regardless of how many records it
	// inherited (spec.md section 4.3).

	s.flowsMu.Lock()
	s.flows[newID] = &flowEntry{meta: newMeta, kv: make(map[string]string)}
	s.flowsMu.Unlock()

	s.stepsMu.Lock()
	s.steps[newID] = copied
	s.stepsMu.Unlock()

	var copiedSnaps []flowtypes.Snapshot
	for _, sn := range parentSnaps {
		if sn.Cursor > parentCursor {
			continue
		}
		nsn := sn
		nsn.ID = uuid.New()
		nsn.FlowID = newID
		copiedSnaps = append(copiedSnaps, nsn)
	}
	if len(copiedSnaps) > 0 {
		s.snapshotsMu.Lock()
		s.snapshots[newID] = append(s.snapshots[newID], copiedSnaps...)
		for _, nsn := range copiedSnaps {
			s.snapByID[nsn.ID] = nsn
		}
		s.snapshotsMu.Unlock()
	}

	return newID, nil
}
