package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// DeleteBranch removes flowID entirely and orphans its direct children
// (clears their parent_flow_id/parent_cursor) instead of cascading into
// them. This is a deliberate divergence from the original flow crate's
// InMemoryFlowRepository, which cascades; spec.md section 4.4 requires
// orphaning.
func (s *Store) DeleteBranch(_ context.Context, flowID uuid.UUID) error {
	s.flowsMu.Lock()
	if _, ok := s.flows[flowID]; !ok {
		s.flowsMu.Unlock()
		return flowtypes.NotFound(op+".DeleteBranch", nil)
	}
	for _, e := range s.flows {
		if e.meta.ParentFlowID != nil && *e.meta.ParentFlowID == flowID {
			e.meta.ParentFlowID = nil
			e.meta.ParentCursor = nil
		}
	}
	delete(s.flows, flowID)
	s.flowsMu.Unlock()

	s.stepsMu.Lock()
	delete(s.steps, flowID)
	s.stepsMu.Unlock()

	s.snapshotsMu.Lock()
	for _, snap := range s.snapshots[flowID] {
		delete(s.snapByID, snap.ID)
	}
	delete(s.snapshots, flowID)
	s.snapshotsMu.Unlock()

	s.idempMu.Lock()
	delete(s.idemp, flowID)
	s.idempMu.Unlock()

	return nil
}

// DeleteFromStep truncates flowID's log to cursor < fromCursor and its
// snapshots to cursor < fromCursor, leaving current_cursor/current_version
// untouched (SPEC_FULL.md section E, decision 1). Children whose
// parent_cursor falls in the truncated range lose their fork point and are
// themselves deleted (recursively, via DeleteBranch); children forked at
// an earlier, surviving cursor are left alone.
func (s *Store) DeleteFromStep(ctx context.Context, flowID uuid.UUID, fromCursor int64) error {
	s.flowsMu.Lock()
	if _, ok := s.flows[flowID]; !ok {
		s.flowsMu.Unlock()
		return flowtypes.NotFound(op+".DeleteFromStep", nil)
	}
	var toCascade []uuid.UUID
	for id, e := range s.flows {
		if e.meta.ParentFlowID != nil && *e.meta.ParentFlowID == flowID &&
			e.meta.ParentCursor != nil && *e.meta.ParentCursor >= fromCursor {
			toCascade = append(toCascade, id)
		}
	}
	s.flowsMu.Unlock()

	s.stepsMu.Lock()
	kept := s.steps[flowID][:0:0]
	for _, r := range s.steps[flowID] {
		if r.Cursor < fromCursor {
			kept = append(kept, r)
		}
	}
	s.steps[flowID] = kept
	s.stepsMu.Unlock()

	s.snapshotsMu.Lock()
	keptSnaps := s.snapshots[flowID][:0:0]
	for _, sn := range s.snapshots[flowID] {
		if sn.Cursor < fromCursor {
			keptSnaps = append(keptSnaps, sn)
		} else {
			delete(s.snapByID, sn.ID)
		}
	}
	s.snapshots[flowID] = keptSnaps
	s.snapshotsMu.Unlock()

	for _, childID := range toCascade {
		if err := s.DeleteBranch(ctx, childID); err != nil {
			return err
		}
	}
	return nil
}
