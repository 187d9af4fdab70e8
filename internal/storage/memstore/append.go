package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// PersistData implements the optimistic append protocol (spec.md section
// 4.2): read current_version, compare against expectedVersion, append at
// current_cursor+1 iff they match, bump cursor and version together.
func (s *Store) PersistData(_ context.Context, flowID uuid.UUID, key string, payload, metadata map[string]any, commandID *uuid.UUID, expectedVersion int64) (flowtypes.PersistResult, error) {
	s.flowsMu.Lock()
	defer s.flowsMu.Unlock()

	e, ok := s.flows[flowID]
	if !ok {
		return flowtypes.PersistResult{}, flowtypes.NotFound(op+".PersistData", nil)
	}

	if commandID != nil {
		s.idempMu.Lock()
		if byCmd, ok := s.idemp[flowID]; ok {
			if _, ok := byCmd[*commandID]; ok {
				s.idempMu.Unlock()
				return flowtypes.Ok(e.meta.CurrentVersion), nil
			}
		}
		s.idempMu.Unlock()
	}

	if e.meta.CurrentVersion != expectedVersion {
		return flowtypes.ConflictResult(), nil
	}

	newCursor := e.meta.CurrentCursor + 1
	newVersion := e.meta.CurrentVersion + 1

	rec := flowtypes.StepRecord{
		ID:        uuid.New(),
		FlowID:    flowID,
		Cursor:    newCursor,
		Key:       key,
		Payload:   cloneMap(payload),
		Metadata:  cloneMap(metadata),
		CommandID: commandID,
		CreatedAt: time.Now().UTC(),
	}

	s.stepsMu.Lock()
	s.steps[flowID] = append(s.steps[flowID], rec)
	s.stepsMu.Unlock()

	e.meta.CurrentCursor = newCursor
	e.meta.CurrentVersion = newVersion

	result := flowtypes.Ok(newVersion)
	if commandID != nil {
		s.idempMu.Lock()
		if s.idemp[flowID] == nil {
			s.idemp[flowID] = make(map[uuid.UUID]flowtypes.PersistResult)
		}
		s.idemp[flowID][*commandID] = result
		s.idempMu.Unlock()
	}
	return result, nil
}

func (s *Store) ReadData(_ context.Context, flowID uuid.UUID, fromCursor int64) ([]flowtypes.StepRecord, error) {
	s.flowsMu.Lock()
	_, ok := s.flows[flowID]
	s.flowsMu.Unlock()
	if !ok {
		return nil, flowtypes.NotFound(op+".ReadData", nil)
	}

	s.stepsMu.Lock()
	all := sortedSteps(s.steps[flowID])
	s.stepsMu.Unlock()

	out := make([]flowtypes.StepRecord, 0, len(all))
	for _, r := range all {
		if r.Cursor > fromCursor {
			out = append(out, r)
		}
	}
	return out, nil
}

// CountSteps returns -1 for a flow that does not exist; otherwise the
// number of records at or before current_cursor, which excludes any
// BranchCreated marker (always one past current_cursor, spec.md section 4.3).
func (s *Store) CountSteps(_ context.Context, flowID uuid.UUID) (int64, error) {
	s.flowsMu.Lock()
	e, ok := s.flows[flowID]
	var currentCursor int64
	if ok {
		currentCursor = e.meta.CurrentCursor
	}
	s.flowsMu.Unlock()
	if !ok {
		return -1, nil
	}

	s.stepsMu.Lock()
	defer s.stepsMu.Unlock()
	var n int64
	for _, r := range s.steps[flowID] {
		if r.Cursor <= currentCursor {
			n++
		}
	}
	return n, nil
}
