package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

const op = "memstore"

func (s *Store) CreateFlow(_ context.Context, name, status *string, metadata map[string]any) (uuid.UUID, error) {
	id := uuid.New()
	meta := flowtypes.FlowMeta{
		ID:        id,
		Name:      name,
		Status:    status,
		CreatedAt: time.Now().UTC(),
		Metadata:  cloneMap(metadata),
	}

	s.flowsMu.Lock()
	s.flows[id] = &flowEntry{meta: meta, kv: make(map[string]string)}
	s.flowsMu.Unlock()

	s.stepsMu.Lock()
	s.steps[id] = nil
	s.stepsMu.Unlock()

	return id, nil
}

func (s *Store) GetFlowMeta(_ context.Context, flowID uuid.UUID) (flowtypes.FlowMeta, error) {
	s.flowsMu.Lock()
	defer s.flowsMu.Unlock()
	e, ok := s.flows[flowID]
	if !ok {
		return flowtypes.FlowMeta{}, flowtypes.NotFound(op+".GetFlowMeta", nil)
	}
	return e.meta.Clone(), nil
}

func (s *Store) SetFlowStatus(_ context.Context, flowID uuid.UUID, status string) error {
	s.flowsMu.Lock()
	defer s.flowsMu.Unlock()
	e, ok := s.flows[flowID]
	if !ok {
		return flowtypes.NotFound(op+".SetFlowStatus", nil)
	}
	e.meta.Status = &status
	return nil
}

func (s *Store) GetMeta(_ context.Context, flowID uuid.UUID, key string) (string, error) {
	s.flowsMu.Lock()
	defer s.flowsMu.Unlock()
	e, ok := s.flows[flowID]
	if !ok {
		return "", flowtypes.NotFound(op+".GetMeta", nil)
	}
	v, ok := e.kv[key]
	if !ok {
		return "", flowtypes.NotFound(op+".GetMeta", nil)
	}
	return v, nil
}

func (s *Store) SetMeta(_ context.Context, flowID uuid.UUID, key, value string) error {
	s.flowsMu.Lock()
	defer s.flowsMu.Unlock()
	e, ok := s.flows[flowID]
	if !ok {
		return flowtypes.NotFound(op+".SetMeta", nil)
	}
	e.kv[key] = value
	return nil
}

// BranchExists walks parent_flow_id links from flowID upward looking for
// parentFlowID. It does not require holding flowsMu across the whole walk;
// each hop takes a fresh snapshot of the link it needs.
func (s *Store) BranchExists(_ context.Context, parentFlowID, flowID uuid.UUID) (bool, error) {
	cur := flowID
	seen := map[uuid.UUID]bool{}
	for {
		if cur == parentFlowID {
			return true, nil
		}
		if seen[cur] {
			return false, nil // cycle guard, should never happen
		}
		seen[cur] = true

		s.flowsMu.Lock()
		e, ok := s.flows[cur]
		var parent *uuid.UUID
		if ok {
			parent = e.meta.ParentFlowID
		}
		s.flowsMu.Unlock()

		if !ok || parent == nil {
			return false, nil
		}
		cur = *parent
	}
}
