package engine

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// NewBranch forks a single new flow from parentFlowID at parentCursor.
// Branching beyond the parent's current_cursor is permitted (SPEC_FULL.md
// section E, decision 2): the store simply copies whatever records exist
// at or before parentCursor.
func (e *Engine) NewBranch(ctx context.Context, parentFlowID uuid.UUID, name, status *string, parentCursor int64, metadata map[string]any) (uuid.UUID, error) {
	id, err := e.store.CreateBranch(ctx, parentFlowID, name, status, parentCursor, metadata)
	if err != nil {
		return uuid.Nil, persistenceErr("NewBranch", err)
	}
	return id, nil
}

// BranchSpec describes one fork requested from NewBranches.
type BranchSpec struct {
	Name         *string
	Status       *string
	ParentCursor int64
	Metadata     map[string]any
}

// NewBranches forks multiple branches from the same parent concurrently,
// bounded by golang.org/x/sync/errgroup's natural fan-out (one goroutine
// per spec, no extra semaphore since branch counts here are small and the
// sqlite backend already serializes writers via its single connection).
// If any fork fails, the others still run to completion; the first error
// is returned alongside whatever ids did succeed.
func (e *Engine) NewBranches(ctx context.Context, parentFlowID uuid.UUID, specs []BranchSpec) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(specs))
	var g errgroup.Group
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			id, err := e.store.CreateBranch(ctx, parentFlowID, spec.Name, spec.Status, spec.ParentCursor, spec.Metadata)
			if err != nil {
				return err
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ids, persistenceErr("NewBranches", err)
	}
	return ids, nil
}

// BranchExists reports whether flowID descends from parentFlowID.
func (e *Engine) BranchExists(ctx context.Context, parentFlowID, flowID uuid.UUID) (bool, error) {
	ok, err := e.store.BranchExists(ctx, parentFlowID, flowID)
	if err != nil {
		return false, persistenceErr("BranchExists", err)
	}
	return ok, nil
}

// DeleteBranch removes flowID, orphaning its direct children.
func (e *Engine) DeleteBranch(ctx context.Context, flowID uuid.UUID) error {
	if err := e.store.DeleteBranch(ctx, flowID); err != nil {
		return persistenceErr("DeleteBranch", err)
	}
	return nil
}

// DeleteFromStep truncates flowID at fromCursor, cascading only into
// children whose fork point is truncated away.
func (e *Engine) DeleteFromStep(ctx context.Context, flowID uuid.UUID, fromCursor int64) error {
	if err := e.store.DeleteFromStep(ctx, flowID, fromCursor); err != nil {
		return persistenceErr("DeleteFromStep", err)
	}
	return nil
}

// ReadData exposes the underlying store's ReadData for callers (CLI,
// tests) that need raw records without going through rehydration.
func (e *Engine) ReadData(ctx context.Context, flowID uuid.UUID, fromCursor int64) ([]flowtypes.StepRecord, error) {
	recs, err := e.store.ReadData(ctx, flowID, fromCursor)
	if err != nil {
		return nil, persistenceErr("ReadData", err)
	}
	return recs, nil
}
