package memstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestPersistDataOptimisticConflict(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.CreateFlow(ctx, nil, nil, nil)
	if err != nil {
		t.Fatalf("CreateFlow: %v", err)
	}

	res, err := s.PersistData(ctx, id, "step_state:ingest", map[string]any{"ok": true}, nil, nil, 0)
	if err != nil {
		t.Fatalf("PersistData: %v", err)
	}
	if res.Conflict || res.NewVersion != 1 {
		t.Fatalf("want version 1, got %+v", res)
	}

	// stale expected_version must conflict, not error
	res2, err := s.PersistData(ctx, id, "step_state:ingest", nil, nil, nil, 0)
	if err != nil {
		t.Fatalf("PersistData: %v", err)
	}
	if !res2.Conflict {
		t.Fatalf("want conflict, got %+v", res2)
	}

	meta, err := s.GetFlowMeta(ctx, id)
	if err != nil {
		t.Fatalf("GetFlowMeta: %v", err)
	}
	if meta.CurrentCursor != 1 || meta.CurrentVersion != 1 {
		t.Fatalf("want cursor=1 version=1, got %+v", meta)
	}
}

func TestPersistDataIdempotentCommandID(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, _ := s.CreateFlow(ctx, nil, nil, nil)

	cmd := uuid.New()
	r1, err := s.PersistData(ctx, id, "k", nil, nil, &cmd, 0)
	if err != nil {
		t.Fatalf("PersistData: %v", err)
	}
	r2, err := s.PersistData(ctx, id, "k", nil, nil, &cmd, 0)
	if err != nil {
		t.Fatalf("PersistData retry: %v", err)
	}
	if r1 != r2 {
		t.Fatalf("want identical result on retry, got %+v vs %+v", r1, r2)
	}

	count, _ := s.CountSteps(ctx, id)
	if count != 1 {
		t.Fatalf("want 1 record after idempotent retry, got %d", count)
	}
}

func TestCreateBranchCopiesPrefixAndAppendsMarker(t *testing.T) {
	ctx := context.Background()
	s := New()
	parent, _ := s.CreateFlow(ctx, nil, nil, nil)

	for i := 0; i < 3; i++ {
		if _, err := s.PersistData(ctx, parent, "k", nil, nil, nil, int64(i)); err != nil {
			t.Fatalf("PersistData %d: %v", i, err)
		}
	}

	child, err := s.CreateBranch(ctx, parent, nil, nil, 2, nil)
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	recs, err := s.ReadData(ctx, child, 0)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if len(recs) != 3 { // cursors 1, 2, and the BranchCreated marker at 3
		t.Fatalf("want 3 records, got %d", len(recs))
	}
	if recs[len(recs)-1].Cursor != 3 {
		t.Fatalf("want marker at cursor 3, got %d", recs[len(recs)-1].Cursor)
	}

	childMeta, err := s.GetFlowMeta(ctx, child)
	if err != nil {
		t.Fatalf("GetFlowMeta: %v", err)
	}
	if childMeta.CurrentCursor != 2 {
		t.Fatalf("want current_cursor=2 (marker not counted), got %d", childMeta.CurrentCursor)
	}
	if childMeta.CurrentVersion != 0 {
		t.Fatalf("want current_version=0 on a fresh branch, got %d", childMeta.CurrentVersion)
	}
}

func TestDeleteBranchOrphansChildrenInsteadOfCascading(t *testing.T) {
	ctx := context.Background()
	s := New()
	parent, _ := s.CreateFlow(ctx, nil, nil, nil)
	s.PersistData(ctx, parent, "k", nil, nil, nil, 0)

	child, err := s.CreateBranch(ctx, parent, nil, nil, 1, nil)
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	if err := s.DeleteBranch(ctx, parent); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}

	childMeta, err := s.GetFlowMeta(ctx, child)
	if err != nil {
		t.Fatalf("child should survive parent deletion: %v", err)
	}
	if childMeta.ParentFlowID != nil {
		t.Fatalf("want child orphaned (nil parent), got %v", *childMeta.ParentFlowID)
	}

	if _, err := s.GetFlowMeta(ctx, parent); err == nil {
		t.Fatalf("want parent gone after DeleteBranch")
	}
}

func TestDeleteFromStepCascadesOnlyTruncatedChildren(t *testing.T) {
	ctx := context.Background()
	s := New()
	parent, _ := s.CreateFlow(ctx, nil, nil, nil)
	for i := 0; i < 4; i++ {
		s.PersistData(ctx, parent, "k", nil, nil, nil, int64(i))
	}

	survivingChild, _ := s.CreateBranch(ctx, parent, nil, nil, 1, nil) // forked before cutoff
	truncatedChild, _ := s.CreateBranch(ctx, parent, nil, nil, 3, nil) // forked inside cutoff

	if err := s.DeleteFromStep(ctx, parent, 2); err != nil {
		t.Fatalf("DeleteFromStep: %v", err)
	}

	if _, err := s.GetFlowMeta(ctx, survivingChild); err != nil {
		t.Fatalf("surviving child should remain: %v", err)
	}
	if _, err := s.GetFlowMeta(ctx, truncatedChild); err == nil {
		t.Fatalf("truncated child should have been cascaded away")
	}

	meta, _ := s.GetFlowMeta(ctx, parent)
	if meta.CurrentCursor != 4 {
		t.Fatalf("prune must not rewind current_cursor, got %d", meta.CurrentCursor)
	}
}

func TestCountStepsExcludesBranchMarkerAndNonexistentFlow(t *testing.T) {
	ctx := context.Background()
	s := New()
	parent, _ := s.CreateFlow(ctx, nil, nil, nil)
	for i := 0; i < 5; i++ {
		s.PersistData(ctx, parent, "k", nil, nil, nil, int64(i))
	}

	n, err := s.CountSteps(ctx, parent)
	if err != nil {
		t.Fatalf("CountSteps: %v", err)
	}
	if n != 5 {
		t.Fatalf("want 5, got %d", n)
	}

	child, err := s.CreateBranch(ctx, parent, nil, nil, 3, nil)
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	n, err = s.CountSteps(ctx, child)
	if err != nil {
		t.Fatalf("CountSteps: %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3 (BranchCreated marker excluded), got %d", n)
	}

	n, err = s.CountSteps(ctx, uuid.New())
	if err != nil {
		t.Fatalf("CountSteps on missing flow returned an error instead of -1: %v", err)
	}
	if n != -1 {
		t.Fatalf("want -1 for nonexistent flow, got %d", n)
	}
}
