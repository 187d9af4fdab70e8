package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateFlowAndPersistData(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	name := "demo"
	id, err := db.CreateFlow(ctx, &name, nil, map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("CreateFlow: %v", err)
	}

	res, err := db.PersistData(ctx, id, "step_state:start", map[string]any{"ok": true}, nil, nil, 0)
	if err != nil {
		t.Fatalf("PersistData: %v", err)
	}
	if res.Conflict || res.NewVersion != 1 {
		t.Fatalf("want version 1, got %+v", res)
	}

	meta, err := db.GetFlowMeta(ctx, id)
	if err != nil {
		t.Fatalf("GetFlowMeta: %v", err)
	}
	if meta.CurrentCursor != 1 || meta.CurrentVersion != 1 {
		t.Fatalf("want cursor=1 version=1, got %+v", meta)
	}
	if meta.Name == nil || *meta.Name != "demo" {
		t.Fatalf("want name=demo, got %+v", meta.Name)
	}
}

func TestCreateBranchAndDeleteOrphans(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	parent, err := db.CreateFlow(ctx, nil, nil, nil)
	if err != nil {
		t.Fatalf("CreateFlow: %v", err)
	}
	if _, err := db.PersistData(ctx, parent, "k", nil, nil, nil, 0); err != nil {
		t.Fatalf("PersistData: %v", err)
	}

	child, err := db.CreateBranch(ctx, parent, nil, nil, 1, nil)
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if branchMeta, err := db.GetFlowMeta(ctx, child); err != nil {
		t.Fatalf("GetFlowMeta: %v", err)
	} else if branchMeta.CurrentVersion != 0 {
		t.Fatalf("want current_version=0 on a fresh branch, got %d", branchMeta.CurrentVersion)
	}

	if err := db.DeleteBranch(ctx, parent); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}

	childMeta, err := db.GetFlowMeta(ctx, child)
	if err != nil {
		t.Fatalf("child should survive: %v", err)
	}
	if childMeta.ParentFlowID != nil {
		t.Fatalf("want child orphaned, got parent %v", *childMeta.ParentFlowID)
	}
}

func TestCountStepsExcludesBranchMarkerAndNonexistentFlow(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	parent, err := db.CreateFlow(ctx, nil, nil, nil)
	if err != nil {
		t.Fatalf("CreateFlow: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := db.PersistData(ctx, parent, "k", nil, nil, nil, int64(i)); err != nil {
			t.Fatalf("PersistData %d: %v", i, err)
		}
	}

	n, err := db.CountSteps(ctx, parent)
	if err != nil {
		t.Fatalf("CountSteps: %v", err)
	}
	if n != 5 {
		t.Fatalf("want 5, got %d", n)
	}

	child, err := db.CreateBranch(ctx, parent, nil, nil, 3, nil)
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	n, err = db.CountSteps(ctx, child)
	if err != nil {
		t.Fatalf("CountSteps: %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3 (BranchCreated marker excluded), got %d", n)
	}

	n, err = db.CountSteps(ctx, uuid.New())
	if err != nil {
		t.Fatalf("CountSteps on missing flow returned an error instead of -1: %v", err)
	}
	if n != -1 {
		t.Fatalf("want -1 for nonexistent flow, got %d", n)
	}
}

func TestWorkQueueClaimEmpty(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	item, err := db.ClaimWork(ctx, "worker-1")
	if err != nil {
		t.Fatalf("ClaimWork: %v", err)
	}
	if item != nil {
		t.Fatalf("want nil item on empty queue, got %+v", item)
	}
}
