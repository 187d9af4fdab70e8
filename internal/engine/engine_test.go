package engine

import (
	"context"
	"testing"

	"github.com/chemgl/flowstate/internal/storage/memstore"
)

func handlerReturning(payload map[string]any) StepHandler {
	return func(StepContext) (StepResult, error) {
		return StepResult{Payload: payload}, nil
	}
}

func TestExecuteCurrentStepRunsInOrderAndChecksDeps(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	eng, err := NewEngine(store, DefaultConfig(), []StepInfo{
		{Name: "ingest", Handler: handlerReturning(map[string]any{"n": 1})},
		{Name: "transform", Handler: handlerReturning(map[string]any{"n": 2}), DependsOn: []string{"ingest"}},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	flowID, err := eng.StartFlow(ctx, nil, nil, nil)
	if err != nil {
		t.Fatalf("StartFlow: %v", err)
	}

	if _, err := eng.ExecuteCurrentStep(ctx, flowID); err != nil {
		t.Fatalf("execute ingest: %v", err)
	}
	if _, err := eng.ExecuteCurrentStep(ctx, flowID); err != nil {
		t.Fatalf("execute transform: %v", err)
	}

	recs, err := eng.ReadData(ctx, flowID, 0)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
	if recs[0].Key != "step_state:ingest" || recs[1].Key != "step_state:transform" {
		t.Fatalf("unexpected keys: %q, %q", recs[0].Key, recs[1].Key)
	}
}

func TestNewEngineRejectsOutOfOrderDependency(t *testing.T) {
	store := memstore.New()
	_, err := NewEngine(store, DefaultConfig(), []StepInfo{
		{Name: "a", Handler: handlerReturning(nil), DependsOn: []string{"b"}},
		{Name: "b", Handler: handlerReturning(nil)},
	})
	if err == nil {
		t.Fatalf("want validation error for forward dependency")
	}
}

func TestGateClosedBlocksExecution(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	eng, err := NewEngine(store, DefaultConfig(), []StepInfo{
		{Name: "gated", Handler: handlerReturning(nil)},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	flowID, _ := eng.StartFlow(ctx, nil, nil, nil)
	eng.gate.Close(flowID.String(), "gated")

	_, err = eng.ExecuteCurrentStep(ctx, flowID)
	if err != ErrGateClosed {
		t.Fatalf("want ErrGateClosed, got %v", err)
	}
}

func TestRehydrateReplaysFromSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	eng, err := NewEngine(store, EveryNConfig(1), []StepInfo{
		{Name: "a", Handler: handlerReturning(map[string]any{"v": "a"})},
		{Name: "b", Handler: handlerReturning(map[string]any{"v": "b"})},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	flowID, _ := eng.StartFlow(ctx, nil, nil, nil)
	if _, err := eng.ExecuteCurrentStep(ctx, flowID); err != nil {
		t.Fatalf("execute a: %v", err)
	}
	if _, err := eng.ExecuteCurrentStep(ctx, flowID); err != nil {
		t.Fatalf("execute b: %v", err)
	}

	recs, skew, err := eng.Rehydrate(ctx, flowID)
	if err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if skew {
		t.Fatalf("want no version skew when EngineVersion unset")
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records after rehydrate, got %d", len(recs))
	}
}

func TestCurrentStepTracksFlowMetadataAfterEachPersist(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	eng, err := NewEngine(store, DefaultConfig(), []StepInfo{
		{Name: "a", Handler: handlerReturning(map[string]any{"v": "a"})},
		{Name: "b", Handler: handlerReturning(map[string]any{"v": "b"}), DependsOn: []string{"a"}},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	flowID, _ := eng.StartFlow(ctx, nil, nil, nil)

	step, err := eng.CurrentStep(ctx, flowID)
	if err != nil {
		t.Fatalf("CurrentStep before any record: %v", err)
	}
	if step != 1 {
		t.Fatalf("want next step cursor 1 on a fresh flow, got %d", step)
	}

	if _, err := eng.ExecuteCurrentStep(ctx, flowID); err != nil {
		t.Fatalf("execute a: %v", err)
	}
	step, err = eng.CurrentStep(ctx, flowID)
	if err != nil {
		t.Fatalf("CurrentStep after step a: %v", err)
	}
	if step != 2 {
		t.Fatalf("want flow_metadata.current_step=2 after one persisted step, got %d", step)
	}

	if _, err := eng.ExecuteCurrentStep(ctx, flowID); err != nil {
		t.Fatalf("execute b: %v", err)
	}
	step, err = eng.CurrentStep(ctx, flowID)
	if err != nil {
		t.Fatalf("CurrentStep after step b: %v", err)
	}
	if step != 3 {
		t.Fatalf("want flow_metadata.current_step=3 after two persisted steps, got %d", step)
	}
}

func TestAdvanceStepIncrementsIndependentlyOfPersist(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	eng, err := NewEngine(store, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	flowID, _ := eng.StartFlow(ctx, nil, nil, nil)

	if err := eng.AdvanceStep(ctx, flowID); err != nil {
		t.Fatalf("AdvanceStep: %v", err)
	}
	step, err := eng.CurrentStep(ctx, flowID)
	if err != nil {
		t.Fatalf("CurrentStep: %v", err)
	}
	if step != 1 {
		t.Fatalf("want current_step=1 after one AdvanceStep on a fresh flow, got %d", step)
	}
}

func TestSetFlowMetadataStatusRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	eng, err := NewEngine(store, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	flowID, _ := eng.StartFlow(ctx, nil, nil, nil)

	if _, ok, err := eng.FlowMetadataStatus(ctx, flowID); err != nil || ok {
		t.Fatalf("want no status set yet, got ok=%v err=%v", ok, err)
	}

	if err := eng.SetFlowMetadataStatus(ctx, flowID, "running"); err != nil {
		t.Fatalf("SetFlowMetadataStatus: %v", err)
	}
	status, ok, err := eng.FlowMetadataStatus(ctx, flowID)
	if err != nil {
		t.Fatalf("FlowMetadataStatus: %v", err)
	}
	if !ok || status != "running" {
		t.Fatalf("want status=running ok=true, got %q %v", status, ok)
	}
}

func EveryNConfig(n int) Config {
	cfg := DefaultConfig()
	cfg.SnapshotPolicy = EveryN(n)
	return cfg
}
