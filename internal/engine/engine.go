package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowmeta"
	"github.com/chemgl/flowstate/internal/flowtypes"
	"github.com/chemgl/flowstate/internal/storage"
)

// Engine dispatches a fixed, ordered table of named steps over a single
// storage.Storage. The dispatch table is closed once NewEngine returns: an
// Engine never discovers new steps at runtime, matching spec.md's
// description of the step handler interface as engine-owned.
type Engine struct {
	store  storage.Storage
	steps  []StepInfo
	byName map[string]StepInfo
	cfg    Config
	gate   *Gate
}

// NewEngine builds an Engine over store with a closed dispatch table.
// Step names must be unique; DependsOn references must name a step that
// appears earlier in steps (forward/self dependencies are a validation
// error).
func NewEngine(store storage.Storage, cfg Config, steps []StepInfo) (*Engine, error) {
	if cfg.PersistenceMode == SeparateTables {
		return nil, validationErr("NewEngine", fmt.Errorf("SeparateTables persistence mode has no backing implementation"))
	}

	byName := make(map[string]StepInfo, len(steps))
	for i, s := range steps {
		if s.Name == "" {
			return nil, validationErr("NewEngine", fmt.Errorf("step %d: empty name", i))
		}
		if _, dup := byName[s.Name]; dup {
			return nil, validationErr("NewEngine", fmt.Errorf("duplicate step name %q", s.Name))
		}
		s.Index = i
		byName[s.Name] = s
		steps[i] = s
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			depInfo, ok := byName[dep]
			if !ok {
				return nil, validationErr("NewEngine", fmt.Errorf("step %q depends on unknown step %q", s.Name, dep))
			}
			if depInfo.Index >= s.Index {
				return nil, validationErr("NewEngine", fmt.Errorf("step %q depends on %q which does not precede it", s.Name, dep))
			}
		}
	}

	return &Engine{store: store, steps: steps, byName: byName, cfg: cfg, gate: NewGate()}, nil
}

// StartFlow creates a new flow and records the engine's declared version
// (if set) under the reserved "engine_version" FlowMetaKV key.
func (e *Engine) StartFlow(ctx context.Context, name, status *string, metadata map[string]any) (uuid.UUID, error) {
	id, err := e.store.CreateFlow(ctx, name, status, metadata)
	if err != nil {
		return uuid.Nil, persistenceErr("StartFlow", err)
	}
	if e.cfg.EngineVersion != "" {
		if err := e.store.SetMeta(ctx, id, "engine_version", e.cfg.EngineVersion); err != nil {
			return id, persistenceErr("StartFlow", err)
		}
	}
	return id, nil
}

// nextStep returns the StepInfo whose position in the dispatch table
// corresponds to the next step to execute. The engine derives "next step"
// purely from how many step_state records already exist for this flow,
// matching a single linear pass over the table; once every step has a
// record it returns a validation error.
func (e *Engine) nextStep(ctx context.Context, flowID uuid.UUID) (StepInfo, error) {
	recs, err := e.store.ReadData(ctx, flowID, 0)
	if err != nil {
		return StepInfo{}, persistenceErr("nextStep", err)
	}
	done := 0
	for _, r := range recs {
		if strings.HasPrefix(r.Key, "step_state:") {
			done++
		}
	}
	if done >= len(e.steps) {
		return StepInfo{}, validationErr("nextStep", fmt.Errorf("flow has no remaining steps"))
	}
	return e.steps[done], nil
}

// ExecuteCurrentStep dispatches the next not-yet-run step in the table,
// checking DependsOn against already-persisted step_state records before
// invoking the handler. Readers compare step names case-insensitively
// (spec.md section 9): DependsOn is matched with strings.EqualFold.
func (e *Engine) ExecuteCurrentStep(ctx context.Context, flowID uuid.UUID) (flowtypes.PersistResult, error) {
	return e.executeStep(ctx, flowID, true)
}

// ExecuteCurrentStepUnchecked behaves like ExecuteCurrentStep but skips
// the DependsOn check, for callers (tests, manual recovery tooling) that
// know what they're doing.
func (e *Engine) ExecuteCurrentStepUnchecked(ctx context.Context, flowID uuid.UUID) (flowtypes.PersistResult, error) {
	return e.executeStep(ctx, flowID, false)
}

func (e *Engine) executeStep(ctx context.Context, flowID uuid.UUID, checkDeps bool) (flowtypes.PersistResult, error) {
	release, err := e.store.LockForUpdate(ctx, flowID)
	if err != nil {
		return flowtypes.PersistResult{}, persistenceErr("executeStep", err)
	}
	defer release()

	step, err := e.nextStep(ctx, flowID)
	if err != nil {
		return flowtypes.PersistResult{}, err
	}

	flowKey := flowID.String()
	if !e.gate.IsOpen(flowKey, step.Name) {
		return flowtypes.PersistResult{}, ErrGateClosed
	}

	meta, err := e.store.GetFlowMeta(ctx, flowID)
	if err != nil {
		return flowtypes.PersistResult{}, persistenceErr("executeStep", err)
	}

	if checkDeps {
		recs, err := e.store.ReadData(ctx, flowID, 0)
		if err != nil {
			return flowtypes.PersistResult{}, persistenceErr("executeStep", err)
		}
		satisfied := map[string]bool{}
		for _, r := range recs {
			if strings.HasPrefix(r.Key, "step_state:") {
				satisfied[strings.TrimPrefix(r.Key, "step_state:")] = true
			}
		}
		for _, dep := range step.DependsOn {
			ok := false
			for name := range satisfied {
				if strings.EqualFold(name, dep) {
					ok = true
					break
				}
			}
			if !ok {
				return flowtypes.PersistResult{}, validationErr("executeStep", fmt.Errorf("step %q missing dependency %q", step.Name, dep))
			}
		}
	}

	lastPayload, err := e.lastStepPayload(ctx, flowID)
	if err != nil {
		return flowtypes.PersistResult{}, err
	}

	res, err := step.Handler(StepContext{
		Context:      ctx,
		FlowID:       flowID,
		Cursor:       meta.CurrentCursor + 1,
		LastPayload:  lastPayload,
		FlowMetadata: meta.Metadata,
	})
	if err != nil {
		return flowtypes.PersistResult{}, validationErr("executeStep", fmt.Errorf("step %q handler: %w", step.Name, err))
	}

	return e.persistStepResult(ctx, flowID, step, res, meta.CurrentVersion)
}

// lastStepPayload returns the payload of the most recently persisted
// step_state record, or nil if none exists yet.
func (e *Engine) lastStepPayload(ctx context.Context, flowID uuid.UUID) (map[string]any, error) {
	recs, err := e.store.ReadData(ctx, flowID, 0)
	if err != nil {
		return nil, persistenceErr("lastStepPayload", err)
	}
	var last *flowtypes.StepRecord
	for i := range recs {
		if strings.HasPrefix(recs[i].Key, "step_state:") {
			last = &recs[i]
		}
	}
	if last == nil {
		return nil, nil
	}
	return last.Payload, nil
}

// persistStepResult appends the step's record under its reserved key, then
// advances the flow_metadata.current_step side-channel to cursor+1 (spec.md
// section 4.6) and, per SnapshotPolicy, best-effort saves a snapshot. A
// failed snapshot save does not fail the overall call: spec.md section 4.6
// describes snapshotting as best-effort, not part of the append's
// atomicity.
func (e *Engine) persistStepResult(ctx context.Context, flowID uuid.UUID, step StepInfo, res StepResult, expectedVersion int64) (flowtypes.PersistResult, error) {
	result, err := e.store.PersistData(ctx, flowID, step.recordKey(), res.Payload, res.Metadata, nil, expectedVersion)
	if err != nil {
		return flowtypes.PersistResult{}, persistenceErr("persistStepResult", err)
	}
	if result.Conflict {
		return result, nil
	}

	meta, err := e.store.GetFlowMeta(ctx, flowID)
	if err == nil {
		_ = e.setCurrentStep(ctx, flowID, meta.CurrentCursor+1)
		if e.cfg.SnapshotPolicy.Every > 0 && int(meta.CurrentCursor)%e.cfg.SnapshotPolicy.Every == 0 {
			_ = e.saveSnapshot(ctx, flowID, meta.CurrentCursor)
		}
	}
	return result, nil
}

// setCurrentStep writes flow_metadata.current_step, preserving whatever
// status already lives alongside it. A failure here never fails the
// caller: flow_metadata is a convenience side-channel, not part of the
// append's atomicity (spec.md section 4.6).
func (e *Engine) setCurrentStep(ctx context.Context, flowID uuid.UUID, step int64) error {
	raw, err := e.store.GetMeta(ctx, flowID, flowtypes.MetaKeyFlowMetadata)
	if err != nil && !flowtypes.IsKind(err, flowtypes.KindNotFound) {
		return err
	}
	updated, err := flowmeta.Set(raw, flowmeta.KeyCurrentStep, step)
	if err != nil {
		return err
	}
	return e.store.SetMeta(ctx, flowID, flowtypes.MetaKeyFlowMetadata, updated)
}

// AdvanceStep increments flow_metadata.current_step by one, independent of
// any append (spec.md section 4.6), for callers driving step progression
// without going through ExecuteCurrentStep. A flow with no current_step set
// yet is treated as 0, so the first AdvanceStep call sets it to 1 — this
// reads the raw fact, not CurrentStep's rehydration fallback hierarchy.
func (e *Engine) AdvanceStep(ctx context.Context, flowID uuid.UUID) error {
	raw, err := e.store.GetMeta(ctx, flowID, flowtypes.MetaKeyFlowMetadata)
	if err != nil && !flowtypes.IsKind(err, flowtypes.KindNotFound) {
		return persistenceErr("AdvanceStep", err)
	}
	var current int64
	if res := flowmeta.GetResult(raw, flowmeta.KeyCurrentStep); res.Exists() {
		current = res.Int()
	}
	if err := e.setCurrentStep(ctx, flowID, current+1); err != nil {
		return persistenceErr("AdvanceStep", err)
	}
	return nil
}

// SetFlowMetadataStatus writes flow_metadata.status, the side-channel
// status fact read back during rehydration (spec.md sections 4.6 and 9),
// distinct from the flow's own top-level Status field.
func (e *Engine) SetFlowMetadataStatus(ctx context.Context, flowID uuid.UUID, status string) error {
	raw, err := e.store.GetMeta(ctx, flowID, flowtypes.MetaKeyFlowMetadata)
	if err != nil && !flowtypes.IsKind(err, flowtypes.KindNotFound) {
		return persistenceErr("SetFlowMetadataStatus", err)
	}
	updated, err := flowmeta.WithStatus(raw, status)
	if err != nil {
		return serializationErr("SetFlowMetadataStatus", err)
	}
	if err := e.store.SetMeta(ctx, flowID, flowtypes.MetaKeyFlowMetadata, updated); err != nil {
		return persistenceErr("SetFlowMetadataStatus", err)
	}
	return nil
}

// FlowMetadataStatus reads flow_metadata.status back, returning ok=false if
// the side-channel or the key within it has never been set.
func (e *Engine) FlowMetadataStatus(ctx context.Context, flowID uuid.UUID) (status string, ok bool, err error) {
	raw, getErr := e.store.GetMeta(ctx, flowID, flowtypes.MetaKeyFlowMetadata)
	if getErr != nil {
		if flowtypes.IsKind(getErr, flowtypes.KindNotFound) {
			return "", false, nil
		}
		return "", false, persistenceErr("FlowMetadataStatus", getErr)
	}
	status, ok = flowmeta.Status(raw)
	return status, ok, nil
}

// CurrentStep resolves the next step to execute for flowID, in the order of
// preference spec.md section 4.6 and invariant 7 describe: the
// flow_metadata.current_step fact if set, otherwise the successor of the
// largest persisted record cursor, otherwise flow.current_cursor+1,
// otherwise 0.
func (e *Engine) CurrentStep(ctx context.Context, flowID uuid.UUID) (int64, error) {
	raw, err := e.store.GetMeta(ctx, flowID, flowtypes.MetaKeyFlowMetadata)
	if err == nil {
		if res := flowmeta.GetResult(raw, flowmeta.KeyCurrentStep); res.Exists() {
			return res.Int(), nil
		}
	} else if !flowtypes.IsKind(err, flowtypes.KindNotFound) {
		return 0, persistenceErr("CurrentStep", err)
	}

	recs, err := e.store.ReadData(ctx, flowID, 0)
	if err != nil {
		return 0, persistenceErr("CurrentStep", err)
	}
	if len(recs) > 0 {
		return recs[len(recs)-1].Cursor + 1, nil
	}

	meta, err := e.store.GetFlowMeta(ctx, flowID)
	if err != nil {
		if flowtypes.IsKind(err, flowtypes.KindNotFound) {
			return 0, nil
		}
		return 0, persistenceErr("CurrentStep", err)
	}
	return meta.CurrentCursor + 1, nil
}

func (e *Engine) saveSnapshot(ctx context.Context, flowID uuid.UUID, cursor int64) error {
	recs, err := e.store.ReadData(ctx, flowID, 0)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(recs)
	if err != nil {
		return serializationErr("saveSnapshot", err)
	}
	encoded := base64.StdEncoding.EncodeToString(blob)
	_, err = e.store.SaveSnapshot(ctx, flowID, cursor, encoded, nil)
	return err
}

// Snapshot forces an immediate snapshot regardless of SnapshotPolicy.
func (e *Engine) Snapshot(ctx context.Context, flowID uuid.UUID) error {
	meta, err := e.store.GetFlowMeta(ctx, flowID)
	if err != nil {
		return persistenceErr("Snapshot", err)
	}
	return e.saveSnapshot(ctx, flowID, meta.CurrentCursor)
}

// Rehydrate loads a flow's latest snapshot (if any), decodes it back into
// step records, and checks the stored "engine_version" fact (if present)
// against e.cfg.EngineVersion using semver comparison: a mismatch is
// logged by the caller via the returned bool, never an error, since
// spec.md treats this as advisory.
func (e *Engine) Rehydrate(ctx context.Context, flowID uuid.UUID) (records []flowtypes.StepRecord, versionSkew bool, err error) {
	snap, snapErr := e.store.LoadLatestSnapshot(ctx, flowID)
	var fromCursor int64
	if snapErr == nil {
		blob, decErr := base64.StdEncoding.DecodeString(snap.StatePtr)
		if decErr != nil {
			return nil, false, serializationErr("Rehydrate", decErr)
		}
		if decErr := json.Unmarshal(blob, &records); decErr != nil {
			return nil, false, serializationErr("Rehydrate", decErr)
		}
		fromCursor = snap.Cursor
	} else if !flowtypes.IsKind(snapErr, flowtypes.KindNotFound) {
		return nil, false, persistenceErr("Rehydrate", snapErr)
	}

	tail, err := e.store.ReadData(ctx, flowID, fromCursor)
	if err != nil {
		return nil, false, persistenceErr("Rehydrate", err)
	}
	records = append(records, tail...)

	versionSkew = e.checkVersionSkew(ctx, flowID)
	return records, versionSkew, nil
}

// checkVersionSkew compares the stored engine_version fact against
// e.cfg.EngineVersion via golang.org/x/mod/semver, returning true on any
// mismatch (including malformed stored versions). Errors reading the fact
// (including "not set") count as no skew.
func (e *Engine) checkVersionSkew(ctx context.Context, flowID uuid.UUID) bool {
	if e.cfg.EngineVersion == "" {
		return false
	}
	stored, err := e.store.GetMeta(ctx, flowID, "engine_version")
	if err != nil {
		return false
	}
	return compareVersions(stored, e.cfg.EngineVersion) != 0
}
