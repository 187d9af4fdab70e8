package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

func TestWriteFlowJSONLFieldOrderIsStable(t *testing.T) {
	meta := flowtypes.FlowMeta{
		ID:            uuid.New(),
		CreatedAt:     time.Now().UTC(),
		CurrentCursor: 1,
	}
	rec := flowtypes.StepRecord{
		ID:        uuid.New(),
		FlowID:    meta.ID,
		Cursor:    1,
		Key:       "step_state:ingest",
		CreatedAt: meta.CreatedAt,
	}

	var buf bytes.Buffer
	if err := WriteFlowJSONL(&buf, meta, []flowtypes.StepRecord{rec}); err != nil {
		t.Fatalf("WriteFlowJSONL: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], `{"record_type":"flow_meta"`) {
		t.Fatalf("want flow_meta first field, got %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], `{"record_type":"step_record"`) {
		t.Fatalf("want step_record first field, got %s", lines[1])
	}
}
