// Package export serializes a flow's metadata and records to deterministic
// JSONL, one JSON object per line, field order fixed regardless of Go map
// iteration order. Grounded on the teacher's own dirty-issue JSONL export
// pipeline, using go-ordered-map/v2 (a teacher indirect dependency with no
// sampled call site) to get that determinism without hand-rolling a
// sorted-keys JSON encoder.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// WriteFlowJSONL writes one line for the flow's FlowMeta followed by one
// line per StepRecord, in the order records are given (ReadData returns
// them in cursor order), to w.
func WriteFlowJSONL(w io.Writer, meta flowtypes.FlowMeta, records []flowtypes.StepRecord) error {
	if err := writeLine(w, flowMetaObject(meta)); err != nil {
		return fmt.Errorf("export: write flow_meta line: %w", err)
	}
	for _, r := range records {
		if err := writeLine(w, stepRecordObject(r)); err != nil {
			return fmt.Errorf("export: write step_record line: %w", err)
		}
	}
	return nil
}

func writeLine(w io.Writer, om *orderedmap.OrderedMap[string, any]) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(om); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func flowMetaObject(m flowtypes.FlowMeta) *orderedmap.OrderedMap[string, any] {
	om := orderedmap.New[string, any]()
	om.Set("record_type", "flow_meta")
	om.Set("id", m.ID.String())
	om.Set("name", m.Name)
	om.Set("status", m.Status)
	om.Set("created_by", m.CreatedBy)
	om.Set("created_at", m.CreatedAt)
	om.Set("current_cursor", m.CurrentCursor)
	om.Set("current_version", m.CurrentVersion)
	if m.ParentFlowID != nil {
		om.Set("parent_flow_id", m.ParentFlowID.String())
	} else {
		om.Set("parent_flow_id", nil)
	}
	om.Set("parent_cursor", m.ParentCursor)
	om.Set("metadata", m.Metadata)
	return om
}

func stepRecordObject(r flowtypes.StepRecord) *orderedmap.OrderedMap[string, any] {
	om := orderedmap.New[string, any]()
	om.Set("record_type", "step_record")
	om.Set("id", r.ID.String())
	om.Set("flow_id", r.FlowID.String())
	om.Set("cursor", r.Cursor)
	om.Set("key", r.Key)
	om.Set("payload", r.Payload)
	om.Set("metadata", r.Metadata)
	if r.CommandID != nil {
		om.Set("command_id", r.CommandID.String())
	} else {
		om.Set("command_id", nil)
	}
	om.Set("created_at", r.CreatedAt)
	return om
}
