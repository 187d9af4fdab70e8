package flowtypes

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestFlowMetaCloneIsIndependent(t *testing.T) {
	orig := FlowMeta{
		ID:       uuid.New(),
		Metadata: map[string]any{"owner": "alice"},
	}
	clone := orig.Clone()

	if diff := cmp.Diff(orig, clone); diff != "" {
		t.Fatalf("clone diverged from original before mutation (-orig +clone):\n%s", diff)
	}

	clone.Metadata["owner"] = "bob"
	if orig.Metadata["owner"] != "alice" {
		t.Fatalf("mutating clone.Metadata leaked into orig: %v", orig.Metadata)
	}
}

func TestStepStateKeyLowercasesName(t *testing.T) {
	got := StepStateKey("Validate")
	want := "step_state:validate"
	if got != want {
		t.Fatalf("StepStateKey(%q) = %q, want %q", "Validate", got, want)
	}
}

func TestParseFlowStatusUnknownFallback(t *testing.T) {
	if got := ParseFlowStatus("Bogus"); got != StatusUnknown {
		t.Fatalf("ParseFlowStatus(%q) = %q, want %q", "Bogus", got, StatusUnknown)
	}
	if got := ParseFlowStatus(string(StatusRunning)); got != StatusRunning {
		t.Fatalf("ParseFlowStatus(%q) = %q, want %q", "Running", got, StatusRunning)
	}
}
