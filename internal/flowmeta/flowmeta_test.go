package flowmeta

import "testing"

func TestSetAndGetCurrentStep(t *testing.T) {
	raw, err := WithCurrentStep("{}", "ingest")
	if err != nil {
		t.Fatalf("WithCurrentStep: %v", err)
	}
	got, ok := CurrentStep(raw)
	if !ok || got != "ingest" {
		t.Fatalf("want current_step=ingest, got %q ok=%v", got, ok)
	}
}

func TestGetMissingPath(t *testing.T) {
	_, ok := Get(`{"a":1}`, "b")
	if ok {
		t.Fatalf("want missing path to report ok=false")
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	raw, _ := Set("{}", KeyStatus, "Running")
	raw, err := Delete(raw, KeyStatus)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := Status(raw); ok {
		t.Fatalf("want status removed")
	}
}
