package config

import "testing"

func TestInitializeSetsDefaults(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if Backend() != "file:flowstate.db" {
		t.Fatalf("want default backend, got %q", Backend())
	}
	if SnapshotEvery() != 1 {
		t.Fatalf("want default snapshot.every=1, got %d", SnapshotEvery())
	}
}
