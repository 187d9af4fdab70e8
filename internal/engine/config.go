package engine

// PersistenceMode selects how a snapshot's serialized state is stored.
// Supplemented from the original chemical-flow engine's WorkflowConfig
// (see SPEC_FULL.md section D): spec.md itself only says "pick one and
// document", this is that decision made concrete and configurable.
type PersistenceMode int

const (
	// Embedded stores the snapshot's payload directly as Snapshot.StatePtr
	// (base64 JSON). This is the only mode the sqlite and memstore
	// backends implement.
	Embedded PersistenceMode = iota
	// SeparateTables treats StatePtr as an opaque key into an external
	// blob store. Reserved for a future backend; selecting it today is a
	// validation error from NewEngine.
	SeparateTables
)

// SnapshotPolicy decides how often Engine saves a snapshot after a
// successful PersistStepResult.
type SnapshotPolicy struct {
	// Every, if > 0, snapshots after a successful persist whose new
	// current_cursor is a multiple of Every. A value of 0 means Never.
	Every int
}

// Never disables automatic snapshotting; callers may still call
// Engine.Snapshot explicitly.
var Never = SnapshotPolicy{Every: 0}

// EveryN snapshots after each successful persist that lands on a cursor
// divisible by n.
func EveryN(n int) SnapshotPolicy { return SnapshotPolicy{Every: n} }

// Config is the engine-level configuration supplementing spec.md's
// engine contract, grounded on the original chemical-flow engine's
// WorkflowConfig (persistence_mode/snapshot_policy).
type Config struct {
	PersistenceMode PersistenceMode
	SnapshotPolicy  SnapshotPolicy
	// EngineVersion, if set, is recorded under the FlowMetaKV
	// "engine_version" key when StartFlow creates a flow and compared (via
	// golang.org/x/mod/semver) against the stored value on rehydrate;
	// a mismatch only warns, it never blocks rehydration.
	EngineVersion string
}

// DefaultConfig matches spec.md section 4.6's description of snapshotting
// as "best-effort... on every persist": Embedded storage, snapshot every
// time.
func DefaultConfig() Config {
	return Config{PersistenceMode: Embedded, SnapshotPolicy: EveryN(1)}
}
