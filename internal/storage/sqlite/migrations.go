package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/chemgl/flowstate/internal/storage/sqlite/migrations"
)

// Migration is one idempotent schema change, applied in order and recorded
// in schema_migrations so it never runs twice.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

// migrationsList is the ordered list of all migrations beyond the baseline
// schema. Every entry must be safe to run against a database that already
// has it applied (checked via schema_migrations, not by re-deriving state).
var migrationsList = []Migration{
	{"step_records_content_hash", migrations.MigrateContentHashColumn},
	{"work_queue_claimed_by_index", migrations.MigrateWorkQueueClaimedIndex},
}

// runMigrations applies every pending migration in order, outside any
// transaction, recording each completion in schema_migrations so it never
// runs twice. Open holds the cross-process init lock while this runs, so a
// second process initializing the same file sees the recorded migrations.
func runMigrations(db *sql.DB) error {
	for _, m := range migrationsList {
		var applied int
		err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, m.Name).Scan(&applied)
		if err != nil {
			return fmt.Errorf("migration %s: check applied: %w", m.Name, err)
		}
		if applied > 0 {
			continue
		}
		if err := m.Func(db); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations(name) VALUES (?)`, m.Name); err != nil {
			return fmt.Errorf("migration %s: record applied: %w", m.Name, err)
		}
	}
	return nil
}
