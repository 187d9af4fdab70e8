package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateWorkQueueClaimedIndex adds an index on work_queue(claimed_by,
// claimed_at), for databases created before the index existed.
func MigrateWorkQueueClaimedIndex(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_work_queue_claimed_by ON work_queue(claimed_by, claimed_at)`)
	if err != nil {
		return fmt.Errorf("create claimed_by index: %w", err)
	}
	return nil
}
