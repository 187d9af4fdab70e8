package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateContentHashColumn adds the optional content_hash column (and its
// index) to step_records, for databases created before the column existed.
// No code writes the column; "flowctl read --dedupe-by-hash" hashes
// payloads at read time instead.
func MigrateContentHashColumn(db *sql.DB) error {
	var colName string
	err := db.QueryRow(`
		SELECT name FROM pragma_table_info('step_records')
		WHERE name = 'content_hash'
	`).Scan(&colName)
	if err == sql.ErrNoRows {
		if _, err := db.Exec(`ALTER TABLE step_records ADD COLUMN content_hash TEXT`); err != nil {
			return fmt.Errorf("add content_hash column: %w", err)
		}
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_step_records_content_hash ON step_records(content_hash)`); err != nil {
			return fmt.Errorf("create content_hash index: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("check content_hash column: %w", err)
	}
	return nil
}
