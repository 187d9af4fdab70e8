// Package sqlite is the durable Storage backend: a single-file WASM SQLite
// database (via ncruces/go-sqlite3, so the module stays CGO-free) guarded
// by an advisory file lock during schema initialization, the same
// discipline the teacher's sync path uses around multi-step writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/gofrs/flock"

	// Registers the "sqlite3" driver and ships the pure-Go WASM SQLite
	// build, so no cgo toolchain is required to build this module.
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps a *sql.DB plus the per-process mutex each Storage method takes
// before touching it (sqlite's own locking handles cross-process
// serialization; this mutex only protects against goroutine races within
// one process holding the same *sql.DB).
type DB struct {
	conn *sql.DB
	mu   sync.Mutex
	path string
}

// Open creates (if needed) and migrates the database at path, taking a
// cross-process flock for the duration of schema setup so two processes
// racing to initialize the same fresh file don't corrupt it.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		lock := flock.New(path + ".lock")
		if err := lock.Lock(); err != nil {
			return nil, fmt.Errorf("sqlite: acquire init lock: %w", err)
		}
		defer lock.Unlock()
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // the WASM driver does not support concurrent writers

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enable foreign_keys: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: run migrations: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// exec runs query under the process-local mutex, matching the single
// writer connection above.
func (d *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.ExecContext(ctx, query, args...)
}

func (d *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.QueryRowContext(ctx, query, args...)
}

func (d *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.QueryContext(ctx, query, args...)
}

// withTx runs fn inside a transaction, holding the same process-local
// mutex for its whole lifetime so no other method interleaves statements
// into it.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
