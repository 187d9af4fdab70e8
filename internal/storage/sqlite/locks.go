package sqlite

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

var (
	flowLocksMu sync.Mutex
	flowLocks   = map[string]*sync.Mutex{}
)

func flowLockFor(path string, flowID uuid.UUID) *sync.Mutex {
	key := path + "|" + flowID.String()
	flowLocksMu.Lock()
	defer flowLocksMu.Unlock()
	m, ok := flowLocks[key]
	if !ok {
		m = &sync.Mutex{}
		flowLocks[key] = m
	}
	return m
}

// LockForUpdate takes a per-flow, per-database-file advisory lock. The
// connection itself is already serialized to a single writer (SetMaxOpenConns(1));
// this additionally prevents two logical operations against the same flow
// from interleaving their multi-statement sequences (read-then-write in
// PersistData, copy-then-append in CreateBranch).
func (d *DB) LockForUpdate(_ context.Context, flowID uuid.UUID) (func(), error) {
	m := flowLockFor(d.path, flowID)
	m.Lock()
	return m.Unlock, nil
}
