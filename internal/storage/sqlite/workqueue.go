package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// EnqueueWork and ClaimWork back the supplemental worker-claim queue
// (SPEC_FULL.md section D) with a work_queue table. Claiming is done with
// a transactional select-then-update in place of "UPDATE ... RETURNING",
// since the claim must also stamp claimed_by/claimed_at atomically.
func (d *DB) EnqueueWork(ctx context.Context, item flowtypes.WorkItem) error {
	var ptr any
	if item.SnapshotPtr != nil {
		ptr = *item.SnapshotPtr
	}
	_, err := d.exec(ctx, `
		INSERT INTO work_queue (id, flow_id, last_cursor, snapshot_ptr, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), item.FlowID.String(), item.LastCursor, ptr, time.Now().UTC())
	if err != nil {
		return flowtypes.Storage(op+".EnqueueWork", err)
	}
	return nil
}

func (d *DB) ClaimWork(ctx context.Context, workerID string) (*flowtypes.WorkItem, error) {
	var item *flowtypes.WorkItem

	txErr := d.withTx(ctx, func(tx *sql.Tx) error {
		var (
			id, flowIDStr string
			lastCursor    int64
			snapshotPtr   sql.NullString
		)
		err := tx.QueryRowContext(ctx, `
			SELECT id, flow_id, last_cursor, snapshot_ptr FROM work_queue
			WHERE claimed_at IS NULL ORDER BY created_at ASC LIMIT 1
		`).Scan(&id, &flowIDStr, &lastCursor, &snapshotPtr)
		if err == sql.ErrNoRows {
			return nil // queue empty, item stays nil
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE work_queue SET claimed_by = ?, claimed_at = ? WHERE id = ?
		`, workerID, time.Now().UTC(), id); err != nil {
			return err
		}

		flowID, err := uuid.Parse(flowIDStr)
		if err != nil {
			return err
		}
		wi := flowtypes.WorkItem{FlowID: flowID, LastCursor: lastCursor}
		if snapshotPtr.Valid {
			wi.SnapshotPtr = &snapshotPtr.String
		}
		item = &wi
		return nil
	})
	if txErr != nil {
		return nil, flowtypes.Storage(op+".ClaimWork", txErr)
	}
	return item, nil
}
