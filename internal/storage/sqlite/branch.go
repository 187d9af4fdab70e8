package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// CreateBranch copies every step_record of parentFlowID with cursor <=
// parentCursor into a brand new flow under fresh record ids, then appends
// a BranchCreated marker at parentCursor+1. current_cursor is left at
// parentCursor (the marker is not counted), matching the memstore
// reference and spec.md section 4.3.
func (d *DB) CreateBranch(ctx context.Context, parentFlowID uuid.UUID, name, status *string, parentCursor int64, metadata map[string]any) (uuid.UUID, error) {
	newID := uuid.New()
	now := time.Now().UTC()

	txErr := d.withTx(ctx, func(tx *sql.Tx) error {
		var parentMetaJSON string
		err := tx.QueryRowContext(ctx, `SELECT metadata FROM flows WHERE id = ?`, parentFlowID.String()).Scan(&parentMetaJSON)
		if err == sql.ErrNoRows {
			return flowtypes.NotFound(op+".CreateBranch", nil)
		}
		if err != nil {
			return fmt.Errorf("read parent flow: %w", err)
		}

		metaJSON := parentMetaJSON
		if metadata != nil {
			mj, err := marshalMap(metadata)
			if err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			metaJSON = mj
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO flows (id, name, status, created_at, current_cursor, current_version,
			                    parent_flow_id, parent_cursor, metadata)
			VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)
		`, newID.String(), name, status, now, parentCursor, parentFlowID.String(), parentCursor, metaJSON)
		if err != nil {
			return fmt.Errorf("insert branch flow: %w", err)
		}

		// The parent's prefix is read into a slice and its Rows closed
		// before any further statement runs on this tx: SQLite does not
		// allow a write on a connection while a read cursor from the same
		// connection is still open.
		type parentRecord struct {
			cursor    int64
			key       string
			payload   string
			metaCol   string
			createdAt time.Time
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT cursor, key, payload, metadata, created_at
			FROM step_records WHERE flow_id = ? AND cursor <= ? ORDER BY cursor ASC
		`, parentFlowID.String(), parentCursor)
		if err != nil {
			return fmt.Errorf("read parent records: %w", err)
		}
		var parentRecords []parentRecord
		for rows.Next() {
			var pr parentRecord
			if err := rows.Scan(&pr.cursor, &pr.key, &pr.payload, &pr.metaCol, &pr.createdAt); err != nil {
				rows.Close()
				return fmt.Errorf("scan parent record: %w", err)
			}
			parentRecords = append(parentRecords, pr)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate parent records: %w", err)
		}
		rows.Close()

		for _, pr := range parentRecords {
			// command_id is deliberately dropped on copy: the new flow's
			// records are new facts, not retries of the parent's commands.
			_, err = tx.ExecContext(ctx, `
				INSERT INTO step_records (id, flow_id, cursor, key, payload, metadata, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, uuid.New().String(), newID.String(), pr.cursor, pr.key, pr.payload, pr.metaCol, pr.createdAt)
			if err != nil {
				return fmt.Errorf("copy step_record: %w", err)
			}
		}

		markerPayload, err := marshalMap(map[string]any{
			"parent": parentFlowID.String(),
		})
		if err != nil {
			return fmt.Errorf("encode marker payload: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO step_records (id, flow_id, cursor, key, payload, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, '{}', ?)
		`, uuid.New().String(), newID.String(), parentCursor+1, flowtypes.KeyBranchCreated, markerPayload, now)
		if err != nil {
			return fmt.Errorf("insert branch marker: %w", err)
		}

		// Snapshots are read into a slice and their Rows closed before any
		// further statement runs on this tx, for the same reason as the
		// step_records read above.
		type parentSnapshot struct {
			cursor    int64
			statePtr  string
			metaCol   string
			createdAt time.Time
		}
		snapRows, err := tx.QueryContext(ctx, `
			SELECT cursor, state_ptr, metadata, created_at
			FROM snapshots WHERE flow_id = ? AND cursor <= ? ORDER BY cursor ASC
		`, parentFlowID.String(), parentCursor)
		if err != nil {
			return fmt.Errorf("read parent snapshots: %w", err)
		}
		var parentSnapshots []parentSnapshot
		for snapRows.Next() {
			var ps parentSnapshot
			if err := snapRows.Scan(&ps.cursor, &ps.statePtr, &ps.metaCol, &ps.createdAt); err != nil {
				snapRows.Close()
				return fmt.Errorf("scan parent snapshot: %w", err)
			}
			parentSnapshots = append(parentSnapshots, ps)
		}
		if err := snapRows.Err(); err != nil {
			snapRows.Close()
			return fmt.Errorf("iterate parent snapshots: %w", err)
		}
		snapRows.Close()

		for _, ps := range parentSnapshots {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO snapshots (id, flow_id, cursor, state_ptr, metadata, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, uuid.New().String(), newID.String(), ps.cursor, ps.statePtr, ps.metaCol, ps.createdAt)
			if err != nil {
				return fmt.Errorf("copy snapshot: %w", err)
			}
		}

		// current_version is left at the 0 the initial INSERT set: a branch
		// starts its own optimistic-lock generation at 0 regardless of how
		// many records it inherited (spec.md section 4.3).
		return nil
	})
	if txErr != nil {
		if fe, ok := txErr.(*flowtypes.Error); ok {
			return uuid.Nil, fe
		}
		return uuid.Nil, flowtypes.Storage(op+".CreateBranch", txErr)
	}
	return newID, nil
}
