package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// PersistData implements the optimistic append protocol inside a single
// transaction: read current_version, compare, insert at current_cursor+1,
// bump both counters. A command_id already recorded for this flow (the
// unique partial index in schema.go) short-circuits to Ok with the flow's
// current version instead of erroring, making retries idempotent.
func (d *DB) PersistData(ctx context.Context, flowID uuid.UUID, key string, payload, metadata map[string]any, commandID *uuid.UUID, expectedVersion int64) (flowtypes.PersistResult, error) {
	payloadJSON, err := marshalMap(payload)
	if err != nil {
		return flowtypes.PersistResult{}, flowtypes.Other(op+".PersistData", err)
	}
	metaJSON, err := marshalMap(metadata)
	if err != nil {
		return flowtypes.PersistResult{}, flowtypes.Other(op+".PersistData", err)
	}

	var result flowtypes.PersistResult
	txErr := d.withTx(ctx, func(tx *sql.Tx) error {
		if commandID != nil {
			var existingVersion int64
			err := tx.QueryRowContext(ctx, `
				SELECT f.current_version FROM step_records sr
				JOIN flows f ON f.id = sr.flow_id
				WHERE sr.flow_id = ? AND sr.command_id = ?
			`, flowID.String(), commandID.String()).Scan(&existingVersion)
			if err == nil {
				result = flowtypes.Ok(existingVersion)
				return nil
			}
			if err != sql.ErrNoRows {
				return fmt.Errorf("check command_id: %w", err)
			}
		}

		var currentVersion, currentCursor int64
		err := tx.QueryRowContext(ctx, `SELECT current_version, current_cursor FROM flows WHERE id = ?`,
			flowID.String()).Scan(&currentVersion, &currentCursor)
		if err == sql.ErrNoRows {
			return flowtypes.NotFound(op+".PersistData", nil)
		}
		if err != nil {
			return fmt.Errorf("read flow: %w", err)
		}

		if currentVersion != expectedVersion {
			result = flowtypes.ConflictResult()
			return nil
		}

		newCursor := currentCursor + 1
		newVersion := currentVersion + 1

		var cmdIDArg any
		if commandID != nil {
			cmdIDArg = commandID.String()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO step_records (id, flow_id, cursor, key, payload, metadata, command_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), flowID.String(), newCursor, key, payloadJSON, metaJSON, cmdIDArg, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("insert step_record: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE flows SET current_cursor = ?, current_version = ? WHERE id = ?
		`, newCursor, newVersion, flowID.String())
		if err != nil {
			return fmt.Errorf("update flow cursor: %w", err)
		}

		result = flowtypes.Ok(newVersion)
		return nil
	})
	if txErr != nil {
		if fe, ok := txErr.(*flowtypes.Error); ok {
			return flowtypes.PersistResult{}, fe
		}
		return flowtypes.PersistResult{}, flowtypes.Storage(op+".PersistData", txErr)
	}
	return result, nil
}

func (d *DB) ReadData(ctx context.Context, flowID uuid.UUID, fromCursor int64) ([]flowtypes.StepRecord, error) {
	rows, err := d.query(ctx, `
		SELECT id, flow_id, cursor, key, payload, metadata, command_id, created_at
		FROM step_records WHERE flow_id = ? AND cursor > ? ORDER BY cursor ASC
	`, flowID.String(), fromCursor)
	if err != nil {
		return nil, flowtypes.Storage(op+".ReadData", err)
	}
	defer rows.Close()

	var out []flowtypes.StepRecord
	for rows.Next() {
		var (
			idStr, flowIDStr, key string
			cursor                int64
			payloadJSON, metaJSON string
			cmdID                 sql.NullString
			createdAt             time.Time
		)
		if err := rows.Scan(&idStr, &flowIDStr, &cursor, &key, &payloadJSON, &metaJSON, &cmdID, &createdAt); err != nil {
			return nil, flowtypes.Storage(op+".ReadData", err)
		}
		rec, err := scanStepRecord(idStr, flowIDStr, cursor, key, payloadJSON, metaJSON, cmdID, createdAt)
		if err != nil {
			return nil, flowtypes.Other(op+".ReadData", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanStepRecord(idStr, flowIDStr string, cursor int64, key, payloadJSON, metaJSON string, cmdID sql.NullString, createdAt time.Time) (flowtypes.StepRecord, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return flowtypes.StepRecord{}, fmt.Errorf("parse record id: %w", err)
	}
	flowID, err := uuid.Parse(flowIDStr)
	if err != nil {
		return flowtypes.StepRecord{}, fmt.Errorf("parse flow id: %w", err)
	}
	payload, err := unmarshalMap(payloadJSON)
	if err != nil {
		return flowtypes.StepRecord{}, fmt.Errorf("decode payload: %w", err)
	}
	meta, err := unmarshalMap(metaJSON)
	if err != nil {
		return flowtypes.StepRecord{}, fmt.Errorf("decode metadata: %w", err)
	}
	rec := flowtypes.StepRecord{
		ID:        id,
		FlowID:    flowID,
		Cursor:    cursor,
		Key:       key,
		Payload:   payload,
		Metadata:  meta,
		CreatedAt: createdAt,
	}
	if cmdID.Valid {
		cid, err := uuid.Parse(cmdID.String)
		if err != nil {
			return flowtypes.StepRecord{}, fmt.Errorf("parse command_id: %w", err)
		}
		rec.CommandID = &cid
	}
	return rec, nil
}

// CountSteps returns -1 for a flow that does not exist; otherwise the
// number of records at or before current_cursor, which excludes any
// BranchCreated marker (always one past current_cursor, spec.md section 4.3).
func (d *DB) CountSteps(ctx context.Context, flowID uuid.UUID) (int64, error) {
	var currentCursor int64
	err := d.queryRow(ctx, `SELECT current_cursor FROM flows WHERE id = ?`, flowID.String()).Scan(&currentCursor)
	if err == sql.ErrNoRows {
		return -1, nil
	}
	if err != nil {
		return 0, flowtypes.Storage(op+".CountSteps", err)
	}

	var n int64
	err = d.queryRow(ctx, `
		SELECT COUNT(*) FROM step_records WHERE flow_id = ? AND cursor <= ?
	`, flowID.String(), currentCursor).Scan(&n)
	if err != nil {
		return 0, flowtypes.Storage(op+".CountSteps", err)
	}
	return n, nil
}
