package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// DeleteBranch removes flowID and everything that belongs to it (records,
// snapshots, FlowMetaKV, pending work items), orphaning direct children
// instead of cascading into them, matching memstore and spec.md section
// 4.4's explicit redesign away from the original crate's cascading
// behavior.
func (d *DB) DeleteBranch(ctx context.Context, flowID uuid.UUID) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE flows SET parent_flow_id = NULL, parent_cursor = NULL WHERE parent_flow_id = ?
		`, flowID.String())
		if err != nil {
			return fmt.Errorf("orphan children: %w", err)
		}
		_ = res

		for _, stmt := range []string{
			`DELETE FROM step_records WHERE flow_id = ?`,
			`DELETE FROM snapshots WHERE flow_id = ?`,
			`DELETE FROM flow_meta_kv WHERE flow_id = ?`,
			`DELETE FROM work_queue WHERE flow_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, flowID.String()); err != nil {
				return fmt.Errorf("delete dependents: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, flowID.String())
		if err != nil {
			return fmt.Errorf("delete flow: %w", err)
		}
		n, _ := result.RowsAffected()
		if n == 0 {
			return flowtypes.NotFound(op+".DeleteBranch", nil)
		}
		return nil
	})
}

// DeleteFromStep truncates flowID's log and snapshots to cursor <
// fromCursor, leaves current_cursor/current_version untouched (spec.md
// section 9 open question, resolved: prune does not rewind pointers), and
// cascades (via DeleteBranch) only into children whose fork point
// (parent_cursor) falls inside the truncated range.
func (d *DB) DeleteFromStep(ctx context.Context, flowID uuid.UUID, fromCursor int64) error {
	var childIDs []uuid.UUID

	txErr := d.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM flows WHERE id = ?`, flowID.String()).Scan(&exists); err != nil {
			return fmt.Errorf("check flow exists: %w", err)
		}
		if exists == 0 {
			return flowtypes.NotFound(op+".DeleteFromStep", nil)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id FROM flows WHERE parent_flow_id = ? AND parent_cursor >= ?
		`, flowID.String(), fromCursor)
		if err != nil {
			return fmt.Errorf("find cascading children: %w", err)
		}
		for rows.Next() {
			var idStr string
			if err := rows.Scan(&idStr); err != nil {
				rows.Close()
				return fmt.Errorf("scan child id: %w", err)
			}
			id, err := uuid.Parse(idStr)
			if err != nil {
				rows.Close()
				return fmt.Errorf("parse child id: %w", err)
			}
			childIDs = append(childIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate children: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM step_records WHERE flow_id = ? AND cursor >= ?`, flowID.String(), fromCursor); err != nil {
			return fmt.Errorf("truncate step_records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE flow_id = ? AND cursor >= ?`, flowID.String(), fromCursor); err != nil {
			return fmt.Errorf("truncate snapshots: %w", err)
		}
		return nil
	})
	if txErr != nil {
		if fe, ok := txErr.(*flowtypes.Error); ok {
			return fe
		}
		return flowtypes.Storage(op+".DeleteFromStep", txErr)
	}

	for _, childID := range childIDs {
		if err := d.DeleteBranch(ctx, childID); err != nil {
			return err
		}
	}
	return nil
}
