package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

func (d *DB) SaveSnapshot(ctx context.Context, flowID uuid.UUID, cursor int64, statePtr string, metadata map[string]any) (uuid.UUID, error) {
	metaJSON, err := marshalMap(metadata)
	if err != nil {
		return uuid.Nil, flowtypes.Other(op+".SaveSnapshot", err)
	}
	id := uuid.New()
	_, err = d.exec(ctx, `
		INSERT INTO snapshots (id, flow_id, cursor, state_ptr, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id.String(), flowID.String(), cursor, statePtr, metaJSON, time.Now().UTC())
	if err != nil {
		return uuid.Nil, flowtypes.Storage(op+".SaveSnapshot", err)
	}
	return id, nil
}

func (d *DB) LoadLatestSnapshot(ctx context.Context, flowID uuid.UUID) (flowtypes.Snapshot, error) {
	row := d.queryRow(ctx, `
		SELECT id, flow_id, cursor, state_ptr, metadata, created_at
		FROM snapshots WHERE flow_id = ?
		ORDER BY cursor DESC, created_at DESC LIMIT 1
	`, flowID.String())
	return scanSnapshotRow(row)
}

func (d *DB) LoadSnapshot(ctx context.Context, snapshotID uuid.UUID) (flowtypes.Snapshot, error) {
	row := d.queryRow(ctx, `
		SELECT id, flow_id, cursor, state_ptr, metadata, created_at
		FROM snapshots WHERE id = ?
	`, snapshotID.String())
	return scanSnapshotRow(row)
}

func scanSnapshotRow(row *sql.Row) (flowtypes.Snapshot, error) {
	var (
		idStr, flowIDStr, statePtr, metaJSON string
		cursor                               int64
		createdAt                            time.Time
	)
	err := row.Scan(&idStr, &flowIDStr, &cursor, &statePtr, &metaJSON, &createdAt)
	if err == sql.ErrNoRows {
		return flowtypes.Snapshot{}, flowtypes.NotFound(op+".LoadSnapshot", nil)
	}
	if err != nil {
		return flowtypes.Snapshot{}, flowtypes.Storage(op+".LoadSnapshot", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return flowtypes.Snapshot{}, flowtypes.Other(op+".LoadSnapshot", fmt.Errorf("parse id: %w", err))
	}
	flowID, err := uuid.Parse(flowIDStr)
	if err != nil {
		return flowtypes.Snapshot{}, flowtypes.Other(op+".LoadSnapshot", fmt.Errorf("parse flow_id: %w", err))
	}
	meta, err := unmarshalMap(metaJSON)
	if err != nil {
		return flowtypes.Snapshot{}, flowtypes.Other(op+".LoadSnapshot", fmt.Errorf("decode metadata: %w", err))
	}
	return flowtypes.Snapshot{
		ID:        id,
		FlowID:    flowID,
		Cursor:    cursor,
		StatePtr:  statePtr,
		Metadata:  meta,
		CreatedAt: createdAt,
	}, nil
}
