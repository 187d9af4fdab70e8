package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

const op = "sqlite"

func (d *DB) CreateFlow(ctx context.Context, name, status *string, metadata map[string]any) (uuid.UUID, error) {
	id := uuid.New()
	metaJSON, err := marshalMap(metadata)
	if err != nil {
		return uuid.Nil, flowtypes.Other(op+".CreateFlow", err)
	}

	_, err = d.exec(ctx, `
		INSERT INTO flows (id, name, status, created_at, current_cursor, current_version, metadata)
		VALUES (?, ?, ?, ?, 0, 0, ?)
	`, id.String(), name, status, time.Now().UTC(), metaJSON)
	if err != nil {
		return uuid.Nil, flowtypes.Storage(op+".CreateFlow", err)
	}
	return id, nil
}

func (d *DB) GetFlowMeta(ctx context.Context, flowID uuid.UUID) (flowtypes.FlowMeta, error) {
	row := d.queryRow(ctx, `
		SELECT id, name, status, created_by, created_at, current_cursor, current_version,
		       parent_flow_id, parent_cursor, metadata
		FROM flows WHERE id = ?
	`, flowID.String())

	var (
		idStr                       string
		name, status, createdBy    sql.NullString
		createdAt                  time.Time
		cursor, version             int64
		parentFlowID, parentCursor sql.NullString
		metaJSON                   string
	)
	err := row.Scan(&idStr, &name, &status, &createdBy, &createdAt, &cursor, &version,
		&parentFlowID, &parentCursor, &metaJSON)
	if err == sql.ErrNoRows {
		return flowtypes.FlowMeta{}, flowtypes.NotFound(op+".GetFlowMeta", nil)
	}
	if err != nil {
		return flowtypes.FlowMeta{}, flowtypes.Storage(op+".GetFlowMeta", err)
	}

	meta, err := scanFlowMeta(idStr, name, status, createdBy, createdAt, cursor, version, parentFlowID, parentCursor, metaJSON)
	if err != nil {
		return flowtypes.FlowMeta{}, flowtypes.Other(op+".GetFlowMeta", err)
	}
	return meta, nil
}

func scanFlowMeta(idStr string, name, status, createdBy sql.NullString, createdAt time.Time,
	cursor, version int64, parentFlowID, parentCursor sql.NullString, metaJSON string) (flowtypes.FlowMeta, error) {

	id, err := uuid.Parse(idStr)
	if err != nil {
		return flowtypes.FlowMeta{}, fmt.Errorf("parse flow id: %w", err)
	}
	meta := flowtypes.FlowMeta{
		ID:             id,
		CreatedAt:      createdAt,
		CurrentCursor:  cursor,
		CurrentVersion: version,
	}
	if name.Valid {
		meta.Name = &name.String
	}
	if status.Valid {
		meta.Status = &status.String
	}
	if createdBy.Valid {
		meta.CreatedBy = &createdBy.String
	}
	if parentFlowID.Valid {
		pid, err := uuid.Parse(parentFlowID.String)
		if err != nil {
			return flowtypes.FlowMeta{}, fmt.Errorf("parse parent_flow_id: %w", err)
		}
		meta.ParentFlowID = &pid
	}
	if parentCursor.Valid {
		var pc int64
		if _, err := fmt.Sscanf(parentCursor.String, "%d", &pc); err != nil {
			return flowtypes.FlowMeta{}, fmt.Errorf("parse parent_cursor: %w", err)
		}
		meta.ParentCursor = &pc
	}
	m, err := unmarshalMap(metaJSON)
	if err != nil {
		return flowtypes.FlowMeta{}, fmt.Errorf("decode metadata: %w", err)
	}
	meta.Metadata = m
	return meta, nil
}

func (d *DB) SetFlowStatus(ctx context.Context, flowID uuid.UUID, status string) error {
	res, err := d.exec(ctx, `UPDATE flows SET status = ? WHERE id = ?`, status, flowID.String())
	if err != nil {
		return flowtypes.Storage(op+".SetFlowStatus", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return flowtypes.NotFound(op+".SetFlowStatus", nil)
	}
	return nil
}

func (d *DB) GetMeta(ctx context.Context, flowID uuid.UUID, key string) (string, error) {
	var value string
	err := d.queryRow(ctx, `SELECT value FROM flow_meta_kv WHERE flow_id = ? AND key = ?`,
		flowID.String(), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", flowtypes.NotFound(op+".GetMeta", nil)
	}
	if err != nil {
		return "", flowtypes.Storage(op+".GetMeta", err)
	}
	return value, nil
}

func (d *DB) SetMeta(ctx context.Context, flowID uuid.UUID, key, value string) error {
	_, err := d.exec(ctx, `
		INSERT INTO flow_meta_kv (flow_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(flow_id, key) DO UPDATE SET value = excluded.value
	`, flowID.String(), key, value)
	if err != nil {
		return flowtypes.Storage(op+".SetMeta", err)
	}
	return nil
}

func (d *DB) BranchExists(ctx context.Context, parentFlowID, flowID uuid.UUID) (bool, error) {
	cur := flowID
	seen := map[uuid.UUID]bool{}
	for {
		if cur == parentFlowID {
			return true, nil
		}
		if seen[cur] {
			return false, nil
		}
		seen[cur] = true

		var parent sql.NullString
		err := d.queryRow(ctx, `SELECT parent_flow_id FROM flows WHERE id = ?`, cur.String()).Scan(&parent)
		if err == sql.ErrNoRows || !parent.Valid {
			return false, nil
		}
		if err != nil {
			return false, flowtypes.Storage(op+".BranchExists", err)
		}
		pid, err := uuid.Parse(parent.String)
		if err != nil {
			return false, flowtypes.Other(op+".BranchExists", err)
		}
		cur = pid
	}
}
