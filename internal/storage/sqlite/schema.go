package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS flows (
    id              TEXT PRIMARY KEY,
    name            TEXT,
    status          TEXT,
    created_by      TEXT,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    current_cursor  INTEGER NOT NULL DEFAULT 0,
    current_version INTEGER NOT NULL DEFAULT 0,
    parent_flow_id  TEXT,
    parent_cursor   INTEGER,
    metadata        TEXT NOT NULL DEFAULT '{}',
    FOREIGN KEY (parent_flow_id) REFERENCES flows(id)
);

CREATE INDEX IF NOT EXISTS idx_flows_parent ON flows(parent_flow_id);

CREATE TABLE IF NOT EXISTS step_records (
    id           TEXT PRIMARY KEY,
    flow_id      TEXT NOT NULL REFERENCES flows(id),
    cursor       INTEGER NOT NULL,
    key          TEXT NOT NULL,
    payload      TEXT NOT NULL DEFAULT '{}',
    metadata     TEXT NOT NULL DEFAULT '{}',
    command_id   TEXT,
    content_hash TEXT,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(flow_id, cursor)
);

CREATE INDEX IF NOT EXISTS idx_step_records_flow ON step_records(flow_id, cursor);
CREATE UNIQUE INDEX IF NOT EXISTS idx_step_records_command
    ON step_records(flow_id, command_id) WHERE command_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS snapshots (
    id         TEXT PRIMARY KEY,
    flow_id    TEXT NOT NULL REFERENCES flows(id),
    cursor     INTEGER NOT NULL,
    state_ptr  TEXT NOT NULL,
    metadata   TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_snapshots_flow_cursor ON snapshots(flow_id, cursor);

CREATE TABLE IF NOT EXISTS flow_meta_kv (
    flow_id TEXT NOT NULL REFERENCES flows(id),
    key     TEXT NOT NULL,
    value   TEXT NOT NULL,
    PRIMARY KEY (flow_id, key)
);

CREATE TABLE IF NOT EXISTS work_queue (
    id          TEXT PRIMARY KEY,
    flow_id     TEXT NOT NULL REFERENCES flows(id),
    last_cursor INTEGER NOT NULL,
    snapshot_ptr TEXT,
    claimed_by  TEXT,
    claimed_at  DATETIME,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_work_queue_unclaimed ON work_queue(claimed_at);

CREATE TABLE IF NOT EXISTS schema_migrations (
    name       TEXT PRIMARY KEY,
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
