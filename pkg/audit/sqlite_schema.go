package audit

// SchemaVersion is the current audit index schema version.
const SchemaVersion = 1

// Schema creates the audit index. Rows can be inserted but the triggers
// abort any UPDATE or DELETE.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
    seq INTEGER PRIMARY KEY,
    ts_unix_nano INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    category TEXT NOT NULL,
    entity TEXT NOT NULL,
    result TEXT NOT NULL,
    reason TEXT NOT NULL,
    bid_id TEXT NOT NULL DEFAULT '',
    actor TEXT NOT NULL DEFAULT '',
    prev_hash TEXT NOT NULL,
    hash TEXT NOT NULL UNIQUE
);

CREATE TRIGGER IF NOT EXISTS audit_entries_no_update
BEFORE UPDATE ON audit_entries
BEGIN
    SELECT RAISE(ABORT, 'audit entries are append-only');
END;

CREATE TRIGGER IF NOT EXISTS audit_entries_no_delete
BEFORE DELETE ON audit_entries
BEGIN
    SELECT RAISE(ABORT, 'audit entries are append-only');
END;

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_entries(ts_unix_nano);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_entries(entity COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_audit_bid ON audit_entries(bid_id);
CREATE INDEX IF NOT EXISTS idx_audit_result ON audit_entries(result);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion reads the newest schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertEntry = `
INSERT INTO audit_entries (
    seq, ts_unix_nano, event_type, category, entity, result, reason,
    bid_id, actor, prev_hash, hash
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectColumns = `seq, ts_unix_nano, event_type, category, entity, result, reason, bid_id, actor, prev_hash, hash`
