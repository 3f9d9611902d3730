package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the history tables. Timestamps are Unix milliseconds so
// both SQLite drivers read them back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    environment TEXT NOT NULL,
    source TEXT,
    retention_count INTEGER NOT NULL,
    destructive INTEGER NOT NULL,
    outcome TEXT NOT NULL,
    error TEXT,
    totals TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cookbooks (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    pinned TEXT,
    outcome TEXT NOT NULL,
    reason TEXT,
    total INTEGER NOT NULL,
    kept INTEGER NOT NULL,
    planned INTEGER NOT NULL,
    PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS deletions (
    run_id TEXT NOT NULL,
    cookbook TEXT NOT NULL,
    position INTEGER NOT NULL,
    version TEXT NOT NULL,
    error TEXT,
    PRIMARY KEY (run_id, cookbook, position)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_environment ON runs(environment);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion reads the newest schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
