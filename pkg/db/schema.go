package db

const (
	// SchemaV1 defines the SQL statements for version 1 of the diarydb schema.
	// Diary days live in a plain key-value table; values are JSON documents.
	SchemaV1 = `
CREATE TABLE IF NOT EXISTS foodtracker_versions (
    component TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    created_at REAL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS diary_kv (
    key VARCHAR(256) PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at REAL DEFAULT (unixepoch())
);
`
)
