package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS batch_jobs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    max_concurrency INTEGER NOT NULL,
    request_count INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    completed_at TEXT
);

CREATE TABLE IF NOT EXISTS batch_results (
    job_id TEXT NOT NULL REFERENCES batch_jobs(id),
    request_index INTEGER NOT NULL,
    accepted INTEGER NOT NULL DEFAULT 0,
    provider_used TEXT,
    overall_score REAL,
    failure_kind TEXT,
    last_error TEXT,
    content TEXT,
    attempts TEXT,
    PRIMARY KEY (job_id, request_index)
);

CREATE TABLE IF NOT EXISTS kb_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('plant', 'equipment', 'technique')),
    aliases TEXT,
    facts TEXT,
    misconceptions TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_batch_results_job ON batch_results(job_id);
CREATE INDEX IF NOT EXISTS idx_kb_records_name ON kb_records(name);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
