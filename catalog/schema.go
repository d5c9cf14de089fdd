package catalog

// Schema for the run catalog. Timestamps are unix seconds; durations are
// milliseconds.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL DEFAULT '',
	started_at      INTEGER NOT NULL,
	finished_at     INTEGER,
	considered      INTEGER NOT NULL DEFAULT 0,
	skipped_fresh   INTEGER NOT NULL DEFAULT 0,
	fetched_new     INTEGER NOT NULL DEFAULT 0,
	fetched_updated INTEGER NOT NULL DEFAULT 0,
	failed          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS fetch_log (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	category    TEXT NOT NULL,
	record_id   TEXT NOT NULL,
	reason      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	fetched_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_log_run ON fetch_log (run_id, fetched_at);
CREATE INDEX IF NOT EXISTS idx_fetch_log_key ON fetch_log (category, record_id, fetched_at);
`
