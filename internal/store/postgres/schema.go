package postgres

import "context"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS applications (
		job_id         TEXT PRIMARY KEY,
		company        TEXT NOT NULL,
		title          TEXT NOT NULL DEFAULT '',
		location       TEXT NOT NULL DEFAULT '',
		applied_at     TIMESTAMPTZ NOT NULL,
		current_status TEXT NOT NULL DEFAULT 'applied',
		notes          TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS status_history (
		id          UUID PRIMARY KEY,
		job_id      TEXT NOT NULL REFERENCES applications(job_id),
		status      TEXT NOT NULL,
		source      TEXT NOT NULL,
		promoted    BOOLEAN NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	// Earlier deployments carried a table-level UNIQUE (job_id, source).
	`ALTER TABLE status_history DROP CONSTRAINT IF EXISTS status_history_job_id_source_key`,
	// Dedup covers mailbox message ids only. Operator overrides all
	// share source = 'manual' and may repeat on one job.
	`CREATE UNIQUE INDEX IF NOT EXISTS status_history_job_source_idx
		ON status_history (job_id, source) WHERE source <> 'manual'`,
	`CREATE INDEX IF NOT EXISTS status_history_job_id_idx ON status_history (job_id)`,
	`CREATE TABLE IF NOT EXISTS scan_watermarks (
		mailbox          TEXT NOT NULL,
		folder           TEXT NOT NULL,
		last_received_at TIMESTAMPTZ NOT NULL,
		last_message_id  TEXT NOT NULL DEFAULT '',
		updated_at       TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (mailbox, folder)
	)`,
	`CREATE TABLE IF NOT EXISTS review_signals (
		id          UUID PRIMARY KEY,
		message_id  TEXT NOT NULL UNIQUE,
		reason      TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT '',
		job_id_hint TEXT NOT NULL DEFAULT '',
		company     TEXT NOT NULL DEFAULT '',
		subject     TEXT NOT NULL DEFAULT '',
		candidates  TEXT[] NOT NULL DEFAULT '{}',
		received_at TIMESTAMPTZ NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		resolved    BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS review_signals_unresolved_idx ON review_signals (recorded_at) WHERE resolved = false`,
}

// EnsureSchema creates the tables if they do not exist. The submission
// bot shares the applications table, so columns must stay backward
// compatible with what it writes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
