package store

import "context"

// schema is applied on startup. Operational migrations stay out of band;
// this only guarantees a fresh database is usable.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS signals (
		id               UUID PRIMARY KEY,
		source           TEXT NOT NULL,
		symbol           TEXT NOT NULL,
		kind             TEXT NOT NULL,
		action           TEXT NOT NULL,
		strength         DOUBLE PRECISION NOT NULL,
		price_at_signal  DOUBLE PRECISION NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL,
		factors          TEXT[] NOT NULL DEFAULT '{}',
		final_action     TEXT NOT NULL,
		score            INTEGER NOT NULL,
		upgraded         BOOLEAN NOT NULL DEFAULT FALSE,
		score_notes      TEXT[] NOT NULL DEFAULT '{}',
		sent             BOOLEAN NOT NULL DEFAULT FALSE,
		reason           TEXT NOT NULL DEFAULT '',
		delivery_failed  BOOLEAN NOT NULL DEFAULT FALSE,
		sent_at          TIMESTAMPTZ,
		return_1d        DOUBLE PRECISION,
		return_3d        DOUBLE PRECISION,
		return_5d        DOUBLE PRECISION,
		return_10d       DOUBLE PRECISION,
		validated        BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_signals_created_at ON signals (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_alert_key ON signals (source, symbol, kind, sent_at DESC) WHERE sent`,
	`CREATE INDEX IF NOT EXISTS idx_signals_unvalidated ON signals (created_at) WHERE NOT validated`,

	`CREATE TABLE IF NOT EXISTS signals_archive (LIKE signals INCLUDING ALL)`,
}

// EnsureSchema creates the signal tables and indexes if missing.
func (s *SignalStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return wrapStorage("ensure_schema", err)
		}
	}
	return nil
}
