package store

import (
	"context"
	"time"
)

// Archive moves validated rows older than the cutoff into
// signals_archive and returns how many moved. Unvalidated rows stay in
// the hot table until the outcome refresher closes them out.
func (s *SignalStore) Archive(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, wrapStorage("archive", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO signals_archive
		SELECT * FROM signals
		WHERE validated AND created_at < $1
		ON CONFLICT (id) DO NOTHING`, cutoff); err != nil {
		return 0, wrapStorage("archive", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM signals WHERE validated AND created_at < $1`, cutoff)
	if err != nil {
		return 0, wrapStorage("archive", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, wrapStorage("archive", err)
	}

	moved := tag.RowsAffected()
	if moved > 0 {
		s.log.Info().Int64("rows", moved).Time("cutoff", cutoff).Msg("signals archived")
	}
	return moved, nil
}
