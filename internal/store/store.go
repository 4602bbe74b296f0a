package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
)

// SignalStore is the durable audit log of every decision, sent or not.
// Writes are synchronous (write-through): a decision is on disk before
// the alert leaves the process.
// ⭐ SSOT: 신호 감사 기록은 여기서만
type SignalStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
	now  func() time.Time
}

// New creates a signal store on the shared pool.
func New(pool *pgxpool.Pool, log zerolog.Logger) *SignalStore {
	return &SignalStore{
		pool: pool,
		log:  log.With().Str("component", "store").Logger(),
		now:  time.Now,
	}
}

// WithClock injects a clock for tests.
func (s *SignalStore) WithClock(now func() time.Time) *SignalStore {
	s.now = now
	return s
}

func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &contracts.StorageError{Op: op, Err: err}
}

// Persist implements contracts.DecisionStore. The signal's own UUID is
// the row id, so replayed submissions of the same signal upsert instead
// of duplicating the audit trail.
func (s *SignalStore) Persist(ctx context.Context, d contracts.Decision, sent bool, reason string) (string, error) {
	query := `
		INSERT INTO signals
			(id, source, symbol, kind, action, strength, price_at_signal, created_at, factors,
			 final_action, score, upgraded, score_notes, sent, reason, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			final_action = EXCLUDED.final_action,
			score        = EXCLUDED.score,
			upgraded     = EXCLUDED.upgraded,
			score_notes  = EXCLUDED.score_notes,
			sent         = EXCLUDED.sent,
			reason       = EXCLUDED.reason,
			sent_at      = EXCLUDED.sent_at
		RETURNING id`

	var sentAt *time.Time
	if sent {
		t := s.now()
		sentAt = &t
	}

	sig := d.Signal
	var id string
	err := s.pool.QueryRow(ctx, query,
		sig.ID, sig.Source, sig.Symbol, sig.Kind, string(sig.Action),
		sig.Strength, sig.PriceAtSignal, sig.CreatedAt, sig.Factors,
		string(d.FinalAction), d.Score, d.Upgraded, d.ScoreNotes,
		sent, reason, sentAt,
	).Scan(&id)
	if err != nil {
		return "", wrapStorage("persist", err)
	}

	return id, nil
}

// MarkSent implements contracts.DecisionStore. Used when a rate-limited
// row is released from the pending queue.
func (s *SignalStore) MarkSent(ctx context.Context, id string) error {
	query := `UPDATE signals SET sent = TRUE, reason = '', sent_at = $2 WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, s.now())
	return wrapStorage("mark_sent", err)
}

// MarkDeliveryFailed implements contracts.DecisionStore.
func (s *SignalStore) MarkDeliveryFailed(ctx context.Context, id string) error {
	query := `UPDATE signals SET delivery_failed = TRUE WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id)
	return wrapStorage("mark_delivery_failed", err)
}

const trackedColumns = `
	id, source, symbol, kind, action, strength, price_at_signal, created_at, factors,
	final_action, score, upgraded, score_notes,
	sent, reason, delivery_failed,
	return_1d, return_3d, return_5d, return_10d, validated`

func scanTracked(row interface{ Scan(...any) error }) (contracts.TrackedSignal, error) {
	var t contracts.TrackedSignal
	var action, finalAction string

	err := row.Scan(
		&t.Signal.ID, &t.Signal.Source, &t.Signal.Symbol, &t.Signal.Kind, &action,
		&t.Signal.Strength, &t.Signal.PriceAtSignal, &t.Signal.CreatedAt, &t.Signal.Factors,
		&finalAction, &t.Score, &t.Upgraded, &t.ScoreNotes,
		&t.Sent, &t.Reason, &t.DeliveryFailed,
		&t.Return1D, &t.Return3D, &t.Return5D, &t.Return10D, &t.Validated,
	)
	if err != nil {
		return t, err
	}

	t.Signal.Action = contracts.Action(action)
	t.FinalAction = contracts.Action(finalAction)
	return t, nil
}

// RecentDecisions implements contracts.DecisionStore, newest first.
func (s *SignalStore) RecentDecisions(ctx context.Context, limit int) ([]contracts.TrackedSignal, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + trackedColumns + ` FROM signals ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, wrapStorage("recent_decisions", err)
	}
	defer rows.Close()

	var out []contracts.TrackedSignal
	for rows.Next() {
		t, err := scanTracked(rows)
		if err != nil {
			return nil, wrapStorage("recent_decisions", err)
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

// RecentAlertKeys implements contracts.DecisionStore: the latest send
// time per alert key within the window, for rebuilding the dedup table
// after a restart.
func (s *SignalStore) RecentAlertKeys(ctx context.Context, window time.Duration) (map[string]time.Time, error) {
	query := `
		SELECT source, symbol, kind, MAX(sent_at)
		FROM signals
		WHERE sent AND sent_at > $1
		GROUP BY source, symbol, kind`

	rows, err := s.pool.Query(ctx, query, s.now().Add(-window))
	if err != nil {
		return nil, wrapStorage("recent_alert_keys", err)
	}
	defer rows.Close()

	keys := make(map[string]time.Time)
	for rows.Next() {
		var k contracts.AlertKey
		var at time.Time
		if err := rows.Scan(&k.Source, &k.Symbol, &k.Kind, &at); err != nil {
			return nil, wrapStorage("recent_alert_keys", err)
		}
		keys[k.String()] = at
	}

	return keys, rows.Err()
}
