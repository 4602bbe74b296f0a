package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
	"github.com/fjkiani/lotto-machine-sub000/internal/metrics"
)

// expiryGrace is how long past the longest horizon a row may wait for
// prices before it is closed out with whatever horizons it has.
const expiryGrace = 5 * 24 * time.Hour

// outcomeStore is the slice of the store the refresher needs; tests
// substitute an in-memory one.
type outcomeStore interface {
	unvalidatedSignals(ctx context.Context, createdBefore time.Time) ([]contracts.TrackedSignal, error)
	fillOutcome(ctx context.Context, id string, days int, ret float64) error
	markValidated(ctx context.Context, id string) error
}

// OutcomeRefresher fills forward returns on stored signals. Price
// lookups go through a rate limiter so a backlog sweep cannot hammer
// the price provider.
type OutcomeRefresher struct {
	store         outcomeStore
	prices        contracts.PriceLookup
	limiter       *rate.Limiter
	lookupTimeout time.Duration
	metrics       *metrics.Metrics
	log           zerolog.Logger
	now           func() time.Time
}

// NewOutcomeRefresher creates a refresher. metrics may be nil in tests.
func NewOutcomeRefresher(store outcomeStore, prices contracts.PriceLookup, limiter *rate.Limiter, m *metrics.Metrics, log zerolog.Logger) *OutcomeRefresher {
	return &OutcomeRefresher{
		store:         store,
		prices:        prices,
		limiter:       limiter,
		lookupTimeout: 10 * time.Second,
		metrics:       m,
		log:           log.With().Str("component", "store.outcomes").Logger(),
		now:           time.Now,
	}
}

// WithClock injects a clock for tests.
func (r *OutcomeRefresher) WithClock(now func() time.Time) *OutcomeRefresher {
	r.now = now
	return r
}

// WithLookupTimeout bounds each individual price lookup; a stuck
// provider call costs one horizon, not the whole sweep.
func (r *OutcomeRefresher) WithLookupTimeout(d time.Duration) *OutcomeRefresher {
	if d > 0 {
		r.lookupTimeout = d
	}
	return r
}

// Refresh sweeps unvalidated rows and fills every horizon whose due
// date has passed. Already-filled horizons are never recomputed, so the
// sweep is idempotent; a failed price lookup leaves the horizon empty
// for the next run. Rows past the longest horizon plus a grace period
// are closed out regardless.
func (r *OutcomeRefresher) Refresh(ctx context.Context) (int, error) {
	now := r.now()
	maxHorizon := contracts.Horizons[len(contracts.Horizons)-1]

	rows, err := r.store.unvalidatedSignals(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return 0, err
	}

	filled := 0
	for _, row := range rows {
		if ctx.Err() != nil {
			return filled, ctx.Err()
		}

		complete := true
		for _, days := range contracts.Horizons {
			if row.HorizonReturn(days) != nil {
				continue
			}

			due := row.Signal.CreatedAt.AddDate(0, 0, days)
			if now.Before(due) {
				complete = false
				continue
			}

			ret, err := r.lookupReturn(ctx, row.Signal, due)
			if err != nil {
				complete = false
				r.log.Warn().Err(err).
					Str("symbol", row.Signal.Symbol).
					Int("horizon_days", days).
					Msg("forward price unavailable, horizon left open")
				continue
			}

			if err := r.store.fillOutcome(ctx, row.Signal.ID, days, ret); err != nil {
				return filled, err
			}
			filled++
			if r.metrics != nil {
				r.metrics.OutcomesFilled.Inc()
			}
		}

		expired := now.After(row.Signal.CreatedAt.AddDate(0, 0, maxHorizon).Add(expiryGrace))
		if complete || expired {
			if err := r.store.markValidated(ctx, row.Signal.ID); err != nil {
				return filled, err
			}
			if expired && !complete {
				r.log.Warn().
					Str("symbol", row.Signal.Symbol).
					Str("id", row.Signal.ID).
					Msg("signal expired with missing horizons")
			}
		}
	}

	r.log.Info().Int("rows", len(rows)).Int("filled", filled).Msg("outcome refresh complete")
	return filled, nil
}

func (r *OutcomeRefresher) lookupReturn(ctx context.Context, sig contracts.Signal, at time.Time) (float64, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	lctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	price, err := r.prices.GetPrice(lctx, sig.Symbol, at)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("non-positive price %.4f for %s", price, sig.Symbol)
	}

	return forwardReturn(sig.PriceAtSignal, price), nil
}

// forwardReturn is the percent change from the signal price to the
// later price.
func forwardReturn(entry, later float64) float64 {
	return (later - entry) / entry * 100
}

// unvalidatedSignals returns rows that still have open horizons,
// oldest first so backlogs drain in order.
func (s *SignalStore) unvalidatedSignals(ctx context.Context, createdBefore time.Time) ([]contracts.TrackedSignal, error) {
	query := `SELECT ` + trackedColumns + `
		FROM signals
		WHERE NOT validated AND created_at < $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, createdBefore)
	if err != nil {
		return nil, wrapStorage("unvalidated_signals", err)
	}
	defer rows.Close()

	var out []contracts.TrackedSignal
	for rows.Next() {
		t, err := scanTracked(rows)
		if err != nil {
			return nil, wrapStorage("unvalidated_signals", err)
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

func (s *SignalStore) fillOutcome(ctx context.Context, id string, days int, ret float64) error {
	var column string
	switch days {
	case 1:
		column = "return_1d"
	case 3:
		column = "return_3d"
	case 5:
		column = "return_5d"
	case 10:
		column = "return_10d"
	default:
		return fmt.Errorf("unknown horizon %d", days)
	}

	// COALESCE keeps the first fill; a re-run never rewrites history.
	query := fmt.Sprintf(`UPDATE signals SET %s = COALESCE(%s, $2) WHERE id = $1`, column, column)
	_, err := s.pool.Exec(ctx, query, id, ret)
	return wrapStorage("fill_outcome", err)
}

func (s *SignalStore) markValidated(ctx context.Context, id string) error {
	query := `UPDATE signals SET validated = TRUE WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id)
	return wrapStorage("mark_validated", err)
}
