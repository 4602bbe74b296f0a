package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: 외부 협력자 인터페이스 정의는 여기서만

// Checker encapsulates one intelligence source. Concrete checkers live
// outside the core and register at startup; the orchestrator is the sole
// authority on when Check runs.
type Checker interface {
	// Name is the stable identifier used for logging and dedup keys.
	Name() string

	// Interval is the desired polling cadence.
	Interval() time.Duration

	// Check fetches data, detects candidates, filters them through the
	// checker's own cooldown state and returns zero or more new signals.
	// It must respect ctx cancellation and never panic into the caller.
	Check(ctx context.Context) ([]Signal, error)
}

// MarketContextProvider supplies the auxiliary context the scorer consumes.
type MarketContextProvider interface {
	GetContext(ctx context.Context, symbol string) (MarketContext, error)
}

// PriceLookup resolves a price for a symbol at (or near) a point in time.
// Used by the outcome-refresh job to compute forward returns.
type PriceLookup interface {
	GetPrice(ctx context.Context, symbol string, at time.Time) (float64, error)
}

// AlertSink delivers a formatted alert to one external channel.
// Delivery is best-effort; implementations own their own retries.
type AlertSink interface {
	Name() string
	Send(ctx context.Context, msg AlertMessage) error
}

// DecisionStore is the durable audit log of every decision, sent or not.
type DecisionStore interface {
	// Persist writes the decision synchronously (write-through) and
	// returns the stored row id.
	Persist(ctx context.Context, d Decision, sent bool, reason string) (string, error)

	// MarkDeliveryFailed flags a stored decision whose sink delivery
	// exhausted its retries.
	MarkDeliveryFailed(ctx context.Context, id string) error

	// MarkSent flips a previously rate-limited row to sent, for alerts
	// released from the over-budget queue after their window freed up.
	MarkSent(ctx context.Context, id string) error

	// RecentDecisions returns the newest rows, newest first.
	RecentDecisions(ctx context.Context, limit int) ([]TrackedSignal, error)

	// RecentAlertKeys returns, for each alert key that was sent within
	// the window, the latest send time. Used to rebuild the dedup table
	// after a restart.
	RecentAlertKeys(ctx context.Context, window time.Duration) (map[string]time.Time, error)

	// Report aggregates win rate and average return per (source, kind).
	Report(ctx context.Context, sourceFilter string, since time.Time) (*PerformanceSummary, error)
}
