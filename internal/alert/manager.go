package alert

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
	"github.com/fjkiani/lotto-machine-sub000/internal/metrics"
)

// Config holds dedup and rate-limit parameters.
type Config struct {
	// DefaultCooldown is the minimum gap between identical
	// (source, symbol, kind) alerts; SourceCooldowns overrides per source
	// (sentiment sources run long cooldowns, price-structure sources short).
	DefaultCooldown time.Duration
	SourceCooldowns map[string]time.Duration

	// DefaultBudget caps alerts sent per source per rolling hour;
	// SourceBudgets overrides per source.
	DefaultBudget int
	SourceBudgets map[string]int

	// PendingTTL bounds how long an over-budget alert may wait in the
	// queue before it is dropped for good. Must outlast the rate window
	// or queued alerts expire right as capacity frees; defaults to twice
	// the window.
	PendingTTL time.Duration
}

const rateWindowSpan = time.Hour

// Manager wraps the sinks with deduplication and rate limiting.
// It owns the only mutable tables shared between workers: the per-key
// cooldown table and the per-source rate windows, both mutex-guarded.
// The cooldown table is a cache; Rebuild restores it from the store
// after a restart so the process does not re-spam on boot.
// ⭐ SSOT: 알림 중복 제거/예산 관리는 여기서만
type Manager struct {
	cfg        Config
	store      contracts.DecisionStore
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	log        zerolog.Logger
	now        func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time   // AlertKey.String() -> last send
	windows  map[string]*rateWindow // source -> window state
}

// NewManager creates an alert manager. metrics may be nil in tests.
func NewManager(cfg Config, store contracts.DecisionStore, dispatcher *Dispatcher, m *metrics.Metrics, log zerolog.Logger) *Manager {
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 2 * rateWindowSpan
	}
	return &Manager{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		metrics:    m,
		log:        log.With().Str("component", "alert.manager").Logger(),
		now:        time.Now,
		lastSent:   make(map[string]time.Time),
		windows:    make(map[string]*rateWindow),
	}
}

// WithClock injects a clock for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Submit routes one decision through dedup and the hourly budget.
// Every outcome is persisted for audit, including rejections:
//
//	(true,  "")             dispatched to the sinks now
//	(false, "deduped")      identical key alerted within its cooldown
//	(false, "rate-limited") source over budget; queued, best-effort release
//
// While a source is under budget, submissions send in arrival order:
// score ranking applies only to the queued overflow, so a high-score
// alert arriving after the budget is spent waits for the window to roll
// even if lower-score alerts already went out. Ranking within the
// window would require withholding every send until the window closes.
func (m *Manager) Submit(ctx context.Context, d contracts.Decision) (bool, string) {
	key := d.Signal.Key()
	source := d.Signal.Source

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	// Dedup: identity + time window
	if last, ok := m.lastSent[key.String()]; ok && now.Sub(last) < m.cooldownFor(source) {
		m.log.Debug().
			Str("key", key.String()).
			Time("last_sent", last).
			Msg("alert deduped")
		if m.metrics != nil {
			m.metrics.AlertsDeduped.WithLabelValues(source).Inc()
		}
		m.persist(ctx, d, false, "deduped")
		return false, "deduped"
	}

	w := m.window(source)
	w.prune(now)

	// Over budget: queue, highest score wins when capacity frees up
	if len(w.sent) >= w.budget {
		id := m.persist(ctx, d, false, "rate-limited")
		heap.Push(&w.pending, &pendingAlert{id: id, decision: d, queuedAt: now})
		m.log.Info().
			Str("source", source).
			Str("symbol", d.Signal.Symbol).
			Int("score", d.Score).
			Msg("alert rate-limited, queued")
		if m.metrics != nil {
			m.metrics.AlertsRateLimited.WithLabelValues(source).Inc()
		}
		return false, "rate-limited"
	}

	// Send
	w.sent = append(w.sent, now)
	m.lastSent[key.String()] = now
	id := m.persist(ctx, d, true, "")
	if m.metrics != nil {
		m.metrics.AlertsSent.WithLabelValues(source).Inc()
	}
	m.dispatcher.Enqueue(id, Format(d))

	return true, ""
}

// Flush releases queued alerts into freed budget capacity (highest score
// first) and drops pending entries past their TTL. The orchestrator
// calls this once per tick.
func (m *Manager) Flush(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	for source, w := range m.windows {
		w.prune(now)
		w.dropExpired(now, m.cfg.PendingTTL, func(p *pendingAlert) {
			m.log.Warn().
				Str("source", source).
				Str("symbol", p.decision.Signal.Symbol).
				Int("score", p.decision.Score).
				Msg("queued alert expired, dropped")
		})

		for len(w.sent) < w.budget && w.pending.Len() > 0 {
			p := heap.Pop(&w.pending).(*pendingAlert)

			key := p.decision.Signal.Key()
			if last, ok := m.lastSent[key.String()]; ok && now.Sub(last) < m.cooldownFor(source) {
				// A sibling alert for the same key went out while this
				// one waited; releasing it now would double-alert.
				m.log.Debug().Str("key", key.String()).Msg("queued alert deduped at release")
				continue
			}

			w.sent = append(w.sent, now)
			m.lastSent[key.String()] = now

			if p.id != "" {
				if err := m.store.MarkSent(ctx, p.id); err != nil {
					m.log.WithLevel(zerolog.ErrorLevel).Err(err).Str("id", p.id).Msg("mark sent failed")
				}
			}
			if m.metrics != nil {
				m.metrics.AlertsSent.WithLabelValues(source).Inc()
			}
			m.dispatcher.Enqueue(p.id, Format(p.decision))

			m.log.Info().
				Str("source", source).
				Str("symbol", p.decision.Signal.Symbol).
				Int("score", p.decision.Score).
				Msg("queued alert released")
		}
	}
}

// Rebuild restores the cooldown table by scanning the store for the
// latest send per alert key within the longest configured cooldown.
func (m *Manager) Rebuild(ctx context.Context) error {
	window := m.cfg.DefaultCooldown
	for _, d := range m.cfg.SourceCooldowns {
		if d > window {
			window = d
		}
	}

	keys, err := m.store.RecentAlertKeys(ctx, window)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, at := range keys {
		m.lastSent[key] = at
	}

	m.log.Info().Int("keys", len(keys)).Msg("cooldown table rebuilt from store")
	return nil
}

func (m *Manager) cooldownFor(source string) time.Duration {
	if d, ok := m.cfg.SourceCooldowns[source]; ok {
		return d
	}
	return m.cfg.DefaultCooldown
}

func (m *Manager) budgetFor(source string) int {
	if b, ok := m.cfg.SourceBudgets[source]; ok {
		return b
	}
	return m.cfg.DefaultBudget
}

func (m *Manager) window(source string) *rateWindow {
	w, ok := m.windows[source]
	if !ok {
		w = &rateWindow{budget: m.budgetFor(source)}
		m.windows[source] = w
	}
	return w
}

// persist writes the audit row; a storage failure never blocks alerting.
func (m *Manager) persist(ctx context.Context, d contracts.Decision, sent bool, reason string) string {
	id, err := m.store.Persist(ctx, d, sent, reason)
	if err != nil {
		m.log.Error().Err(err).
			Str("signal_id", d.Signal.ID).
			Str("symbol", d.Signal.Symbol).
			Msg("decision persist failed")
		if m.metrics != nil {
			m.metrics.StorageErrors.Inc()
		}
		return ""
	}
	return id
}

// rateWindow tracks sends within the rolling hour plus the over-budget
// queue for one source.
type rateWindow struct {
	budget  int
	sent    []time.Time
	pending pendingHeap
}

// prune drops send records older than the rolling window.
func (w *rateWindow) prune(now time.Time) {
	cutoff := now.Add(-rateWindowSpan)
	kept := w.sent[:0]
	for _, t := range w.sent {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.sent = kept
}

// dropExpired removes queued alerts older than ttl.
func (w *rateWindow) dropExpired(now time.Time, ttl time.Duration, onDrop func(*pendingAlert)) {
	kept := w.pending[:0]
	for _, p := range w.pending {
		if now.Sub(p.queuedAt) >= ttl {
			onDrop(p)
			continue
		}
		kept = append(kept, p)
	}
	w.pending = kept
	heap.Init(&w.pending)
}

type pendingAlert struct {
	id       string
	decision contracts.Decision
	queuedAt time.Time
}

// pendingHeap is a max-heap by score; ties go to the earlier arrival.
type pendingHeap []*pendingAlert

func (h pendingHeap) Len() int { return len(h) }
func (h pendingHeap) Less(i, j int) bool {
	if h[i].decision.Score != h[j].decision.Score {
		return h[i].decision.Score > h[j].decision.Score
	}
	return h[i].queuedAt.Before(h[j].queuedAt)
}
func (h pendingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pendingHeap) Push(x any) {
	*h = append(*h, x.(*pendingAlert))
}

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
