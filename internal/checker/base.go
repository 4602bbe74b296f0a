package checker

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
)

// Default knobs shared by all checkers unless overridden per source.
const (
	DefaultCooldown   = 4 * time.Hour
	DefaultMaxPerTick = 3
)

// Base carries the state machine every checker shares: a seen-set with
// TTL so the same (symbol, kind) cannot re-alert inside its cooldown,
// and a per-tick candidate cap so one noisy source cannot flood the
// downstream stages. Concrete checkers embed Base and route their
// detected candidates through Admit.
// ⭐ SSOT: 체커 공통 상태머신은 여기서만
type Base struct {
	name     string
	interval time.Duration

	cooldown   time.Duration
	maxPerTick int

	mu   sync.Mutex
	seen map[string]time.Time // (symbol|kind) -> admitted at

	now func() time.Time
	log zerolog.Logger
}

// Option configures a Base.
type Option func(*Base)

// WithCooldown overrides the per-source seen-set TTL.
func WithCooldown(d time.Duration) Option {
	return func(b *Base) { b.cooldown = d }
}

// WithMaxPerTick overrides the per-tick candidate cap.
func WithMaxPerTick(n int) Option {
	return func(b *Base) { b.maxPerTick = n }
}

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Base) { b.now = now }
}

// NewBase creates the shared checker state.
func NewBase(name string, interval time.Duration, log zerolog.Logger, opts ...Option) *Base {
	b := &Base{
		name:       name,
		interval:   interval,
		cooldown:   DefaultCooldown,
		maxPerTick: DefaultMaxPerTick,
		seen:       make(map[string]time.Time),
		now:        time.Now,
		log:        log.With().Str("checker", name).Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the stable source identifier.
func (b *Base) Name() string { return b.name }

// Interval returns the desired polling cadence.
func (b *Base) Interval() time.Duration { return b.interval }

// Admit filters detected candidates through the seen-set and the
// per-tick cap. Candidates are taken strongest first; anything beyond
// the cap is left unmarked so the next tick can re-detect it. Only
// admitted candidates enter the seen-set.
func (b *Base) Admit(candidates []contracts.Signal) []contracts.Signal {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.pruneLocked(now)

	sorted := make([]contracts.Signal, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Strength > sorted[j].Strength
	})

	var admitted []contracts.Signal
	suppressed := 0
	for _, c := range sorted {
		if len(admitted) >= b.maxPerTick {
			break
		}

		key := c.Symbol + "|" + c.Kind
		if at, ok := b.seen[key]; ok && now.Sub(at) < b.cooldown {
			suppressed++
			continue
		}

		b.seen[key] = now
		admitted = append(admitted, c)
	}

	if suppressed > 0 || len(sorted) > len(admitted)+suppressed {
		b.log.Debug().
			Int("candidates", len(candidates)).
			Int("admitted", len(admitted)).
			Int("suppressed", suppressed).
			Msg("candidates filtered")
	}

	return admitted
}

// pruneLocked drops seen-set entries whose cooldown elapsed.
func (b *Base) pruneLocked(now time.Time) {
	for key, at := range b.seen {
		if now.Sub(at) >= b.cooldown {
			delete(b.seen, key)
		}
	}
}

// SeenCount reports the live seen-set size, for health introspection.
func (b *Base) SeenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.seen)
}
