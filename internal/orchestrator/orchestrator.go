package orchestrator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/alert"
	"github.com/fjkiani/lotto-machine-sub000/internal/confluence"
	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
	"github.com/fjkiani/lotto-machine-sub000/internal/metrics"
	"github.com/fjkiani/lotto-machine-sub000/pkg/redis"
)

// Config holds the loop's timing and isolation knobs.
type Config struct {
	// TickInterval is the cadence of the due-set evaluation.
	TickInterval time.Duration

	// WorkerPoolSize bounds how many checkers run concurrently in one
	// wave; a slow source can never starve the rest.
	WorkerPoolSize int

	// CheckerTimeout bounds one Check call.
	CheckerTimeout time.Duration

	// ContextTTL is how long a fetched market context stays cached;
	// normally one tick so signals for the same symbol in one wave share
	// a single provider call.
	ContextTTL time.Duration

	// FailureLimit is how many consecutive failures a checker gets
	// before it is parked in cooldown. FailureCooldown is the first
	// park's length; each further failure doubles it up to FailureCap.
	FailureLimit    int
	FailureCooldown time.Duration
	FailureCap      time.Duration
}

func (c *Config) defaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = 30 * time.Second
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 16
	}
	if c.CheckerTimeout <= 0 {
		c.CheckerTimeout = 10 * time.Second
	}
	if c.ContextTTL <= 0 {
		c.ContextTTL = redis.TTLTick
	}
	if c.FailureLimit <= 0 {
		c.FailureLimit = 5
	}
	if c.FailureCooldown <= 0 {
		c.FailureCooldown = 5 * time.Minute
	}
	if c.FailureCap <= 0 {
		c.FailureCap = time.Hour
	}
}

// schedule is the orchestrator-side lifecycle of one checker.
type schedule struct {
	checker contracts.Checker

	state        contracts.ScheduleState
	lastRun      *time.Time
	lastSuccess  *time.Time
	failures     int // consecutive
	cooldownTo   *time.Time
	totalRuns    int
	totalSignals int
}

// Engine runs the scheduling loop: every tick it evaluates which
// checkers are due, runs them on a bounded pool, scores their signals
// and hands decisions to the alert manager. One misbehaving checker
// only ever affects itself.
// ⭐ SSOT: 체커 스케줄링은 여기서만
type Engine struct {
	cfg      Config
	scorer   *confluence.Scorer
	provider contracts.MarketContextProvider
	alerts   *alert.Manager
	cache    *redis.Cache
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	schedules map[string]*schedule
}

// New creates an engine over the given checkers. cache and metrics may
// be nil.
func New(cfg Config, checkers []contracts.Checker, scorer *confluence.Scorer, provider contracts.MarketContextProvider, alerts *alert.Manager, cache *redis.Cache, m *metrics.Metrics, log zerolog.Logger) *Engine {
	cfg.defaults()

	e := &Engine{
		cfg:       cfg,
		scorer:    scorer,
		provider:  provider,
		alerts:    alerts,
		cache:     cache,
		metrics:   m,
		log:       log.With().Str("component", "orchestrator").Logger(),
		now:       time.Now,
		schedules: make(map[string]*schedule),
	}

	for _, c := range checkers {
		e.schedules[c.Name()] = &schedule{checker: c, state: contracts.StateIdle}
	}

	return e
}

// WithClock injects a clock for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Run blocks until ctx is cancelled, evaluating the due set every tick.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info().
		Dur("tick", e.cfg.TickInterval).
		Int("checkers", len(e.schedules)).
		Int("workers", e.cfg.WorkerPoolSize).
		Msg("orchestrator started")

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("orchestrator stopped")
			return ctx.Err()
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick runs one evaluation wave synchronously: all due checkers are
// started on the pool and the wave is joined before the alert queue is
// flushed. Exported so tests and the CLI can drive single waves.
func (e *Engine) Tick(ctx context.Context) {
	start := e.now()
	due := e.collectDue(start)

	if len(due) > 0 {
		e.log.Debug().Int("due", len(due)).Msg("tick")
	}

	sem := make(chan struct{}, e.cfg.WorkerPoolSize)
	var wg sync.WaitGroup
	for _, s := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(s *schedule) {
			defer wg.Done()
			defer func() { <-sem }()
			e.runChecker(ctx, s)
		}(s)
	}
	wg.Wait()

	// Freed budget capacity picks up queued alerts once per tick
	e.alerts.Flush(ctx)

	if e.metrics != nil {
		e.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}
}

// collectDue flips eligible schedules to DUE and returns them.
func (e *Engine) collectDue(now time.Time) []*schedule {
	e.mu.Lock()
	defer e.mu.Unlock()

	var due []*schedule
	for _, s := range e.schedules {
		switch s.state {
		case contracts.StateRunning:
			continue
		case contracts.StateCooldown:
			if s.cooldownTo != nil && now.Before(*s.cooldownTo) {
				continue
			}
			// Cooldown over; eligible again on its normal cadence
			s.state = contracts.StateIdle
			s.cooldownTo = nil
		}

		if s.lastRun != nil && now.Sub(*s.lastRun) < s.checker.Interval() {
			continue
		}

		s.state = contracts.StateDue
		due = append(due, s)
	}

	// Transition to RUNNING under the same lock so a slow wave cannot
	// double-schedule a checker.
	for _, s := range due {
		s.state = contracts.StateRunning
		t := now
		s.lastRun = &t
		s.totalRuns++
	}

	return due
}

// runChecker executes one Check call with timeout and panic isolation,
// then routes its signals through scoring and alerting.
func (e *Engine) runChecker(ctx context.Context, s *schedule) {
	signals, err := e.check(ctx, s.checker)
	if err != nil {
		e.recordFailure(s, err)
		return
	}

	e.recordSuccess(s, len(signals))

	for _, sig := range signals {
		e.process(ctx, sig)
	}
}

// check wraps the Check call; a panicking checker is contained and
// reported as a failure.
func (e *Engine) check(ctx context.Context, c contracts.Checker) (signals []contracts.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("checker", c.Name()).
				Interface("panic", r).
				Msg("checker panicked")
			err = &contracts.CheckerFault{Checker: c.Name(), Err: errors.New("panic in Check")}
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, e.cfg.CheckerTimeout)
	defer cancel()

	return c.Check(cctx)
}

// process scores one signal and submits the decision. Malformed signals
// are dropped here; context-provider failures degrade to an empty
// context so a dead provider cannot silence every source. A panic
// anywhere on the per-signal path costs only that one signal.
func (e *Engine) process(ctx context.Context, sig contracts.Signal) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("source", sig.Source).
				Str("symbol", sig.Symbol).
				Interface("panic", r).
				Msg("signal dropped, panic while processing")
		}
	}()

	if e.metrics != nil {
		e.metrics.SignalsEmitted.WithLabelValues(sig.Source).Inc()
	}

	mc, err := e.getContext(ctx, sig.Symbol)
	if err != nil {
		e.log.Warn().Err(err).
			Str("symbol", sig.Symbol).
			Msg("market context unavailable, scoring without it")
		mc = contracts.MarketContext{Symbol: sig.Symbol}
	}

	d, err := e.scorer.Score(sig, mc)
	if err != nil {
		e.log.Error().Err(err).
			Str("source", sig.Source).
			Str("symbol", sig.Symbol).
			Msg("signal dropped, cannot score")
		return
	}

	sent, reason := e.alerts.Submit(ctx, d)
	e.log.Info().
		Str("source", sig.Source).
		Str("symbol", sig.Symbol).
		Str("action", string(d.FinalAction)).
		Int("score", d.Score).
		Bool("sent", sent).
		Str("reason", reason).
		Msg("decision")
}

// getContext serves the market context from the per-tick cache when one
// is wired, falling through to the provider.
func (e *Engine) getContext(ctx context.Context, symbol string) (contracts.MarketContext, error) {
	var mc contracts.MarketContext

	if e.cache != nil {
		hit, err := e.cache.Get(ctx, redis.ContextKey(symbol), &mc)
		if err == nil && hit {
			return mc, nil
		}
	}

	mc, err := e.provider.GetContext(ctx, symbol)
	if err != nil {
		return contracts.MarketContext{}, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, redis.ContextKey(symbol), mc, e.cfg.ContextTTL); err != nil {
			e.log.Debug().Err(err).Str("symbol", symbol).Msg("context cache set failed")
		}
	}

	return mc, nil
}

func (e *Engine) recordSuccess(s *schedule, signalCount int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	s.state = contracts.StateIdle
	s.lastSuccess = &now
	s.failures = 0
	s.totalSignals += signalCount

	if e.metrics != nil {
		e.metrics.CheckerRuns.WithLabelValues(s.checker.Name(), "ok").Inc()
	}
}

// recordFailure counts a consecutive failure and, past the limit, parks
// the checker with an exponentially growing cooldown.
func (e *Engine) recordFailure(s *schedule, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := s.checker.Name()
	s.failures++

	class := "fault"
	if errors.Is(err, contracts.ErrTransientFetch) || errors.Is(err, context.DeadlineExceeded) {
		class = "transient"
	}

	if e.metrics != nil {
		e.metrics.CheckerRuns.WithLabelValues(name, "error").Inc()
		e.metrics.CheckerFailures.WithLabelValues(name, class).Inc()
	}

	if s.failures < e.cfg.FailureLimit {
		s.state = contracts.StateIdle
		e.log.Warn().Err(err).
			Str("checker", name).
			Str("class", class).
			Int("consecutive", s.failures).
			Msg("checker failed")
		return
	}

	cooldown := e.cfg.FailureCooldown << uint(s.failures-e.cfg.FailureLimit)
	if cooldown > e.cfg.FailureCap || cooldown <= 0 {
		cooldown = e.cfg.FailureCap
	}

	until := e.now().Add(cooldown)
	s.state = contracts.StateCooldown
	s.cooldownTo = &until

	e.log.Error().Err(err).
		Str("checker", name).
		Int("consecutive", s.failures).
		Dur("cooldown", cooldown).
		Msg("checker parked after repeated failures")
}

// Health reports the per-checker scheduling view, name-sorted.
func (e *Engine) Health() []contracts.CheckerHealth {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]contracts.CheckerHealth, 0, len(e.schedules))
	for name, s := range e.schedules {
		out = append(out, contracts.CheckerHealth{
			Name:                name,
			State:               s.state,
			Interval:            s.checker.Interval(),
			LastRun:             s.lastRun,
			LastSuccess:         s.lastSuccess,
			ConsecutiveFailures: s.failures,
			CooldownUntil:       s.cooldownTo,
			TotalRuns:           s.totalRuns,
			TotalSignals:        s.totalSignals,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
