package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/fjkiani/lotto-machine-sub000/internal/alert"
	"github.com/fjkiani/lotto-machine-sub000/internal/api"
	"github.com/fjkiani/lotto-machine-sub000/internal/checker"
	"github.com/fjkiani/lotto-machine-sub000/internal/confluence"
	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
	"github.com/fjkiani/lotto-machine-sub000/internal/marketdata"
	"github.com/fjkiani/lotto-machine-sub000/internal/metrics"
	"github.com/fjkiani/lotto-machine-sub000/internal/orchestrator"
	"github.com/fjkiani/lotto-machine-sub000/internal/scheduler"
	"github.com/fjkiani/lotto-machine-sub000/internal/scheduler/jobs"
	"github.com/fjkiani/lotto-machine-sub000/internal/store"
	"github.com/fjkiani/lotto-machine-sub000/pkg/config"
	"github.com/fjkiani/lotto-machine-sub000/pkg/database"
	"github.com/fjkiani/lotto-machine-sub000/pkg/httputil"
	"github.com/fjkiani/lotto-machine-sub000/pkg/logger"
	"github.com/fjkiani/lotto-machine-sub000/pkg/redis"
)

// runCmd starts the full engine: orchestrator, jobs and query surface.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the engine (orchestrator + jobs + API)",
	Long: `Starts the complete engine:

- checker scheduling loop with confluence scoring and alert dispatch
- background jobs (outcome refresh, retention)
- HTTP query surface with websocket alert stream

Example:
  go run ./cmd/lotto run`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	fmt.Println("=== lotto-machine ===")

	// 1. Config + logger
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)
	zlog := log.Zerolog()

	// 2. Database + store
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	signalStore := store.New(db.Pool, zlog)
	if err := signalStore.EnsureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	log.Info("Connected to database")

	// 3. Redis (optional; disabled config degrades to no-op)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, "lotto")

	// 4. Metrics
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	// 5. Confluence scorer
	scoreCfg, err := confluence.LoadOrDefault(cfg.Confluence.ConfigPath)
	if err != nil {
		return fmt.Errorf("load confluence config: %w", err)
	}
	scorer := confluence.NewScorer(scoreCfg)

	// 6. Alert sinks + dispatch
	hub := api.NewHub(zlog)
	sinks := []contracts.AlertSink{alert.NewLogSink(zlog), hub}
	if cfg.Alert.WebhookURL != "" {
		webhookClient := httputil.NewWithTimeout(log, cfg.Alert.WebhookTimeout)
		sinks = append(sinks, alert.NewWebhookSink(cfg.Alert.WebhookURL, webhookClient))
		log.Info("Webhook sink enabled")
	}

	dispatcher := alert.NewDispatcher(sinks, signalStore, m, cfg.Alert.DispatchWorkers, cfg.Alert.WebhookTimeout, zlog)
	manager := alert.NewManager(alert.Config{
		DefaultCooldown: cfg.Alert.DefaultCooldown,
		SourceCooldowns: cfg.Alert.SourceCooldowns,
		DefaultBudget:   cfg.Alert.HourlyBudget,
		SourceBudgets:   cfg.Alert.SourceBudgets,
	}, signalStore, dispatcher, m, zlog)

	// Restore dedup state so a restart does not re-spam
	if err := manager.Rebuild(cmd.Context()); err != nil {
		log.WithError(err).Warn("Alert dedup rebuild failed, starting cold")
	}

	// 7. Market data provider
	var provider contracts.MarketContextProvider
	var prices contracts.PriceLookup
	if cfg.MarketData.BaseURL != "" {
		mdClient := marketdata.NewClient(
			cfg.MarketData.BaseURL,
			httputil.NewWithTimeout(log, cfg.MarketData.Timeout),
			cache, zlog,
		)
		if cfg.MarketData.BudgetPerMin > 0 {
			mdClient = mdClient.WithBudget(
				redis.NewRateLimiter(redisClient, "lotto"),
				redis.RateLimitConfig{Key: "marketdata", Limit: cfg.MarketData.BudgetPerMin, Window: time.Minute},
			)
		}
		provider, prices = mdClient, mdClient
	} else {
		log.Warn("MARKET_DATA_URL not set, scoring without market context")
		provider, prices = marketdata.NullProvider{}, marketdata.NullProvider{}
	}

	// 8. Orchestrator over the registered checkers
	checkers := checker.All()
	if len(checkers) == 0 {
		log.Warn("No checkers registered, engine will idle")
	}

	poolSize := cfg.Orchestrator.WorkerPoolSize
	if poolSize <= 0 || poolSize > cfg.Orchestrator.WorkerPoolCap {
		poolSize = cfg.Orchestrator.WorkerPoolCap
	}

	engine := orchestrator.New(orchestrator.Config{
		TickInterval:    cfg.Orchestrator.TickInterval,
		WorkerPoolSize:  poolSize,
		CheckerTimeout:  cfg.Orchestrator.CheckerTimeout,
		ContextTTL:      cfg.Orchestrator.ContextCacheTTL,
		FailureLimit:    cfg.Orchestrator.FailureLimit,
		FailureCooldown: cfg.Orchestrator.FailureCooldown,
		FailureCap:      cfg.Orchestrator.FailureCapped,
	}, checkers, scorer, provider, manager, cache, m, zlog)

	// 9. Background jobs
	limiter := rate.NewLimiter(rate.Limit(cfg.Store.PriceRateLimit), cfg.Store.PriceRateLimit)
	refresher := store.NewOutcomeRefresher(signalStore, prices, limiter, m, zlog).
		WithLookupTimeout(cfg.Store.RefreshTimeout)

	sched := scheduler.New(zlog)
	if err := sched.AddJob(jobs.NewOutcomeJob(refresher, zlog)); err != nil {
		return fmt.Errorf("register outcome job: %w", err)
	}
	retention := time.Duration(cfg.Store.RetentionDays) * 24 * time.Hour
	if err := sched.AddJob(jobs.NewRetentionJob(signalStore, retention, zlog)); err != nil {
		return fmt.Errorf("register retention job: %w", err)
	}

	// 10. Query surface
	handler := api.NewHandler(signalStore, engine, sched, db, zlog)
	router := api.NewRouter(handler, hub, m, zlog)
	server := api.New(cfg, zlog, router)

	// 11. Start everything
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)
	sched.Start()
	go func() {
		if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Orchestrator exited")
		}
	}()
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	fmt.Printf("\n✅ Engine running on http://localhost:%s (%d checkers)\n", cfg.Port, len(checkers))
	fmt.Println("Press Ctrl+C to stop")

	// 12. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	cancel()
	sched.Stop()
	dispatcher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("Stopped")
	return nil
}
