package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fjkiani/lotto-machine-sub000/internal/api"
	"github.com/fjkiani/lotto-machine-sub000/internal/metrics"
	"github.com/fjkiani/lotto-machine-sub000/internal/store"
	"github.com/fjkiani/lotto-machine-sub000/pkg/config"
	"github.com/fjkiani/lotto-machine-sub000/pkg/database"
	"github.com/fjkiani/lotto-machine-sub000/pkg/logger"
)

// apiCmd serves the query surface without the orchestrator, for
// dashboards pointed at a database another process writes.
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the query surface only",
	Long: `Starts the HTTP API without the checker loop.

Endpoints:
  GET /health
  GET /metrics
  GET /api/decisions/recent
  GET /api/performance
  GET /api/checkers/health
  GET /api/jobs

Example:
  go run ./cmd/lotto api --port 8090`,
	RunE: runAPIOnly,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "override listen port")
}

func runAPIOnly(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)
	zlog := log.Zerolog()

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	signalStore := store.New(db.Pool, zlog)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	handler := api.NewHandler(signalStore, nil, nil, db, zlog)
	router := api.NewRouter(handler, nil, m, zlog)
	server := api.New(cfg, zlog, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	fmt.Printf("\n✅ API running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
