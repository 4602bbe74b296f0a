package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/pkg/config"
)

// Server wraps the HTTP query surface.
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
	cfg        *config.Config
}

// New creates the API server.
func New(cfg *config.Config, log zerolog.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log.With().Str("component", "api").Logger(),
		cfg: cfg,
	}
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("port", s.cfg.Port).Str("env", s.cfg.Env).Msg("API server started")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("API server shutting down")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}
