package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/metrics"
)

// NewRouter wires the query surface: signal history, performance,
// checker health, job status, live stream and metrics.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h *Handler, hub *Hub, m *metrics.Metrics, log zerolog.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods("GET")

	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/decisions/recent", h.RecentDecisions).Methods("GET")
	api.HandleFunc("/performance", h.Performance).Methods("GET")
	api.HandleFunc("/checkers/health", h.CheckerHealth).Methods("GET")
	api.HandleFunc("/jobs", h.Jobs).Methods("GET")

	if hub != nil {
		api.HandleFunc("/stream", hub.Serve).Methods("GET")
	}

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from handler panics.
func recoveryMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("panic", err).
						Str("path", r.URL.Path).
						Msg("handler panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
