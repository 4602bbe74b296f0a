package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
	"github.com/fjkiani/lotto-machine-sub000/internal/scheduler"
	"github.com/fjkiani/lotto-machine-sub000/pkg/database"
)

// HealthSource exposes the orchestrator's per-checker view.
type HealthSource interface {
	Health() []contracts.CheckerHealth
}

// JobSource exposes the scheduler's job status.
type JobSource interface {
	Status() []scheduler.JobStatus
}

// Handler serves the read-only query surface.
type Handler struct {
	store  contracts.DecisionStore
	engine HealthSource
	jobs   JobSource
	db     *database.DB
	log    zerolog.Logger
}

// NewHandler creates the handler. jobs and db may be nil when the
// process runs without a scheduler or database.
func NewHandler(store contracts.DecisionStore, engine HealthSource, jobs JobSource, db *database.DB, log zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		engine: engine,
		jobs:   jobs,
		db:     db,
		log:    log.With().Str("component", "api.handler").Logger(),
	}
}

// Health reports process and database health.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"service": "lotto-machine",
	}

	if h.db != nil {
		status, err := h.db.HealthCheck(r.Context())
		if err != nil {
			resp["status"] = "degraded"
			resp["database"] = map[string]string{"error": err.Error()}
		} else {
			resp["database"] = status
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// RecentDecisions returns the newest audit rows.
// GET /api/decisions/recent?limit=50
func (h *Handler) RecentDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be 1-500")
			return
		}
		limit = n
	}

	rows, err := h.store.RecentDecisions(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("recent decisions query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(rows),
		"decisions": rows,
	})
}

// Performance returns realized outcomes grouped by (source, kind).
// GET /api/performance?source=darkpool&days=90
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	days := 90
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	since := time.Now().AddDate(0, 0, -days)
	summary, err := h.store.Report(r.Context(), r.URL.Query().Get("source"), since)
	if err != nil {
		h.log.Error().Err(err).Msg("performance report failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// CheckerHealth returns the scheduling state of every checker.
// GET /api/checkers/health
func (h *Handler) CheckerHealth(w http.ResponseWriter, _ *http.Request) {
	checkers := []contracts.CheckerHealth{}
	if h.engine != nil {
		checkers = h.engine.Health()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"checkers": checkers,
	})
}

// Jobs returns the background job status.
// GET /api/jobs
func (h *Handler) Jobs(w http.ResponseWriter, _ *http.Request) {
	if h.jobs == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"jobs": []scheduler.JobStatus{}})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"jobs": h.jobs.Status()})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
