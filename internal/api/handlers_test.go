package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
	"github.com/fjkiani/lotto-machine-sub000/internal/scheduler"
)

type stubStore struct {
	decisions []contracts.TrackedSignal
	summary   *contracts.PerformanceSummary
	err       error
}

func (s *stubStore) Persist(context.Context, contracts.Decision, bool, string) (string, error) {
	return "", nil
}
func (s *stubStore) MarkDeliveryFailed(context.Context, string) error { return nil }
func (s *stubStore) MarkSent(context.Context, string) error           { return nil }
func (s *stubStore) RecentDecisions(_ context.Context, limit int) ([]contracts.TrackedSignal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.decisions) {
		return s.decisions[:limit], nil
	}
	return s.decisions, nil
}
func (s *stubStore) RecentAlertKeys(context.Context, time.Duration) (map[string]time.Time, error) {
	return nil, nil
}
func (s *stubStore) Report(context.Context, string, time.Time) (*contracts.PerformanceSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

type stubEngine struct {
	health []contracts.CheckerHealth
}

func (e *stubEngine) Health() []contracts.CheckerHealth { return e.health }

func testRouter(store *stubStore, engine *stubEngine) http.Handler {
	h := NewHandler(store, engine, nil, nil, zerolog.Nop())
	return NewRouter(h, nil, nil, zerolog.Nop())
}

func TestHandler_Health(t *testing.T) {
	router := testRouter(&stubStore{}, &stubEngine{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "lotto-machine", body["service"])
}

func TestHandler_RecentDecisions(t *testing.T) {
	store := &stubStore{decisions: []contracts.TrackedSignal{
		{Decision: contracts.Decision{
			Signal:      contracts.NewSignal("dp", "AAPL", "support", contracts.ActionWatch, 60, 100),
			FinalAction: contracts.ActionLong,
			Score:       5,
		}, Sent: true},
	}}
	router := testRouter(store, &stubEngine{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/decisions/recent", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count     int                       `json:"count"`
		Decisions []contracts.TrackedSignal `json:"decisions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "AAPL", body.Decisions[0].Signal.Symbol)
	assert.True(t, body.Decisions[0].Sent)
}

func TestHandler_RecentDecisionsLimitValidation(t *testing.T) {
	router := testRouter(&stubStore{}, &stubEngine{})

	for _, limit := range []string{"0", "-5", "501", "abc"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/decisions/recent?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestHandler_RecentDecisionsStoreError(t *testing.T) {
	router := testRouter(&stubStore{err: errors.New("db down")}, &stubEngine{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/decisions/recent", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_Performance(t *testing.T) {
	store := &stubStore{summary: &contracts.PerformanceSummary{
		Groups: []contracts.PerformanceGroup{
			{Source: "dp", Kind: "support", Signals: 12, Validated: 9, WinRate5D: 0.67},
		},
	}}
	router := testRouter(store, &stubEngine{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/performance?source=dp&days=30", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var summary contracts.PerformanceSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Len(t, summary.Groups, 1)
	assert.Equal(t, "dp", summary.Groups[0].Source)
	assert.InDelta(t, 0.67, summary.Groups[0].WinRate5D, 1e-9)
}

func TestHandler_PerformanceBadDays(t *testing.T) {
	router := testRouter(&stubStore{}, &stubEngine{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/performance?days=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_CheckerHealth(t *testing.T) {
	engine := &stubEngine{health: []contracts.CheckerHealth{
		{Name: "darkpool", State: contracts.StateIdle, TotalRuns: 42},
		{Name: "sweep", State: contracts.StateCooldown, ConsecutiveFailures: 5},
	}}
	router := testRouter(&stubStore{}, engine)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/checkers/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Checkers []contracts.CheckerHealth `json:"checkers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Checkers, 2)
	assert.Equal(t, contracts.StateCooldown, body.Checkers[1].State)
}

func TestHandler_JobsWithoutScheduler(t *testing.T) {
	router := testRouter(&stubStore{}, &stubEngine{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/jobs", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Jobs []scheduler.JobStatus `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Jobs)
}
