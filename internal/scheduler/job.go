package scheduler

import (
	"context"
	"time"
)

// Job is one recurring maintenance task. Slow background work (outcome
// refresh, retention) runs here on cron schedules, separate from the
// fast orchestrator tick.
// ⭐ SSOT: 배치 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Schedule is a cron expression with seconds, e.g. "0 30 17 * * *".
	Schedule() string

	Run(ctx context.Context) error
}

// Result is one finished job run.
type Result struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// history keeps the tail of a job's runs for the status surface.
type history struct {
	results []Result
}

const historyCap = 50

func (h *history) add(r Result) {
	h.results = append(h.results, r)
	if len(h.results) > historyCap {
		h.results = h.results[len(h.results)-historyCap:]
	}
}

func (h *history) last() *Result {
	if len(h.results) == 0 {
		return nil
	}
	return &h.results[len(h.results)-1]
}

func (h *history) successRate() float64 {
	if len(h.results) == 0 {
		return 0
	}
	ok := 0
	for _, r := range h.results {
		if r.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(h.results))
}
