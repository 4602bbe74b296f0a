package contracts

import "time"

// Horizons are the forward offsets (in days) at which outcomes are measured.
var Horizons = []int{1, 3, 5, 10}

// TrackedSignal is the persisted superset of a decision: the audit row
// plus forward returns filled in by the outcome-refresh job.
type TrackedSignal struct {
	Decision

	// Dispatch audit
	Sent           bool   `json:"sent"`
	Reason         string `json:"reason,omitempty"` // "", "deduped", "rate-limited"
	DeliveryFailed bool   `json:"delivery_failed"`

	// Forward returns in percent vs price_at_signal; nil until filled.
	Return1D  *float64 `json:"return_1d,omitempty"`
	Return3D  *float64 `json:"return_3d,omitempty"`
	Return5D  *float64 `json:"return_5d,omitempty"`
	Return10D *float64 `json:"return_10d,omitempty"`

	// Validated is true once every horizon is filled or expired.
	Validated bool `json:"validated"`
}

// HorizonReturn returns the stored return for a horizon in days, if any.
func (t *TrackedSignal) HorizonReturn(days int) *float64 {
	switch days {
	case 1:
		return t.Return1D
	case 3:
		return t.Return3D
	case 5:
		return t.Return5D
	case 10:
		return t.Return10D
	}
	return nil
}

// PerformanceSummary aggregates realized outcomes per (source, kind).
type PerformanceSummary struct {
	Since  time.Time          `json:"since"`
	Groups []PerformanceGroup `json:"groups"`
}

// PerformanceGroup is one (source, kind) bucket of the summary.
type PerformanceGroup struct {
	Source      string  `json:"source"`
	Kind        string  `json:"kind"`
	Signals     int     `json:"signals"`
	Validated   int     `json:"validated"`
	WinRate5D   float64 `json:"win_rate_5d"`   // share of validated rows with positive 5d return
	AvgReturn1D float64 `json:"avg_return_1d"` // percent
	AvgReturn5D float64 `json:"avg_return_5d"` // percent
}

// ScheduleState is the orchestrator-side lifecycle of a checker.
type ScheduleState string

const (
	StateIdle     ScheduleState = "IDLE"
	StateDue      ScheduleState = "DUE"
	StateRunning  ScheduleState = "RUNNING"
	StateCooldown ScheduleState = "COOLDOWN_AFTER_FAILURE"
)

// CheckerHealth is the per-checker view exposed on the query surface.
type CheckerHealth struct {
	Name                string        `json:"name"`
	State               ScheduleState `json:"state"`
	Interval            time.Duration `json:"interval"`
	LastRun             *time.Time    `json:"last_run,omitempty"`
	LastSuccess         *time.Time    `json:"last_success,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	CooldownUntil       *time.Time    `json:"cooldown_until,omitempty"`
	TotalRuns           int           `json:"total_runs"`
	TotalSignals        int           `json:"total_signals"`
}
