package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
// ⭐ SSOT: 메트릭 등록은 여기서만
type Metrics struct {
	registry *prometheus.Registry

	// Checker loop
	CheckerRuns     *prometheus.CounterVec
	CheckerFailures *prometheus.CounterVec
	SignalsEmitted  *prometheus.CounterVec
	TickDuration    prometheus.Histogram

	// Alert dispatch
	AlertsSent        *prometheus.CounterVec
	AlertsDeduped     *prometheus.CounterVec
	AlertsRateLimited *prometheus.CounterVec
	DeliveryFailures  *prometheus.CounterVec

	// Outcome tracking
	OutcomesFilled prometheus.Counter
	StorageErrors  prometheus.Counter
}

// New creates and registers all engine metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		CheckerRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotto_checker_runs_total",
				Help: "Checker invocations by checker and result",
			},
			[]string{"checker", "result"},
		),

		CheckerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotto_checker_failures_total",
				Help: "Checker failures by checker and class (transient, fault)",
			},
			[]string{"checker", "class"},
		),

		SignalsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotto_signals_emitted_total",
				Help: "Provisional signals emitted by source",
			},
			[]string{"source"},
		),

		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lotto_tick_duration_seconds",
				Help:    "Duration of one orchestrator tick",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),

		AlertsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotto_alerts_sent_total",
				Help: "Alerts dispatched to sinks by source",
			},
			[]string{"source"},
		),

		AlertsDeduped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotto_alerts_deduped_total",
				Help: "Alerts suppressed by the cooldown table by source",
			},
			[]string{"source"},
		),

		AlertsRateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotto_alerts_rate_limited_total",
				Help: "Alerts queued or dropped by the hourly budget by source",
			},
			[]string{"source"},
		),

		DeliveryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotto_delivery_failures_total",
				Help: "Sink deliveries that exhausted retries by sink",
			},
			[]string{"sink"},
		),

		OutcomesFilled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lotto_outcomes_filled_total",
				Help: "Forward-return horizon fields filled by the refresh job",
			},
		),

		StorageErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lotto_storage_errors_total",
				Help: "Signal store write failures",
			},
		),
	}

	reg.MustRegister(
		m.CheckerRuns,
		m.CheckerFailures,
		m.SignalsEmitted,
		m.TickDuration,
		m.AlertsSent,
		m.AlertsDeduped,
		m.AlertsRateLimited,
		m.DeliveryFailures,
		m.OutcomesFilled,
		m.StorageErrors,
	)

	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
