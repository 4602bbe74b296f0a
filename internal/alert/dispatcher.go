package alert

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
	"github.com/fjkiani/lotto-machine-sub000/internal/metrics"
)

// Dispatcher fans alerts out to the configured sinks on a bounded worker
// pool so a slow sink never blocks the orchestrator tick. Delivery is
// best-effort: a sink failure is logged and the audit row is flagged,
// never retried here (sinks own their own retries).
type Dispatcher struct {
	sinks   []contracts.AlertSink
	store   contracts.DecisionStore
	metrics *metrics.Metrics
	log     zerolog.Logger
	timeout time.Duration

	jobs chan dispatchJob
	wg   sync.WaitGroup
}

type dispatchJob struct {
	id  string
	msg contracts.AlertMessage
}

// NewDispatcher creates a dispatcher with the given delivery pool size.
func NewDispatcher(sinks []contracts.AlertSink, store contracts.DecisionStore, m *metrics.Metrics, workers int, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		sinks:   sinks,
		store:   store,
		metrics: m,
		log:     log.With().Str("component", "alert.dispatcher").Logger(),
		timeout: timeout,
		jobs:    make(chan dispatchJob, workers*8),
	}
	d.start(workers)
	return d
}

func (d *Dispatcher) start(workers int) {
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for job := range d.jobs {
				d.deliver(job)
			}
		}()
	}
}

// Enqueue hands an alert to the delivery pool without blocking. When the
// queue is saturated the alert is dropped with an error log; the audit
// row already exists, so nothing is silently lost.
func (d *Dispatcher) Enqueue(id string, msg contracts.AlertMessage) {
	select {
	case d.jobs <- dispatchJob{id: id, msg: msg}:
	default:
		d.log.Error().
			Str("symbol", msg.Symbol).
			Str("source", msg.Source).
			Msg("dispatch queue full, alert dropped")
		d.markFailed(id)
	}
}

// Stop drains the queue and waits for in-flight deliveries.
func (d *Dispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
}

func (d *Dispatcher) deliver(job dispatchJob) {
	failed := false

	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := sink.Send(ctx, job.msg)
		cancel()

		if err != nil {
			failed = true
			d.log.Error().Err(err).
				Str("sink", sink.Name()).
				Str("symbol", job.msg.Symbol).
				Msg("alert delivery failed")
			if d.metrics != nil {
				d.metrics.DeliveryFailures.WithLabelValues(sink.Name()).Inc()
			}
		}
	}

	if failed {
		d.markFailed(job.id)
	}
}

func (d *Dispatcher) markFailed(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.store.MarkDeliveryFailed(ctx, id); err != nil {
		d.log.Error().Err(err).Str("id", id).Msg("mark delivery failed errored")
	}
}
