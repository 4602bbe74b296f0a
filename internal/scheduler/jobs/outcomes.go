package jobs

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/store"
)

// OutcomeJob sweeps stored signals and fills due forward returns.
// Runs daily after the close so horizon prices exist.
type OutcomeJob struct {
	refresher *store.OutcomeRefresher
	log       zerolog.Logger
}

// NewOutcomeJob creates the outcome refresh job.
func NewOutcomeJob(refresher *store.OutcomeRefresher, log zerolog.Logger) *OutcomeJob {
	return &OutcomeJob{
		refresher: refresher,
		log:       log.With().Str("job", "outcome_refresh").Logger(),
	}
}

func (j *OutcomeJob) Name() string { return "outcome_refresh" }

// Schedule runs at 5:30 PM eastern-pinned server time, after settlement.
func (j *OutcomeJob) Schedule() string { return "0 30 17 * * *" }

func (j *OutcomeJob) Run(ctx context.Context) error {
	filled, err := j.refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	j.log.Info().Int("filled", filled).Msg("outcome refresh done")
	return nil
}
