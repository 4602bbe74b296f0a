package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/store"
)

// RetentionJob moves old validated signals into the archive table so
// the hot table stays small.
type RetentionJob struct {
	store     *store.SignalStore
	retention time.Duration
	log       zerolog.Logger
}

// NewRetentionJob creates the retention job.
func NewRetentionJob(s *store.SignalStore, retention time.Duration, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		store:     s,
		retention: retention,
		log:       log.With().Str("job", "retention").Logger(),
	}
}

func (j *RetentionJob) Name() string { return "retention" }

// Schedule runs nightly during the quiet window.
func (j *RetentionJob) Schedule() string { return "0 0 3 * * *" }

func (j *RetentionJob) Run(ctx context.Context) error {
	moved, err := j.store.Archive(ctx, j.retention)
	if err != nil {
		return err
	}
	j.log.Info().Int64("archived", moved).Msg("retention sweep done")
	return nil
}
