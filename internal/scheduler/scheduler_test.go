package scheduler

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopJob struct {
	name     string
	schedule string
}

func (j *noopJob) Name() string              { return j.name }
func (j *noopJob) Schedule() string          { return j.schedule }
func (j *noopJob) Run(context.Context) error { return nil }

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob(&noopJob{name: "a", schedule: "0 0 3 * * *"}))

	err := s.AddJob(&noopJob{name: "a", schedule: "0 0 4 * * *"})
	assert.Error(t, err, "duplicate job names are a wiring bug")

	err = s.AddJob(&noopJob{name: "b", schedule: "not a cron expression"})
	assert.Error(t, err)
}

func TestScheduler_RunNowUnknownJob(t *testing.T) {
	s := New(zerolog.Nop())
	assert.Error(t, s.RunNow("missing"))
}

func TestScheduler_Status(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob(&noopJob{name: "a", schedule: "0 0 3 * * *"}))

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "a", status[0].Name)
	assert.Zero(t, status[0].Runs)
	assert.Nil(t, status[0].Last)
}

func TestHistory_TailAndRate(t *testing.T) {
	h := &history{}
	assert.Nil(t, h.last())
	assert.Zero(t, h.successRate())

	for i := 0; i < historyCap+10; i++ {
		h.add(Result{JobName: "a", Success: i%2 == 0})
	}
	assert.Len(t, h.results, historyCap)
	assert.InDelta(t, 0.5, h.successRate(), 0.05)
	assert.NotNil(t, h.last())
}
