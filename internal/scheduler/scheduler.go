package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs maintenance jobs on cron schedules with bounded
// retries. Job panics are contained by the cron recover wrapper.
// ⭐ SSOT: 배치 스케줄 관리는 여기서만
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	maxRetries int
	retryDelay time.Duration
	jobTimeout time.Duration

	mu        sync.RWMutex
	jobs      map[string]Job
	histories map[string]*history
}

// New creates a scheduler.
func New(log zerolog.Logger) *Scheduler {
	l := log.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.PrintfLogger(&cronLogAdapter{l}))),
		),
		log:        l,
		maxRetries: 2,
		retryDelay: time.Minute,
		jobTimeout: 30 * time.Minute,
		jobs:       make(map[string]Job),
		histories:  make(map[string]*history),
	}
}

// AddJob registers a job under its cron schedule.
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	if _, err := s.cron.AddFunc(job.Schedule(), func() { s.runJob(job) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.histories[name] = &history{}

	s.log.Info().Str("job", name).Str("schedule", job.Schedule()).Msg("job registered")
	return nil
}

// Start begins cron evaluation.
func (s *Scheduler) Start() {
	s.log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow triggers one job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("job %s not found", name)
	}

	go s.runJob(job)
	return nil
}

func (s *Scheduler) runJob(job Job) {
	name := job.Name()
	start := time.Now()

	s.log.Info().Str("job", name).Msg("job started")

	var lastErr error
	success := false
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		err := job.Run(ctx)
		cancel()

		if err == nil {
			success = true
			break
		}

		lastErr = err
		s.log.Warn().Err(err).
			Str("job", name).
			Int("attempt", attempt+1).
			Msg("job attempt failed")

		if attempt < s.maxRetries {
			time.Sleep(s.retryDelay)
		}
	}

	result := Result{
		JobName:   name,
		StartTime: start,
		Duration:  time.Since(start),
		Success:   success,
	}
	if !success && lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if h, ok := s.histories[name]; ok {
		h.add(result)
	}
	s.mu.Unlock()

	if success {
		s.log.Info().Str("job", name).Dur("duration", result.Duration).Msg("job finished")
	} else {
		s.log.Error().Err(lastErr).Str("job", name).Msg("job failed after retries")
	}
}

// JobStatus is the per-job view on the status surface.
type JobStatus struct {
	Name        string  `json:"name"`
	Schedule    string  `json:"schedule"`
	Runs        int     `json:"runs"`
	SuccessRate float64 `json:"success_rate"`
	Last        *Result `json:"last,omitempty"`
}

// Status reports every registered job.
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for name, job := range s.jobs {
		h := s.histories[name]
		out = append(out, JobStatus{
			Name:        name,
			Schedule:    job.Schedule(),
			Runs:        len(h.results),
			SuccessRate: h.successRate(),
			Last:        h.last(),
		})
	}
	return out
}

// cronLogAdapter routes cron's recover logging into zerolog.
type cronLogAdapter struct {
	log zerolog.Logger
}

func (a *cronLogAdapter) Printf(format string, args ...interface{}) {
	a.log.Error().Msgf(format, args...)
}
