// Package scheduler triggers batch runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context)

// Scheduler wraps robfig/cron. Overlapping ticks are skipped while a job is
// still running.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	job     Job
	logger  *zap.Logger
	running sync.Mutex
}

func New(spec string, job Job, logger *zap.Logger) (*Scheduler, error) {
	if spec == "" {
		return nil, fmt.Errorf("schedule is required")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:   cron.New(),
		spec:   spec,
		job:    job,
		logger: logger,
	}, nil
}

// Start registers the job and starts ticking. Runs stop being scheduled once
// ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Trigger(ctx) }); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("schedule", s.spec))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Trigger runs the job now unless a previous run is still active.
// It reports whether the job ran.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if !s.running.TryLock() {
		s.logger.Warn("previous scheduled run still active, skipping tick")
		return false
	}
	defer s.running.Unlock()

	s.logger.Info("scheduled run started")
	s.job(ctx)
	s.logger.Info("scheduled run finished")
	return true
}

// Stop halts the cron loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
