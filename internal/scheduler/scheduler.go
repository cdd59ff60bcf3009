// Package scheduler runs background maintenance jobs on gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/go-co-op/gocron/v2"

	"papertrader/internal/store"
)

// TaskFn is the body of a scheduled job.
type TaskFn func(ctx context.Context) error

// Scheduler wraps a gocron scheduler with panic recovery and job logging.
type Scheduler struct {
	scheduler gocron.Scheduler
	log       *slog.Logger
}

// New creates a stopped scheduler.
func New(log *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{scheduler: s, log: log.With("component", "scheduler")}, nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

// NewIntervalJob runs fn every interval. Overlapping runs are rescheduled
// rather than stacked.
func (s *Scheduler) NewIntervalJob(name string, fn TaskFn, interval time.Duration, startImmediately bool) error {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.taskWithRecover(fn, name)),
		opts...,
	); err != nil {
		return fmt.Errorf("creating job %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) taskWithRecover(fn TaskFn, jobName string) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic recovered in scheduler job",
					"jobName", jobName,
					"panic", r,
					"stacktrace", string(debug.Stack()),
				)
			}
		}()

		s.log.Debug("job start", "jobName", jobName)
		if err := fn(ctx); err != nil {
			s.log.Error("job failed", "jobName", jobName, "error", err)
			return
		}
		s.log.Debug("job completed", "jobName", jobName)
	}
}

// PruneWindowsTask returns a job that deletes cached windows older than ttl.
func PruneWindowsTask(ws store.WindowStore, ttl time.Duration, log *slog.Logger) TaskFn {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context) error {
		removed, err := ws.Prune(ctx, time.Now().Add(-ttl))
		if err != nil {
			return fmt.Errorf("pruning window cache: %w", err)
		}
		if removed > 0 {
			log.Info("pruned window cache", "removed", removed, "ttl", ttl)
		}
		return nil
	}
}
