// Package scheduler reruns pipeline targets on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
)

// TargetRunner runs named pipeline targets.
type TargetRunner interface {
	Run(ctx context.Context, names ...string) error
}

// RunStatus describes the last completed scheduled run.
type RunStatus struct {
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Scheduler periodically runs a fixed list of targets.
type Scheduler struct {
	cron     *gocron.Scheduler
	runner   TargetRunner
	targets  []string
	interval time.Duration
	logger   *slog.Logger
	clock    clockwork.Clock

	mu   sync.Mutex
	last RunStatus
}

// New creates a Scheduler. Nothing runs until Start is called. A nil clock
// uses the wall clock for run timing.
func New(runner TargetRunner, targets []string, interval time.Duration, logger *slog.Logger, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		runner:   runner,
		targets:  targets,
		interval: interval,
		logger:   logger,
		clock:    clock,
	}
}

// Start schedules the targets and starts the underlying scheduler. The first
// run starts immediately. Overlapping runs are skipped; a failed run is logged
// and the next tick runs again. ctx is passed to every run.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.targets) == 0 {
		return errors.New("scheduler: no targets")
	}
	if s.interval <= 0 {
		return fmt.Errorf("scheduler: invalid interval %s", s.interval)
	}

	_, err := s.cron.Every(s.interval).SingletonMode().Do(func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduler: schedule targets: %w", err)
	}

	s.logger.Info("scheduler started", "targets", strings.Join(s.targets, ","), "interval", s.interval)
	s.cron.StartAsync()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := s.clock.Now()
	err := s.runner.Run(ctx, s.targets...)
	status := RunStatus{Started: start, Duration: s.clock.Since(start), Err: err}

	s.mu.Lock()
	s.last = status
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled run failed", "error", err, "duration", status.Duration)
		return
	}
	s.logger.Info("scheduled run completed", "duration", status.Duration)
}

// LastRun returns the status of the most recent completed run. The zero value
// means no run has finished yet.
func (s *Scheduler) LastRun() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Stop stops the scheduler. A run in progress is not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}
