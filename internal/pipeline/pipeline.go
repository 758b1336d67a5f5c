package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/couchcryptid/wind-repower-usa/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// EventPublisher writes run events to an external sink.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.RunEvent) error
}

// Runner executes targets sequentially and stops at the first failure.
type Runner struct {
	registry  *Registry
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock

	mu      sync.Mutex // serialises runs started by the scheduler
	ready   atomic.Bool
	lastErr atomic.Pointer[error]
}

// New creates a Runner. A nil publisher disables run events and a nil clock
// uses real time.
func New(registry *Registry, publisher EventPublisher, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		registry:  registry,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
	}
}

// CheckReadiness returns nil once a run has completed successfully and no
// later run has failed.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no run has completed yet")
	}
	if errp := r.lastErr.Load(); errp != nil && *errp != nil {
		return fmt.Errorf("last run failed: %w", *errp)
	}
	return nil
}

// Run expands the named targets and executes them in order. The returned error
// wraps the failing target's error so ExitCode can recover a tool exit status.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	plan, err := r.registry.Plan(names...)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.NewString()
	r.logger.Info("run started", "run_id", runID, "targets", names)

	err = r.runPlan(ctx, runID, plan)
	r.lastErr.Store(&err)
	if err == nil {
		r.ready.Store(true)
		r.logger.Info("run finished", "run_id", runID)
	}
	return err
}

func (r *Runner) runPlan(ctx context.Context, runID string, plan []Target) error {
	for _, t := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runTarget(ctx, runID, t); err != nil {
			return fmt.Errorf("target %s: %w", t.Name, err)
		}
	}
	return nil
}

func (r *Runner) runTarget(ctx context.Context, runID string, t Target) error {
	log := r.logger.With("run_id", runID, "target", t.Name)
	log.Info("target started")
	r.publish(ctx, log, domain.RunEvent{RunID: runID, Target: t.Name, Status: domain.RunStarted})

	r.metrics.TargetRunning.Set(1)
	start := r.clock.Now()
	err := t.Run(ctx)
	elapsed := r.clock.Since(start)
	r.metrics.TargetRunning.Set(0)
	r.metrics.TargetDuration.WithLabelValues(t.Name).Observe(elapsed.Seconds())

	event := domain.RunEvent{
		RunID:           runID,
		Target:          t.Name,
		DurationSeconds: elapsed.Seconds(),
	}
	if err != nil {
		r.metrics.TargetsRun.WithLabelValues(t.Name, "failure").Inc()
		event.Status = domain.RunFailed
		event.ExitCode = ExitCode(err)
		event.Error = err.Error()
		log.Error("target failed", "error", err, "exit_code", event.ExitCode, "duration", elapsed)
	} else {
		r.metrics.TargetsRun.WithLabelValues(t.Name, "success").Inc()
		event.Status = domain.RunSucceeded
		log.Info("target finished", "duration", elapsed)
	}
	// Publish with a fresh context so a cancelled run still reports its failure.
	r.publish(context.WithoutCancel(ctx), log, event)
	return err
}

// publish is best effort: a broken event sink never fails a target.
func (r *Runner) publish(ctx context.Context, log *slog.Logger, event domain.RunEvent) {
	if r.publisher == nil {
		return
	}
	event.At = r.clock.Now().UTC()
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.metrics.EventErrors.Inc()
		log.Warn("publish run event failed", "error", err, "status", event.Status)
		return
	}
	r.metrics.EventsPublished.Inc()
}
