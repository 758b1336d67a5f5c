// Command repower runs the wind turbine repowering pipeline.
//
// Usage:
//
//	repower [-list] <target>...
//	repower schedule [-interval 24h] <target>...
//
// Targets run in argument order and the first failure stops the run. When an
// external tool fails, repower exits with that tool's exit code.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/wind-repower-usa/internal/adapter/cds"
	"github.com/couchcryptid/wind-repower-usa/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/wind-repower-usa/internal/adapter/kafka"
	"github.com/couchcryptid/wind-repower-usa/internal/adapter/shell"
	"github.com/couchcryptid/wind-repower-usa/internal/adapter/uswtdb"
	"github.com/couchcryptid/wind-repower-usa/internal/config"
	"github.com/couchcryptid/wind-repower-usa/internal/observability"
	"github.com/couchcryptid/wind-repower-usa/internal/pipeline"
	"github.com/couchcryptid/wind-repower-usa/internal/scheduler"
	"github.com/couchcryptid/wind-repower-usa/internal/stage"
	"github.com/jonboulle/clockwork"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	schedule := len(args) > 0 && args[0] == "schedule"
	if schedule {
		args = args[1:]
	}
	fs := flag.NewFlagSet("repower", flag.ContinueOnError)
	list := fs.Bool("list", false, "list targets and exit")
	interval := fs.Duration("interval", cfg.ScheduleInterval, "interval between scheduled runs")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	targets := fs.Args()

	clock := clockwork.NewRealClock()
	hc := &http.Client{Timeout: cfg.HTTPTimeout}
	stages := stage.New(cfg,
		uswtdb.New(cfg.TurbinesURL, hc, logger, metrics, clock),
		func() (stage.MonthFetcher, error) {
			creds, err := cds.LoadCredentials(cfg.CDSURL, cfg.CDSKey, cfg.CDSRCPath)
			if err != nil {
				return nil, err
			}
			return cds.New(creds, hc, cds.Options{
				PollInterval: cfg.CDSPollInterval,
				StallTimeout: cfg.CDSStallTimeout,
				Clock:        clock,
			}, logger, metrics), nil
		},
		logger, metrics)
	defer func() {
		if err := stages.Close(); err != nil {
			logger.Error("close result store", "error", err)
		}
	}()

	registry := newRegistry(cfg, stages, shell.New(cfg.WorkDir, logger))
	if *list {
		printTargets(os.Stdout, registry)
		return 0
	}
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "usage: repower [-list] <target>... | repower schedule [-interval d] <target>...")
		return 2
	}

	var publisher pipeline.EventPublisher
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("run events enabled", "topic", cfg.KafkaTopic)
	}

	runner := pipeline.New(registry, publisher, logger, metrics, clock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, runner, registry, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	if schedule {
		return runScheduled(ctx, runner, registry, targets, *interval, logger, clock)
	}

	err = runner.Run(ctx, targets...)
	if err != nil {
		logger.Error("run failed", "error", err)
	}
	if werr := observability.WriteTextfile(cfg.MetricsTextfile); werr != nil {
		logger.Error("write metrics textfile", "path", cfg.MetricsTextfile, "error", werr)
	}
	return pipeline.ExitCode(err)
}

func runScheduled(ctx context.Context, runner *pipeline.Runner, registry *pipeline.Registry, targets []string, interval time.Duration, logger *slog.Logger, clock clockwork.Clock) int {
	if _, err := registry.Plan(targets...); err != nil {
		logger.Error("invalid targets", "error", err)
		return 2
	}

	s := scheduler.New(runner, targets, interval, logger, clock)
	if err := s.Start(ctx); err != nil {
		logger.Error("scheduler start failed", "error", err)
		return 1
	}
	<-ctx.Done()
	s.Stop()
	if last := s.LastRun(); !last.Started.IsZero() {
		logger.Info("shutting down", "last_run", last.Started, "last_duration", last.Duration, "last_error", last.Err)
	} else {
		logger.Info("shutting down")
	}
	return 0
}

func printTargets(w io.Writer, registry *pipeline.Registry) {
	for _, t := range registry.Targets() {
		fmt.Fprintf(w, "%-36s %s\n", t.Name, t.Description)
	}
}
