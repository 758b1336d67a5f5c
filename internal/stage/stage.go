// Package stage implements the native pipeline targets: downloads and the
// calculations that turn turbine and ERA5 data into result tables.
package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/wind-repower-usa/internal/adapter/cds"
	"github.com/couchcryptid/wind-repower-usa/internal/config"
	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/couchcryptid/wind-repower-usa/internal/observability"
	"github.com/couchcryptid/wind-repower-usa/internal/store"
)

// TurbineDownloader fetches the USWTDB CSV.
type TurbineDownloader interface {
	Download(ctx context.Context, dest string) error
}

// MonthFetcher downloads one month of ERA5 data.
type MonthFetcher interface {
	FetchMonth(ctx context.Context, req cds.Request, path string, attempts int) (cds.FetchResult, error)
}

// Stages bundles the dependencies of the native targets. The result store and
// the CDS client are created on first use so that targets which need neither
// do not touch the data directory or require credentials.
type Stages struct {
	cfg      *config.Config
	turbines TurbineDownloader
	newERA5  func() (MonthFetcher, error)
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu    sync.Mutex
	store *store.Store
}

// New creates Stages. newERA5 builds the ERA5 client when download_wind_era5
// runs.
func New(cfg *config.Config, turbines TurbineDownloader, newERA5 func() (MonthFetcher, error), logger *slog.Logger, metrics *observability.Metrics) *Stages {
	return &Stages{
		cfg:      cfg,
		turbines: turbines,
		newERA5:  newERA5,
		logger:   logger,
		metrics:  metrics,
	}
}

// Close releases the result store if it was opened.
func (s *Stages) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// Store opens the result store on first use.
func (s *Stages) Store() (*store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		return s.store, nil
	}
	st, err := store.Open(s.cfg.DBPath())
	if err != nil {
		return nil, err
	}
	s.store = st
	return st, nil
}

// LoadTurbines parses the downloaded USWTDB file.
func (s *Stages) LoadTurbines() ([]domain.Turbine, error) {
	path := s.cfg.TurbinesFile()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("turbines file %s missing, run download_turbines first: %w", path, err)
		}
		return nil, err
	}
	defer f.Close()

	turbines, rejected, err := domain.ParseTurbines(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if rejected > 0 {
		s.logger.Warn("turbine rows without coordinates skipped", "file", path, "rejected", rejected, "kept", len(turbines))
	}
	return turbines, nil
}

// months returns the configured months in chronological order.
func (s *Stages) months() []domain.Month {
	return domain.Months(s.cfg.Years, s.cfg.Months)
}

// windFieldPath is the interim file of one month.
func (s *Stages) windFieldPath(m domain.Month) string {
	return filepath.Join(s.cfg.InterimDir(), fmt.Sprintf("wind_speed_%s.nc", m))
}

// MeanGridPath is the interim mean wind speed grid.
func (s *Stages) MeanGridPath() string {
	return filepath.Join(s.cfg.InterimDir(), "wind_speed_mean.nc")
}

// existing filters months to those whose file exists, logging the rest.
func (s *Stages) existing(months []domain.Month, path func(domain.Month) string, what string) ([]domain.Month, error) {
	var out []domain.Month
	for _, m := range months {
		p := path(m)
		if _, err := os.Stat(p); err != nil {
			s.logger.Warn(what+" missing, skipping month", "month", m.String(), "file", p)
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no %s found for %d configured months", what, len(months))
	}
	return out, nil
}

func (s *Stages) finish(ctx context.Context, stage string, items int) error {
	s.metrics.StageItems.WithLabelValues(stage, "items").Add(float64(items))
	st, err := s.Store()
	if err != nil {
		return err
	}
	return st.RecordStage(ctx, stage, items)
}
