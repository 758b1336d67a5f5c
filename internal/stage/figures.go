package stage

import (
	"context"
	"errors"
	"os"

	"github.com/couchcryptid/wind-repower-usa/internal/adapter/netcdf"
	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/couchcryptid/wind-repower-usa/internal/figures"
	"github.com/couchcryptid/wind-repower-usa/internal/store"
)

// GenerateFigures renders every figure whose inputs exist. Missing results are
// logged by the renderer and do not fail the target.
func (s *Stages) GenerateFigures(ctx context.Context) error {
	var in figures.Inputs

	turbines, err := s.LoadTurbines()
	if err != nil {
		s.logger.Warn("turbines unavailable for figures", "error", err)
	}
	in.Turbines = turbines

	st, err := s.Store()
	if err != nil {
		return err
	}
	if in.MinDistancesKM, err = st.MinDistances(ctx); err != nil && !errors.Is(err, store.ErrNoResults) {
		return err
	}
	if in.SimulatedEnergy, err = st.SimulatedEnergy(ctx); err != nil && !errors.Is(err, store.ErrNoResults) {
		return err
	}
	if in.RepowerPotentials, err = st.RepowerPotentials(ctx); err != nil && !errors.Is(err, store.ErrNoResults) {
		return err
	}
	if in.WindRose, err = st.WindRose(ctx); err != nil && !errors.Is(err, store.ErrNoResults) {
		return err
	}
	in.GeneratedEnergy = s.loadGeneratedEnergy()
	if mean, err := netcdf.ReadMeanGrid(s.MeanGridPath()); err == nil {
		in.MeanWindSpeed = &mean
	} else {
		s.logger.Debug("mean wind speed unavailable for figures", "error", err)
	}

	written, err := figures.New(s.cfg.FiguresDir, s.logger).Render(in)
	if err != nil {
		return err
	}
	return s.finish(ctx, "generate_figures", len(written))
}

// loadGeneratedEnergy reads the optional monthly generation file. A missing or
// unreadable file only drops the overlay from the simulated energy figure.
func (s *Stages) loadGeneratedEnergy() []domain.MonthlyEnergy {
	path := s.cfg.GeneratedEnergyFile()
	f, err := os.Open(path)
	if err != nil {
		s.logger.Debug("generated energy unavailable for figures", "file", path, "error", err)
		return nil
	}
	defer f.Close()

	values, err := domain.ParseGeneratedEnergy(f)
	if err != nil {
		s.logger.Warn("generated energy not readable, skipping overlay", "file", path, "error", err)
		return nil
	}
	return values
}
