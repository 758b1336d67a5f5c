package stage

import (
	"context"
	"fmt"

	"github.com/couchcryptid/wind-repower-usa/internal/adapter/netcdf"
	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/couchcryptid/wind-repower-usa/internal/store"
)

// CalcSimulatedEnergyTimeseries simulates the monthly generation of the
// existing fleet.
func (s *Stages) CalcSimulatedEnergyTimeseries(ctx context.Context) error {
	turbines, err := s.LoadTurbines()
	if err != nil {
		return err
	}
	months, err := s.existing(s.months(), s.windFieldPath, "wind speed file")
	if err != nil {
		return err
	}

	rows := make([]store.SimulatedEnergy, 0, len(months))
	for _, m := range months {
		if err := ctx.Err(); err != nil {
			return err
		}
		field, err := netcdf.ReadWindField(s.windFieldPath(m))
		if err != nil {
			return err
		}
		gwh, err := domain.SimulateEnergyGWh(field, turbines)
		if err != nil {
			return fmt.Errorf("month %s: %w", m, err)
		}
		rows = append(rows, store.SimulatedEnergy{Month: m.String(), GWh: gwh})
		s.logger.Debug("simulated energy", "month", m.String(), "gwh", gwh)
	}

	st, err := s.Store()
	if err != nil {
		return err
	}
	if err := st.SaveSimulatedEnergy(ctx, rows); err != nil {
		return err
	}
	return s.finish(ctx, "calc_simulated_energy_timeseries", len(rows))
}

// CalcSimulatedEnergyPerLocation computes the mean power at every turbine
// location for the existing turbine and for each new model placed there.
func (s *Stages) CalcSimulatedEnergyPerLocation(ctx context.Context) error {
	turbines, err := s.LoadTurbines()
	if err != nil {
		return err
	}
	months, err := s.existing(s.months(), s.windFieldPath, "wind speed file")
	if err != nil {
		return err
	}

	existing := make([]domain.TurbineModel, len(turbines))
	for i, t := range turbines {
		existing[i] = domain.ModelForExisting(t)
	}
	names := []string{domain.ExistingModelName}
	accumulators := []*domain.PowerAccumulator{domain.NewPowerAccumulator(existing)}
	for _, m := range domain.NewTurbineModels() {
		names = append(names, m.FileName)
		accumulators = append(accumulators, domain.NewUniformPowerAccumulator(m, len(turbines)))
	}

	for _, m := range months {
		if err := ctx.Err(); err != nil {
			return err
		}
		field, err := netcdf.ReadWindField(s.windFieldPath(m))
		if err != nil {
			return err
		}
		for _, acc := range accumulators {
			if err := acc.Add(field); err != nil {
				return fmt.Errorf("month %s: %w", m, err)
			}
		}
	}

	st, err := s.Store()
	if err != nil {
		return err
	}
	for i, acc := range accumulators {
		if err := st.SaveEnergyPerLocation(ctx, names[i], acc.MeanKW()); err != nil {
			return err
		}
		s.logger.Info("energy per location", "model", names[i], "hours", acc.Hours())
	}
	return s.finish(ctx, "calc_simulated_energy_per_location", len(turbines)*len(accumulators))
}
