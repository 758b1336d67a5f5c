package stage

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/wind-repower-usa/internal/adapter/netcdf"
	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// CalcWindSpeed reduces every available ERA5 month to the wind speed at 100 m
// and the shear exponent at each turbine's nearest grid cell, and averages the
// 100 m wind speed over all months on the full grid. The 100 m wind direction
// of every hour is counted in a wind rose per turbine, from which the
// prevailing direction is stored.
func (s *Stages) CalcWindSpeed(ctx context.Context) error {
	turbines, err := s.LoadTurbines()
	if err != nil {
		return err
	}
	months, err := s.existing(s.months(), s.era5Path, "era5 file")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.cfg.InterimDir(), 0o755); err != nil {
		return fmt.Errorf("create interim dir: %w", err)
	}

	locations := domain.Locations(turbines)
	roses := make([]*domain.WindRose, len(locations))
	for i := range roses {
		roses[i] = domain.NewWindRose()
	}
	var mean *meanAccumulator
	for _, m := range months {
		if err := ctx.Err(); err != nil {
			return err
		}
		field, grid, w100, err := s.windFieldForMonth(m, locations, roses)
		if err != nil {
			return err
		}
		if mean == nil {
			mean = newMeanAccumulator(grid)
		}
		if err := mean.add(grid, w100); err != nil {
			return fmt.Errorf("month %s: %w", m, err)
		}
		if err := netcdf.WriteWindField(s.windFieldPath(m), field); err != nil {
			return err
		}
		s.logger.Info("wind speed calculated", "month", m.String(), "hours", len(field.Times), "turbines", field.NumLocations)
	}

	if err := netcdf.WriteMeanGrid(s.MeanGridPath(), mean.result()); err != nil {
		return err
	}
	if err := s.savePrevailingWind(ctx, roses); err != nil {
		return err
	}
	s.metrics.StageItems.WithLabelValues("calc_wind_speed", "months").Add(float64(len(months)))
	return s.finish(ctx, "calc_wind_speed", len(turbines))
}

// windFieldForMonth returns the per-turbine wind field of one month together
// with the grid and the full 100 m wind speed field used for the mean. Hourly
// directions are added to roses.
func (s *Stages) windFieldForMonth(m domain.Month, locations []domain.Location, roses []*domain.WindRose) (domain.WindField, domain.Grid, []float32, error) {
	path := s.era5Path(m)
	e, err := netcdf.OpenERA5(path)
	if err != nil {
		return domain.WindField{}, domain.Grid{}, nil, err
	}
	defer e.Close()

	cells, err := domain.GridIndices(e.Grid, locations)
	if err != nil {
		return domain.WindField{}, domain.Grid{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	u100, err := e.Variable(netcdf.U100)
	if err != nil {
		return domain.WindField{}, domain.Grid{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	v100, err := e.Variable(netcdf.V100)
	if err != nil {
		return domain.WindField{}, domain.Grid{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	w10, err := e.WindSpeeds(netcdf.U10, netcdf.V10)
	if err != nil {
		return domain.WindField{}, domain.Grid{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	w100 := make([]float32, len(u100))
	for i := range u100 {
		w100[i] = float32(domain.WindSpeed(float64(u100[i]), float64(v100[i])))
	}

	size := e.Grid.Size()
	field := domain.WindField{
		Times:        e.Times,
		NumLocations: len(locations),
		Speed100:     make([]float32, len(e.Times)*len(locations)),
		Shear:        make([]float32, len(e.Times)*len(locations)),
	}
	for t := range e.Times {
		for i, cell := range cells {
			src := t*size + cell
			dst := t*len(locations) + i
			field.Speed100[dst] = w100[src]
			field.Shear[dst] = float32(domain.ShearExponent(float64(w10[src]), float64(w100[src])))
			roses[i].Add(float64(u100[src]), float64(v100[src]))
		}
	}
	return field, e.Grid, w100, nil
}

// savePrevailingWind stores the prevailing direction of every turbine and the
// wind rose summed over all turbines.
func (s *Stages) savePrevailingWind(ctx context.Context, roses []*domain.WindRose) error {
	prevailing := make([]float64, len(roses))
	total := domain.NewWindRose()
	for i, r := range roses {
		prevailing[i] = r.Prevailing()
		floats.Add(total.Hours, r.Hours)
	}
	st, err := s.Store()
	if err != nil {
		return err
	}
	if err := st.SavePrevailingWind(ctx, prevailing); err != nil {
		return err
	}
	return st.SaveWindRose(ctx, total.Hours)
}

// meanAccumulator averages hourly grids, ignoring NaN cells.
type meanAccumulator struct {
	grid   domain.Grid
	sums   []float64
	counts []int
}

func newMeanAccumulator(grid domain.Grid) *meanAccumulator {
	return &meanAccumulator{
		grid:   grid,
		sums:   make([]float64, grid.Size()),
		counts: make([]int, grid.Size()),
	}
}

func (a *meanAccumulator) add(grid domain.Grid, values []float32) error {
	if grid.Size() != len(a.sums) {
		return fmt.Errorf("grid of %d cells differs from first month's %d", grid.Size(), len(a.sums))
	}
	for i, v := range values {
		if math.IsNaN(float64(v)) {
			continue
		}
		cell := i % len(a.sums)
		a.sums[cell] += float64(v)
		a.counts[cell]++
	}
	return nil
}

func (a *meanAccumulator) result() domain.MeanGrid {
	values := make([]float64, len(a.sums))
	for i := range values {
		values[i] = math.NaN()
		if a.counts[i] > 0 {
			values[i] = a.sums[i] / float64(a.counts[i])
		}
	}
	return domain.MeanGrid{Grid: a.grid, Values: values}
}
