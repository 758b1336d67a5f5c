package domain

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

// WindField holds hourly wind at a fixed set of locations for one period,
// usually a month. Values are stored time-major: index t*NumLocations+loc.
type WindField struct {
	Times        []time.Time
	NumLocations int
	Speed100     []float32 // wind speed at 100 m [m/s]
	Shear        []float32 // power law shear exponent
}

// Validate checks that the flattened arrays match the declared dimensions.
func (w WindField) Validate() error {
	n := len(w.Times) * w.NumLocations
	if len(w.Speed100) != n || len(w.Shear) != n {
		return fmt.Errorf("wind field: expected %d values, got %d speeds and %d shear exponents",
			n, len(w.Speed100), len(w.Shear))
	}
	return nil
}

// SpeedAtHeight returns the wind speed at hour t and location loc, extrapolated
// to height h.
func (w WindField) SpeedAtHeight(t, loc int, h float64) float64 {
	i := t*w.NumLocations + loc
	return WindSpeedAtHeight(float64(w.Speed100[i]), float64(w.Shear[i]), h)
}

// SimulateEnergyGWh returns the generation of the active turbines during the
// period covered by field. Turbines commissioned after the year of an hour do
// not contribute to that hour.
func SimulateEnergyGWh(field WindField, turbines []Turbine) (float64, error) {
	if err := field.Validate(); err != nil {
		return 0, err
	}
	if field.NumLocations != len(turbines) {
		return 0, fmt.Errorf("simulate energy: field has %d locations, got %d turbines", field.NumLocations, len(turbines))
	}

	models := make([]TurbineModel, len(turbines))
	for i, t := range turbines {
		models[i] = ModelForExisting(t)
	}

	perHour := make([]float64, len(field.Times))
	for ti, ts := range field.Times {
		var kwh float64
		for i, t := range turbines {
			if !t.ActiveIn(ts.Year()) {
				continue
			}
			kwh += models[i].PowerKW(field.SpeedAtHeight(ti, i, models[i].HubHeightM))
		}
		perHour[ti] = kwh
	}
	return floats.Sum(perHour) * 1e-6, nil
}

// PowerAccumulator averages the power output of one turbine model per
// location over any number of wind fields.
type PowerAccumulator struct {
	models []TurbineModel
	sums   []float64
	hours  int
}

// NewPowerAccumulator creates an accumulator with one model per location.
func NewPowerAccumulator(models []TurbineModel) *PowerAccumulator {
	return &PowerAccumulator{
		models: models,
		sums:   make([]float64, len(models)),
	}
}

// NewUniformPowerAccumulator places the same model at n locations.
func NewUniformPowerAccumulator(model TurbineModel, n int) *PowerAccumulator {
	models := make([]TurbineModel, n)
	for i := range models {
		models[i] = model
	}
	return NewPowerAccumulator(models)
}

// Add accumulates the output for every hour of field.
func (a *PowerAccumulator) Add(field WindField) error {
	if err := field.Validate(); err != nil {
		return err
	}
	if field.NumLocations != len(a.models) {
		return fmt.Errorf("power accumulator: field has %d locations, expected %d", field.NumLocations, len(a.models))
	}
	for ti := range field.Times {
		for i, m := range a.models {
			a.sums[i] += m.PowerKW(field.SpeedAtHeight(ti, i, m.HubHeightM))
		}
	}
	a.hours += len(field.Times)
	return nil
}

// Hours returns the number of accumulated hours.
func (a *PowerAccumulator) Hours() int {
	return a.hours
}

// MeanKW returns the mean power per location. It is all zeros if nothing was
// accumulated.
func (a *PowerAccumulator) MeanKW() []float64 {
	out := make([]float64, len(a.sums))
	copy(out, a.sums)
	if a.hours > 0 {
		floats.Scale(1/float64(a.hours), out)
	}
	return out
}
