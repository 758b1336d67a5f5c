package netcdf

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/ctessum/cdf"
)

const interimTimeUnits = "hours since 1900-01-01 00:00:00"

var interimEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// WriteWindField stores hub-height inputs for every turbine:
// wind_speed_100m[time][turbines] and shear_exponent[time][turbines].
func WriteWindField(path string, field domain.WindField) error {
	if err := field.Validate(); err != nil {
		return err
	}
	if len(field.Times) == 0 || field.NumLocations == 0 {
		return errors.New("wind field: empty time axis or no locations")
	}

	h := cdf.NewHeader([]string{"time", "turbines"}, []int{len(field.Times), field.NumLocations})
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", interimTimeUnits)
	h.AddVariable("wind_speed_100m", []string{"time", "turbines"}, []float32{0})
	h.AddAttribute("wind_speed_100m", "units", "m s**-1")
	h.AddAttribute("wind_speed_100m", "description", "wind speed at 100 m at the nearest grid cell")
	h.AddVariable("shear_exponent", []string{"time", "turbines"}, []float32{0})
	h.AddAttribute("shear_exponent", "units", "1")
	h.AddAttribute("shear_exponent", "description", "power law exponent fitted between 10 m and 100 m")

	hours := make([]float64, len(field.Times))
	for i, t := range field.Times {
		hours[i] = t.Sub(interimEpoch).Hours()
	}

	return create(path, h, func(f *cdf.File) error {
		if err := write(f, "time", hours); err != nil {
			return err
		}
		if err := write(f, "wind_speed_100m", field.Speed100); err != nil {
			return err
		}
		return write(f, "shear_exponent", field.Shear)
	})
}

// ReadWindField loads a file written by WriteWindField.
func ReadWindField(path string) (domain.WindField, error) {
	f, err := open(path)
	if err != nil {
		return domain.WindField{}, err
	}
	defer f.Close()

	raw, err := f.float64s("time")
	if err != nil {
		return domain.WindField{}, fmt.Errorf("wind field %s: %w", path, err)
	}
	step, origin, err := parseTimeUnits(f.attrString("time", "units"))
	if err != nil {
		return domain.WindField{}, fmt.Errorf("wind field %s: %w", path, err)
	}

	field := domain.WindField{Times: decodeTimes(raw, step, origin)}
	if lengths := f.cdf.Header.Lengths("wind_speed_100m"); len(lengths) == 2 {
		field.NumLocations = lengths[1]
	}
	if field.Speed100, err = f.float32s("wind_speed_100m"); err != nil {
		return domain.WindField{}, fmt.Errorf("wind field %s: %w", path, err)
	}
	if field.Shear, err = f.float32s("shear_exponent"); err != nil {
		return domain.WindField{}, fmt.Errorf("wind field %s: %w", path, err)
	}
	if err := field.Validate(); err != nil {
		return domain.WindField{}, fmt.Errorf("wind field %s: %w", path, err)
	}
	return field, nil
}

// WriteMeanGrid stores wind_speed_mean[latitude][longitude].
func WriteMeanGrid(path string, m domain.MeanGrid) error {
	if m.Size() == 0 || len(m.Values) != m.Size() {
		return fmt.Errorf("mean grid: %d values for a %dx%d grid", len(m.Values), len(m.Latitudes), len(m.Longitudes))
	}

	h := cdf.NewHeader([]string{"latitude", "longitude"}, []int{len(m.Latitudes), len(m.Longitudes)})
	h.AddVariable("latitude", []string{"latitude"}, []float64{0})
	h.AddAttribute("latitude", "units", "degrees_north")
	h.AddVariable("longitude", []string{"longitude"}, []float64{0})
	h.AddAttribute("longitude", "units", "degrees_east")
	h.AddVariable("wind_speed_mean", []string{"latitude", "longitude"}, []float64{0})
	h.AddAttribute("wind_speed_mean", "units", "m s**-1")

	return create(path, h, func(f *cdf.File) error {
		if err := write(f, "latitude", m.Latitudes); err != nil {
			return err
		}
		if err := write(f, "longitude", m.Longitudes); err != nil {
			return err
		}
		return write(f, "wind_speed_mean", m.Values)
	})
}

// ReadMeanGrid loads a file written by WriteMeanGrid.
func ReadMeanGrid(path string) (domain.MeanGrid, error) {
	f, err := open(path)
	if err != nil {
		return domain.MeanGrid{}, err
	}
	defer f.Close()

	var m domain.MeanGrid
	if m.Latitudes, err = f.float64s("latitude"); err != nil {
		return domain.MeanGrid{}, fmt.Errorf("mean grid %s: %w", path, err)
	}
	if m.Longitudes, err = f.float64s("longitude"); err != nil {
		return domain.MeanGrid{}, fmt.Errorf("mean grid %s: %w", path, err)
	}
	if m.Values, err = f.float64s("wind_speed_mean"); err != nil {
		return domain.MeanGrid{}, fmt.Errorf("mean grid %s: %w", path, err)
	}
	if len(m.Values) != m.Size() {
		return domain.MeanGrid{}, fmt.Errorf("mean grid %s: %d values for %d cells", path, len(m.Values), m.Size())
	}
	return m, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
