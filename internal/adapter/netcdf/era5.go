package netcdf

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/ctessum/cdf"
)

// ERA5 variable names for the wind components.
const (
	U10  = "u10"
	V10  = "v10"
	U100 = "u100"
	V100 = "v100"
)

const (
	era5TimeUnits = "hours since 1900-01-01 00:00:00.0"
	era5Fill      = int16(-32767)
)

// ERA5File is an open ERA5 single-levels download.
type ERA5File struct {
	f     *file
	Grid  domain.Grid
	Times []time.Time
}

// OpenERA5 opens a monthly ERA5 file and reads its coordinates. Both the
// legacy "time" and the newer "valid_time" axis are understood.
func OpenERA5(path string) (*ERA5File, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	e := &ERA5File{f: f}
	if err := e.readCoordinates(); err != nil {
		f.Close()
		return nil, fmt.Errorf("era5 %s: %w", path, err)
	}
	return e, nil
}

func (e *ERA5File) readCoordinates() error {
	lats, err := e.f.float64s("latitude")
	if err != nil {
		return err
	}
	lons, err := e.f.float64s("longitude")
	if err != nil {
		return err
	}
	e.Grid = domain.Grid{Latitudes: lats, Longitudes: lons}

	timeVar := "time"
	if !e.f.has(timeVar) && e.f.has("valid_time") {
		timeVar = "valid_time"
	}
	raw, err := e.f.float64s(timeVar)
	if err != nil {
		return err
	}
	step, origin, err := parseTimeUnits(e.f.attrString(timeVar, "units"))
	if err != nil {
		return err
	}
	e.Times = decodeTimes(raw, step, origin)
	return nil
}

// Close releases the file.
func (e *ERA5File) Close() error {
	return e.f.Close()
}

// Variable reads a [time][latitude][longitude] field, applying scale_factor
// and add_offset. Fill values become NaN.
func (e *ERA5File) Variable(name string) ([]float32, error) {
	if want := len(e.Times) * e.Grid.Size(); e.f.has(name) && e.f.size(name) != want {
		return nil, fmt.Errorf("variable %s has %d values, expected %d", name, e.f.size(name), want)
	}
	raw, err := e.f.float64s(name)
	if err != nil {
		return nil, err
	}

	scale, ok := e.f.attrFloat(name, "scale_factor")
	if !ok {
		scale = 1
	}
	offset, _ := e.f.attrFloat(name, "add_offset")
	fill, hasFill := e.f.attrFloat(name, "_FillValue")
	missing, hasMissing := e.f.attrFloat(name, "missing_value")

	out := make([]float32, len(raw))
	for i, v := range raw {
		if (hasFill && v == fill) || (hasMissing && v == missing) {
			out[i] = float32(math.NaN())
			continue
		}
		out[i] = float32(v*scale + offset)
	}
	return out, nil
}

// WindSpeeds reads u and v components and returns their magnitude.
func (e *ERA5File) WindSpeeds(u, v string) ([]float32, error) {
	us, err := e.Variable(u)
	if err != nil {
		return nil, err
	}
	vs, err := e.Variable(v)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(us))
	for i := range us {
		out[i] = float32(domain.WindSpeed(float64(us[i]), float64(vs[i])))
	}
	return out, nil
}

// WriteERA5 writes fields in the ERA5 layout: int16 values packed with
// scale_factor and add_offset on a [time][latitude][longitude] grid. It backs
// offline test data.
func WriteERA5(path string, grid domain.Grid, times []time.Time, fields map[string][]float32) error {
	if len(times) == 0 || grid.Size() == 0 {
		return fmt.Errorf("era5 %s: empty grid or time axis", path)
	}
	n := len(times) * grid.Size()
	names := sortedKeys(fields)
	for _, name := range names {
		if len(fields[name]) != n {
			return fmt.Errorf("era5 %s: %s has %d values, expected %d", path, name, len(fields[name]), n)
		}
	}

	h := cdf.NewHeader(
		[]string{"longitude", "latitude", "time"},
		[]int{len(grid.Longitudes), len(grid.Latitudes), len(times)})
	h.AddAttribute("", "Conventions", "CF-1.6")
	h.AddVariable("longitude", []string{"longitude"}, []float32{0})
	h.AddAttribute("longitude", "units", "degrees_east")
	h.AddVariable("latitude", []string{"latitude"}, []float32{0})
	h.AddAttribute("latitude", "units", "degrees_north")
	h.AddVariable("time", []string{"time"}, []int32{0})
	h.AddAttribute("time", "units", era5TimeUnits)
	h.AddAttribute("time", "calendar", "gregorian")

	packed := make(map[string][]int16, len(names))
	for _, name := range names {
		scale, offset, values := pack(fields[name])
		packed[name] = values
		h.AddVariable(name, []string{"time", "latitude", "longitude"}, []int16{0})
		h.AddAttribute(name, "scale_factor", []float64{scale})
		h.AddAttribute(name, "add_offset", []float64{offset})
		h.AddAttribute(name, "_FillValue", []int16{era5Fill})
		h.AddAttribute(name, "units", "m s**-1")
	}

	origin := time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	hours := make([]int32, len(times))
	for i, t := range times {
		hours[i] = int32(t.Sub(origin) / time.Hour)
	}

	return create(path, h, func(f *cdf.File) error {
		if err := write(f, "longitude", toFloat32s(grid.Longitudes)); err != nil {
			return err
		}
		if err := write(f, "latitude", toFloat32s(grid.Latitudes)); err != nil {
			return err
		}
		if err := write(f, "time", hours); err != nil {
			return err
		}
		for _, name := range names {
			if err := write(f, name, packed[name]); err != nil {
				return err
			}
		}
		return nil
	})
}

// pack maps values onto int16 the way ERA5 does, reserving -32767 for fills.
func pack(values []float32) (scale, offset float64, out []int16) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(float64(v)) {
			continue
		}
		lo = math.Min(lo, float64(v))
		hi = math.Max(hi, float64(v))
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 0
	}
	offset = (hi + lo) / 2
	scale = (hi - lo) / 65532
	if scale == 0 {
		scale = 1
	}

	out = make([]int16, len(values))
	for i, v := range values {
		if math.IsNaN(float64(v)) {
			out[i] = era5Fill
			continue
		}
		out[i] = int16(math.Round((float64(v) - offset) / scale))
	}
	return scale, offset, out
}

func toFloat32s(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
