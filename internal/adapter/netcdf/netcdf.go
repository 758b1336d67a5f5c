// Package netcdf reads ERA5 downloads and reads and writes the pipeline's
// interim netCDF files using the classic netCDF format.
package netcdf

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/ctessum/cdf"
)

// ErrMissingVariable is returned when a file lacks a required variable.
var ErrMissingVariable = errors.New("missing variable")

// file pairs an open netCDF file with its backing handle.
type file struct {
	os  *os.File
	cdf *cdf.File
}

func open(path string) (*file, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open netcdf %s: %w", path, err)
	}
	return &file{os: f, cdf: cf}, nil
}

func (f *file) Close() error {
	return f.os.Close()
}

func (f *file) has(name string) bool {
	for _, v := range f.cdf.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

func (f *file) size(name string) int {
	n := 1
	for _, l := range f.cdf.Header.Lengths(name) {
		n *= l
	}
	return n
}

// float64s reads a whole variable as float64 regardless of its stored type.
func (f *file) float64s(name string) ([]float64, error) {
	if !f.has(name) {
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, name)
	}
	r := f.cdf.Reader(name, nil, nil)
	buf := r.Zero(f.size(name))
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return toFloat64s(buf)
}

// float32s reads a float variable without conversion.
func (f *file) float32s(name string) ([]float32, error) {
	if !f.has(name) {
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, name)
	}
	out := make([]float32, f.size(name))
	if _, err := f.cdf.Reader(name, nil, nil).Read(out); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return out, nil
}

func (f *file) attrString(v, a string) string {
	s, _ := f.cdf.Header.GetAttribute(v, a).(string)
	return s
}

func (f *file) attrFloat(v, a string) (float64, bool) {
	vals, err := toFloat64s(f.cdf.Header.GetAttribute(v, a))
	if err != nil || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

func toFloat64s(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return s, nil
	case []float32:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, nil
	case []int8:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported netcdf type %T", v)
	}
}

// parseTimeUnits parses CF time units such as "hours since 1900-01-01 00:00:00.0".
func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	unit, since, ok := strings.Cut(units, " since ")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unsupported time units %q", units)
	}

	var step time.Duration
	switch strings.TrimSpace(unit) {
	case "hours":
		step = time.Hour
	case "minutes":
		step = time.Minute
	case "seconds":
		step = time.Second
	case "days":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("unsupported time unit %q", unit)
	}

	since = strings.TrimSpace(since)
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if len(since) < len(layout) {
			continue
		}
		if t, err := time.Parse(layout, since[:len(layout)]); err == nil {
			return step, t.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("unsupported time origin %q", since)
}

func decodeTimes(values []float64, step time.Duration, origin time.Time) []time.Time {
	out := make([]time.Time, len(values))
	for i, v := range values {
		out[i] = origin.Add(time.Duration(math.Round(v * float64(step))))
	}
	return out
}

// create writes a netCDF file from a prepared header. fill receives the
// created file to write variable data.
func create(path string, h *cdf.Header, fill func(f *cdf.File) error) (err error) {
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("netcdf header %s: %w", path, errors.Join(errs...))
	}

	tmp := path + ".part"
	w, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(tmp)
			return
		}
		err = os.Rename(tmp, path)
	}()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("create netcdf %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		return fmt.Errorf("write netcdf %s: %w", path, err)
	}
	return cdf.UpdateNumRecs(w)
}

// write stores a whole variable.
func write(f *cdf.File, name string, data any) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	if _, err := f.Writer(name, start, end).Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
