package netcdf

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourly(n int) []time.Time {
	start := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func TestERA5_RoundTrip(t *testing.T) {
	grid := domain.Grid{
		Latitudes:  []float64{37, 36.75, 36.5}, // stored north to south like ERA5
		Longitudes: []float64{-100, -99.75},
	}
	times := hourly(2)
	n := len(times) * grid.Size()

	u := make([]float32, n)
	v := make([]float32, n)
	for i := range u {
		u[i] = float32(i) * 0.5
		v[i] = -float32(i)
	}
	u[3] = float32(math.NaN())

	path := filepath.Join(t.TempDir(), "wind_velocity_usa_2019-01.nc")
	require.NoError(t, WriteERA5(path, grid, times, map[string][]float32{U100: u, V100: v}))

	e, err := OpenERA5(path)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, times, e.Times)
	assert.Equal(t, grid, e.Grid)

	got, err := e.Variable(U100)
	require.NoError(t, err)
	require.Len(t, got, n)
	assert.True(t, math.IsNaN(float64(got[3])), "fill value decodes to NaN")
	for i := range u {
		if i == 3 {
			continue
		}
		assert.InDelta(t, u[i], got[i], 1e-3, "index %d", i)
	}

	speeds, err := e.WindSpeeds(U100, V100)
	require.NoError(t, err)
	assert.InDelta(t, math.Hypot(0.5, -1), speeds[1], 1e-3)

	_, err = e.Variable(U10)
	require.ErrorIs(t, err, ErrMissingVariable)
}

func TestWriteERA5_RejectsShortField(t *testing.T) {
	grid := domain.Grid{Latitudes: []float64{1}, Longitudes: []float64{2}}
	err := WriteERA5(filepath.Join(t.TempDir(), "x.nc"), grid, hourly(2), map[string][]float32{U10: {1}})
	assert.Error(t, err)
}

func TestWindField_RoundTrip(t *testing.T) {
	field := domain.WindField{
		Times:        hourly(3),
		NumLocations: 2,
		Speed100:     []float32{1, 2, 3, 4, 5, 6},
		Shear:        []float32{0.1, 0.2, 0.3, 0.14, 0.15, 0.16},
	}
	path := filepath.Join(t.TempDir(), "wind_speed_2019-01.nc")
	require.NoError(t, WriteWindField(path, field))
	assert.NoFileExists(t, path+".part")

	got, err := ReadWindField(path)
	require.NoError(t, err)
	if diff := cmp.Diff(field, got); diff != "" {
		t.Fatalf("wind field mismatch (-want +got):\n%s", diff)
	}
}

func TestWindField_RejectsInvalid(t *testing.T) {
	field := domain.WindField{Times: hourly(2), NumLocations: 2, Speed100: []float32{1}}
	assert.Error(t, WriteWindField(filepath.Join(t.TempDir(), "w.nc"), field))
}

func TestMeanGrid_RoundTrip(t *testing.T) {
	m := domain.MeanGrid{
		Grid:   domain.Grid{Latitudes: []float64{40, 39.75}, Longitudes: []float64{-100, -99.75, -99.5}},
		Values: []float64{5, 6, 7, 8, 9, 10},
	}
	path := filepath.Join(t.TempDir(), "wind_speed_mean.nc")
	require.NoError(t, WriteMeanGrid(path, m))

	got, err := ReadMeanGrid(path)
	require.NoError(t, err)
	if diff := cmp.Diff(m, got); diff != "" {
		t.Fatalf("mean grid mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 9.0, got.At(1, 1), 1e-12)
}

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		units  string
		step   time.Duration
		origin time.Time
	}{
		{"hours since 1900-01-01 00:00:00.0", time.Hour, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"seconds since 1970-01-01", time.Second, time.Unix(0, 0).UTC()},
		{"days since 2000-06-15T12:00:00", 24 * time.Hour, time.Date(2000, 6, 15, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.units, func(t *testing.T) {
			step, origin, err := parseTimeUnits(tt.units)
			require.NoError(t, err)
			assert.Equal(t, tt.step, step)
			assert.True(t, tt.origin.Equal(origin), "origin %s", origin)
		})
	}

	_, _, err := parseTimeUnits("fortnights since 1900-01-01")
	assert.Error(t, err)
	_, _, err = parseTimeUnits("hours")
	assert.Error(t, err)
}

func TestPack_ConstantField(t *testing.T) {
	scale, offset, out := pack([]float32{3, 3, 3})
	assert.InDelta(t, 1.0, scale, 0)
	assert.InDelta(t, 3.0, offset, 0)
	assert.Equal(t, []int16{0, 0, 0}, out)
}
