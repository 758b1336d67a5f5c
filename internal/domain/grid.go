package domain

import (
	"errors"
	"math"
)

// ErrOutsideGrid is returned for locations more than half a grid cell away
// from the grid.
var ErrOutsideGrid = errors.New("location outside of grid")

// Grid is a regular lat/lon grid. Latitudes may be ascending or descending,
// ERA5 stores them north to south.
type Grid struct {
	Latitudes  []float64
	Longitudes []float64
}

// Size returns the number of grid cells.
func (g Grid) Size() int {
	return len(g.Latitudes) * len(g.Longitudes)
}

// Nearest returns the row (latitude) and column (longitude) index of the grid
// point closest to loc.
func (g Grid) Nearest(loc Location) (int, int, error) {
	row, okLat := nearestIndex(g.Latitudes, loc.Lat)
	col, okLon := nearestIndex(g.Longitudes, loc.Lon)
	if !okLat || !okLon {
		return 0, 0, ErrOutsideGrid
	}
	return row, col, nil
}

// nearestIndex returns the index of the value closest to x. ok is false if x
// lies further than half a step outside of values.
func nearestIndex(values []float64, x float64) (int, bool) {
	if len(values) == 0 {
		return 0, false
	}
	best, bestDiff := 0, math.Inf(1)
	for i, v := range values {
		if d := math.Abs(v - x); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	halfStep := ERA5GridResolution / 2
	if len(values) > 1 {
		halfStep = math.Abs(values[1]-values[0]) / 2
	}
	return best, bestDiff <= halfStep+1e-9
}

// GridIndices maps every location to its flat grid index row*len(lon)+col.
func GridIndices(g Grid, locations []Location) ([]int, error) {
	out := make([]int, len(locations))
	for i, loc := range locations {
		row, col, err := g.Nearest(loc)
		if err != nil {
			return nil, err
		}
		out[i] = row*len(g.Longitudes) + col
	}
	return out, nil
}

// MeanGrid holds a time-averaged scalar field on a grid, stored row-major.
type MeanGrid struct {
	Grid
	Values []float64
}

// At returns the value at row and col.
func (m MeanGrid) At(row, col int) float64 {
	return m.Values[row*len(m.Longitudes)+col]
}
