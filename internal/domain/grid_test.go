package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid_Nearest(t *testing.T) {
	g := Grid{
		Latitudes:  []float64{46, 45.75, 45.5},
		Longitudes: []float64{-100, -99.75, -99.5, -99.25},
	}

	row, col, err := g.Nearest(Location{Lat: 45.8, Lon: -99.3})
	require.NoError(t, err)
	assert.Equal(t, 1, row)
	assert.Equal(t, 3, col)

	_, _, err = g.Nearest(Location{Lat: 40, Lon: -99.3})
	assert.ErrorIs(t, err, ErrOutsideGrid)
}

func TestGridIndices(t *testing.T) {
	g := Grid{Latitudes: []float64{1, 0}, Longitudes: []float64{0, 0.25, 0.5}}
	got, err := GridIndices(g, []Location{{Lat: 0, Lon: 0.5}, {Lat: 1, Lon: 0}})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 0}, got)
}

func TestMonths(t *testing.T) {
	got := Months([]int{2000, 2001}, []int{1, 12})
	require.Len(t, got, 4)
	assert.Equal(t, "2000-01", got[0].String())
	assert.Equal(t, "2001-12", got[3].String())
}
