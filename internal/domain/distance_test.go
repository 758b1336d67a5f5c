package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcMinDistances(t *testing.T) {
	locs := []Location{
		{Lat: 0, Lon: 0},
		{Lat: 0.01, Lon: 0},
		{Lat: 0.03, Lon: 0},
	}

	got := CalcMinDistances(locs)
	require.Len(t, got, 3)
	assert.InDelta(t, 0.01*kmPerDegree, got[0], 1e-6)
	assert.InDelta(t, 0.01*kmPerDegree, got[1], 1e-6)
	assert.InDelta(t, 0.02*kmPerDegree, got[2], 1e-6)
}

func TestCalcMinDistances_FarApart(t *testing.T) {
	locs := []Location{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 45},
	}
	got := CalcMinDistances(locs)
	assert.InDelta(t, 45*kmPerDegree, got[0], 1e-6)
	assert.InDelta(t, got[0], got[1], 1e-9)
}

func TestCalcMinDistances_SingleTurbine(t *testing.T) {
	got := CalcMinDistances([]Location{{Lat: 40, Lon: -100}})
	require.Len(t, got, 1)
	assert.True(t, math.IsNaN(got[0]))
}

func TestCalcMinDistances_DuplicateLocations(t *testing.T) {
	got := CalcMinDistances([]Location{{Lat: 40, Lon: -100}, {Lat: 40, Lon: -100}})
	assert.InDelta(t, 0.0, got[0], 1e-12)
	assert.InDelta(t, 0.0, got[1], 1e-12)
}

func TestSpatialIndex_MatchesBruteForce(t *testing.T) {
	var locs []Location
	for i := 0; i < 200; i++ {
		// deterministic scatter over the central US
		locs = append(locs, Location{
			Lat: 30 + math.Mod(float64(i)*7.31, 15),
			Lon: -105 + math.Mod(float64(i)*13.17, 25),
		})
	}

	index := NewSpatialIndex(locs)
	for i := range locs {
		want := math.Inf(1)
		for j := range locs {
			if i != j {
				want = math.Min(want, HaversineKM(locs[i], locs[j]))
			}
		}
		_, got := index.Nearest(i)
		assert.InDelta(t, want, got, 1e-9, "location %d", i)
	}
}

func TestSpatialIndex_Within(t *testing.T) {
	locs := []Location{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.005},
		{Lat: 0, Lon: 0.5},
	}
	index := NewSpatialIndex(locs)
	assert.ElementsMatch(t, []int{0, 1}, index.Within(locs[0], 1))
	assert.ElementsMatch(t, []int{0, 1, 2}, index.Within(locs[0], 100))
}
