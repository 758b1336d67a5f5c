package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kmPerDegree is the length of one degree on a great circle.
const kmPerDegree = 111.19492664455873

func TestHaversineKM(t *testing.T) {
	assert.InDelta(t, kmPerDegree, HaversineKM(Location{Lat: 0, Lon: 0}, Location{Lat: 1, Lon: 0}), 1e-6)
	assert.InDelta(t, kmPerDegree, HaversineKM(Location{Lat: 0, Lon: 0}, Location{Lat: 0, Lon: 1}), 1e-6)
	assert.InDelta(t, 0.0, HaversineKM(Location{Lat: 42, Lon: -93}, Location{Lat: 42, Lon: -93}), 1e-12)

	a := Location{Lat: 35.0775, Lon: -118.3639}
	b := Location{Lat: 42.0167, Lon: -93.5386}
	assert.InDelta(t, HaversineKM(a, b), HaversineKM(b, a), 1e-9)
}

func TestKMToDegrees(t *testing.T) {
	assert.InDelta(t, 1.0, KMToDegreesLat(kmPerDegree), 1e-9)
	assert.InDelta(t, 2.0, KMToDegreesLon(kmPerDegree, 60), 1e-9)
	assert.InDelta(t, 360.0, KMToDegreesLon(1, 90), 1e-9)
}

func TestCalcBoundingBox(t *testing.T) {
	box, err := CalcBoundingBox([]Turbine{
		{Lat: 30.1, Lon: -100.1},
		{Lat: 45.9, Lon: -80.05},
		{Lat: 40, Lon: -90},
	})
	require.NoError(t, err)

	assert.Equal(t, BoundingBox{North: 46, West: -100.25, South: 30, East: -80}, box)
	assert.Equal(t, "46/-100.25/30/-80", box.CDSArea())
	assert.True(t, box.Contains(Location{Lat: 30.1, Lon: -100.1}))
	assert.False(t, box.Contains(Location{Lat: 50, Lon: -90}))
}

func TestCalcBoundingBox_NoTurbines(t *testing.T) {
	_, err := CalcBoundingBox(nil)
	assert.ErrorIs(t, err, ErrNoTurbines)
}
