package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoHourField(speed, shear float32, locations int) WindField {
	n := 2 * locations
	f := WindField{
		Times: []time.Time{
			time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2010, time.January, 1, 1, 0, 0, 0, time.UTC),
		},
		NumLocations: locations,
		Speed100:     make([]float32, n),
		Shear:        make([]float32, n),
	}
	for i := 0; i < n; i++ {
		f.Speed100[i] = speed
		f.Shear[i] = shear
	}
	return f
}

func TestSimulateEnergyGWh(t *testing.T) {
	field := twoHourField(14, 0, 2)
	turbines := []Turbine{
		{CapacityKW: 1500, HubHeightM: 80, ProjectYear: 2005},
		{CapacityKW: 1500, HubHeightM: 80, ProjectYear: 2012}, // not built yet
	}

	got, err := SimulateEnergyGWh(field, turbines)
	require.NoError(t, err)
	assert.InDelta(t, 2*1500*1e-6, got, 1e-12)
}

func TestSimulateEnergyGWh_Mismatch(t *testing.T) {
	_, err := SimulateEnergyGWh(twoHourField(10, 0, 2), []Turbine{{}})
	assert.Error(t, err)
}

func TestPowerAccumulator(t *testing.T) {
	acc := NewUniformPowerAccumulator(GE1577, 1)
	require.NoError(t, acc.Add(twoHourField(14, 0, 1)))
	require.NoError(t, acc.Add(twoHourField(0, 0, 1)))

	assert.Equal(t, 4, acc.Hours())
	assert.InDelta(t, 750.0, acc.MeanKW()[0], 1e-9)
}

func TestPowerAccumulator_Empty(t *testing.T) {
	acc := NewUniformPowerAccumulator(GE1577, 3)
	assert.Equal(t, []float64{0, 0, 0}, acc.MeanKW())
}

func TestWindField_Validate(t *testing.T) {
	f := twoHourField(1, 0, 2)
	f.Shear = f.Shear[:1]
	assert.Error(t, f.Validate())
}

func TestModelForExisting_DefaultsForUnknownValues(t *testing.T) {
	m := ModelForExisting(Turbine{CapacityKW: math.NaN(), HubHeightM: math.NaN()})
	assert.Equal(t, GE1577, m)
}
