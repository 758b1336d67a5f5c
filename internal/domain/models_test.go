package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurbineModel_PowerKW(t *testing.T) {
	m := GE1577

	tests := []struct {
		name  string
		speed float64
		want  float64
	}{
		{"calm", 0, 0},
		{"below cut-in", 3.4, 0},
		{"at cut-in", 3.5, 0},
		{"ramp", 10, 1500 * (1000 - 42.875) / (2744 - 42.875)},
		{"rated", 14, 1500},
		{"above rated", 20, 1500},
		{"at cut-out", 25, 0},
		{"storm", 30, 0},
		{"nan", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, m.PowerKW(tt.speed), 1e-9)
		})
	}
}

func TestTurbineModel_PowerKWIsMonotonicUpToRated(t *testing.T) {
	for _, m := range NewTurbineModels() {
		prev := 0.0
		for v := 0.0; v < m.RatedMS; v += 0.1 {
			p := m.PowerKW(v)
			assert.GreaterOrEqual(t, p, prev, "%s at %.1f m/s", m.Name, v)
			prev = p
		}
	}
}

func TestTurbineModel_Scaled(t *testing.T) {
	scaled := GE1577.Scaled(2000, 100)
	assert.InDelta(t, 2000.0, scaled.CapacityKW, 1e-9)
	assert.InDelta(t, 100.0, scaled.HubHeightM, 1e-9)
	assert.InDelta(t, 2000.0, scaled.PowerKW(20), 1e-9)

	unchanged := GE1577.Scaled(math.NaN(), math.NaN())
	assert.Equal(t, GE1577, unchanged)
}

func TestTurbineModel_MinDistanceKM(t *testing.T) {
	assert.InDelta(t, 0.414, E138EP3.MinDistanceKM(3), 1e-9)
	assert.InDelta(t, 0.0, E138EP3.MinDistanceKM(0), 1e-12)
}

func TestTurbineModelByFileName(t *testing.T) {
	m, err := TurbineModelByFileName("sg145")
	require.NoError(t, err)
	assert.Equal(t, SG145, m)

	_, err = TurbineModelByFileName("unknown")
	assert.Error(t, err)
}
