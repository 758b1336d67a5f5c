package domain

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const turbineCSV = `case_id,faa_ors,t_state,t_county,p_name,p_year,t_manu,t_model,t_cap,t_hh,t_rd,xlong,ylat
3072661,,CA,Kern County,251 Wind,1987,Vestas North America,V17,100,24,17,-118.3639,35.0775
3005252,,IA,Story County,Story County Wind,2008,GE Wind,GE1.5-77,1500,80,,-93.5386,42.0167
`

func TestParseTurbines(t *testing.T) {
	turbines, rejected, err := ParseTurbines(strings.NewReader(turbineCSV))
	require.NoError(t, err)
	require.Len(t, turbines, 2)
	assert.Zero(t, rejected)

	first := turbines[0]
	assert.Equal(t, int64(3072661), first.CaseID)
	assert.Equal(t, "CA", first.State)
	assert.Equal(t, "Kern County", first.County)
	assert.Equal(t, "251 Wind", first.ProjectName)
	assert.InDelta(t, 1987.0, first.ProjectYear, 1e-9)
	assert.Equal(t, "V17", first.Model)
	assert.InDelta(t, 100.0, first.CapacityKW, 1e-9)
	assert.InDelta(t, 24.0, first.HubHeightM, 1e-9)
	assert.InDelta(t, 17.0, first.RotorDiameterM, 1e-9)
	assert.InDelta(t, -118.3639, first.Lon, 1e-9)
	assert.InDelta(t, 35.0775, first.Lat, 1e-9)

	assert.True(t, math.IsNaN(turbines[1].RotorDiameterM), "empty t_rd should be NaN")
}

func TestParseTurbines_ColumnOrderDoesNotMatter(t *testing.T) {
	csv := "ylat,xlong,case_id\n40.5,-100.25,1\n"
	turbines, _, err := ParseTurbines(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, turbines, 1)
	assert.InDelta(t, 40.5, turbines[0].Lat, 1e-9)
	assert.InDelta(t, -100.25, turbines[0].Lon, 1e-9)
	assert.True(t, math.IsNaN(turbines[0].CapacityKW))
}

func TestParseTurbines_SkipsRowsWithoutCoordinates(t *testing.T) {
	csv := "case_id,xlong,ylat\n1,,40.5\n2,-100.25,NA\n3,-100.25,40.5\nx,-101,41\n"
	turbines, rejected, err := ParseTurbines(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, turbines, 1)
	assert.Equal(t, int64(3), turbines[0].CaseID)
	assert.Equal(t, 3, rejected)
}

func TestParseTurbines_OnlyRejectedRows(t *testing.T) {
	_, rejected, err := ParseTurbines(strings.NewReader("case_id,xlong,ylat\n1,,40.5\n"))
	assert.ErrorIs(t, err, ErrNoTurbines)
	assert.Equal(t, 1, rejected)
}

func TestParseTurbines_MissingColumn(t *testing.T) {
	_, _, err := ParseTurbines(strings.NewReader("case_id,xlong\n1,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ylat")
}

func TestParseTurbines_Empty(t *testing.T) {
	_, _, err := ParseTurbines(strings.NewReader("case_id,xlong,ylat\n"))
	assert.ErrorIs(t, err, ErrNoTurbines)
}

func TestTurbine_ActiveIn(t *testing.T) {
	assert.True(t, Turbine{ProjectYear: 2008}.ActiveIn(2008))
	assert.False(t, Turbine{ProjectYear: 2008}.ActiveIn(2007))
	assert.True(t, Turbine{ProjectYear: math.NaN()}.ActiveIn(1990))
}
