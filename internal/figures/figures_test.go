package figures

import (
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/couchcryptid/wind-repower-usa/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
)

func testTurbines() []domain.Turbine {
	return []domain.Turbine{
		{CaseID: 1, ProjectYear: 2005, CapacityKW: 1500, HubHeightM: 80, RotorDiameterM: 77, Lon: -99.75, Lat: 36.5},
		{CaseID: 2, ProjectYear: 2005, CapacityKW: 1650, HubHeightM: 80, RotorDiameterM: 82, Lon: -99.749, Lat: 36.5},
		{CaseID: 3, ProjectYear: 2012, CapacityKW: 2000, HubHeightM: 95, RotorDiameterM: 100, Lon: -99.5, Lat: 36.75},
		{CaseID: 4, ProjectYear: math.NaN(), CapacityKW: math.NaN(), HubHeightM: math.NaN(), RotorDiameterM: math.NaN(), Lon: -99.4, Lat: 36.7},
	}
}

func TestRenderer_Render_AllFigures(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "figures")
	mean := domain.MeanGrid{
		Grid:   domain.Grid{Latitudes: []float64{37, 36.75, 36.5}, Longitudes: []float64{-100, -99.75, -99.5}},
		Values: []float64{6, 7, 8, 7, 8, 9, 8, math.NaN(), 10},
	}
	in := Inputs{
		Turbines:       testTurbines(),
		MinDistancesKM: []float64{0.09, 0.09, 15, 12},
		SimulatedEnergy: []store.SimulatedEnergy{
			{Month: "2019-01", GWh: 1.2}, {Month: "2019-02", GWh: 0.9},
		},
		RepowerPotentials: []store.RepowerPotential{
			{Model: "v136", DistanceFactor: 2, Step: 0, NumTurbines: 4, PowerGeneration: 40},
			{Model: "v136", DistanceFactor: 2, Step: 1, NumNewTurbines: 1, NumTurbines: 3, PowerGeneration: 55},
			{Model: "v136", DistanceFactor: 4, Step: 0, NumTurbines: 4, PowerGeneration: 40},
			{Model: "sg145", DistanceFactor: 2, Step: 0, NumTurbines: 4, PowerGeneration: 40},
		},
		MeanWindSpeed: &mean,
		GeneratedEnergy: []domain.MonthlyEnergy{
			{Month: domain.Month{Year: 2018, Month: time.December}, GWh: 1.0},
			{Month: domain.Month{Year: 2019, Month: time.January}, GWh: 1.4},
		},
		WindRose: testWindRose(),
	}

	written, err := New(dir, slog.Default()).Render(in)
	require.NoError(t, err)
	assert.Len(t, written, 7)
	for _, name := range []string{"power_curves", "history_turbines", "min_distances", "simulated_energy", "repower_potential", "mean_wind_speed_and_turbines", "wind_rose"} {
		assert.FileExists(t, filepath.Join(dir, name+".png"))
	}
}

func TestRenderer_Render_SkipsMissingInputs(t *testing.T) {
	dir := t.TempDir()
	written, err := New(dir, slog.Default()).Render(Inputs{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "power_curves.png")}, written)
	assert.NoFileExists(t, filepath.Join(dir, "history_turbines.png"))
}

func TestRenderer_Render_TurbinesWithoutHistory(t *testing.T) {
	dir := t.TempDir()
	turbines := testTurbines()
	for i := range turbines {
		turbines[i].ProjectYear = math.NaN()
	}
	in := Inputs{
		Turbines:        turbines,
		MinDistancesKM:  []float64{0.09, 0.09, 15, 12},
		SimulatedEnergy: []store.SimulatedEnergy{{Month: "2019-01", GWh: 1.2}},
	}

	written, err := New(dir, slog.Default()).Render(in)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "history_turbines.png"))
	assert.Contains(t, written, filepath.Join(dir, "min_distances.png"))
	assert.Contains(t, written, filepath.Join(dir, "simulated_energy.png"))
}

func TestRenderer_Render_SkipsUndrawableFigure(t *testing.T) {
	dir := t.TempDir()
	in := Inputs{
		SimulatedEnergy: []store.SimulatedEnergy{{Month: "not a month", GWh: 1}},
		WindRose:        testWindRose(),
	}

	written, err := New(dir, slog.Default()).Render(in)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "simulated_energy.png"))
	assert.Contains(t, written, filepath.Join(dir, "wind_rose.png"))
}

func TestHistoryTurbines_NoUsableRows(t *testing.T) {
	turbines := []domain.Turbine{{ProjectYear: math.NaN(), CapacityKW: 1500, RotorDiameterM: 77}}
	assert.False(t, hasHistory(turbines))
	_, err := HistoryTurbines(turbines)
	assert.Error(t, err)
}

func TestHistoryTurbines_CapacityAndRotorDiameter(t *testing.T) {
	plots, err := HistoryTurbines(testTurbines())
	require.NoError(t, err)
	require.Len(t, plots, 2)
	assert.Equal(t, "Turbine history", plots[0].Title.Text)
	assert.Equal(t, "Rotor diameter [m]", plots[1].Y.Label.Text)
	assert.Equal(t, "Year", plots[1].X.Label.Text)
	for _, p := range plots {
		assert.InDelta(t, 2004.0, p.X.Min, 0)
		assert.InDelta(t, 2013.0, p.X.Max, 0)
	}

	rotor := medianPerYear(testTurbines(), func(t domain.Turbine) float64 { return t.RotorDiameterM })
	assert.Equal(t, plotter.XYs{{X: 2005, Y: 77}, {X: 2012, Y: 100}}, rotor)

	// Rotor diameters alone are enough to draw the history.
	_, err = HistoryTurbines([]domain.Turbine{{ProjectYear: 2010, CapacityKW: math.NaN(), RotorDiameterM: 90}})
	require.NoError(t, err)
}

func TestSimulatedEnergy_GeneratedOverlay(t *testing.T) {
	rows := []store.SimulatedEnergy{{Month: "2019-01", GWh: 1.2}}
	p, err := SimulatedEnergy(rows, nil)
	require.NoError(t, err)
	assert.Equal(t, "Simulated wind energy generation", p.Title.Text)

	generated := []domain.MonthlyEnergy{{Month: domain.Month{Year: 2019, Month: time.January}, GWh: 1.5}}
	p, err = SimulatedEnergy(rows, generated)
	require.NoError(t, err)
	assert.Equal(t, "Simulated and generated wind energy", p.Title.Text)
}

func TestFactorLegend_OmitsBaseline(t *testing.T) {
	entries := factorLegend([]float64{2, 4, 0})
	assert.Equal(t, []legendEntry{
		{label: "Distance factor 2", dash: 0},
		{label: "Distance factor 4", dash: 1},
	}, entries)
	assert.Empty(t, factorLegend([]float64{0}))
}

func TestRepowerPotential_BaselineOnly(t *testing.T) {
	_, err := RepowerPotential([]store.RepowerPotential{
		{Model: "v136", DistanceFactor: 0, NumTurbines: 4, PowerGeneration: 40},
	})
	require.NoError(t, err)
}

func TestWindRose(t *testing.T) {
	p, err := WindRose(testWindRose())
	require.NoError(t, err)
	assert.InDelta(t, 75.0, p.Y.Max, 1e-9)
	assert.InDelta(t, -75.0, p.X.Min, 1e-9)

	_, err = WindRose([]store.WindRoseSector{{Sector: 0, CenterRad: 0}})
	assert.Error(t, err)
}

func testWindRose() []store.WindRoseSector {
	sectors := make([]store.WindRoseSector, domain.NumDirectionSectors)
	for i := range sectors {
		sectors[i] = store.WindRoseSector{Sector: i, CenterRad: domain.SectorCenter(i)}
	}
	sectors[27].TurbineHours = 3 // about north
	sectors[0].TurbineHours = 1
	return sectors
}

func TestNewHeatGrid_FlipsDescendingLatitudes(t *testing.T) {
	g := newHeatGrid(domain.MeanGrid{
		Grid:   domain.Grid{Latitudes: []float64{37, 36.75}, Longitudes: []float64{-100, -99.75}},
		Values: []float64{1, 2, 3, 4},
	})
	c, r := g.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 2, r)
	assert.InDelta(t, 36.75, g.Y(0), 0)
	assert.InDelta(t, 3.0, g.Z(0, 0), 0)
	assert.InDelta(t, 2.0, g.Z(1, 1), 0)
	assert.InDelta(t, 1.0, g.Min(), 0)
	assert.InDelta(t, 4.0, g.Max(), 0)
}

func TestNewHeatGrid_ConstantField(t *testing.T) {
	g := newHeatGrid(domain.MeanGrid{
		Grid:   domain.Grid{Latitudes: []float64{1}, Longitudes: []float64{2}},
		Values: []float64{5},
	})
	assert.Greater(t, g.Max(), g.Min())
}

func TestQuantile(t *testing.T) {
	assert.InDelta(t, 2.0, median([]float64{3, 1, 2}), 0)
}
