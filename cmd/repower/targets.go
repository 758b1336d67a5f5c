package main

import (
	"context"

	"github.com/couchcryptid/wind-repower-usa/internal/adapter/shell"
	"github.com/couchcryptid/wind-repower-usa/internal/config"
	"github.com/couchcryptid/wind-repower-usa/internal/pipeline"
)

// nativeStages are the targets implemented in Go.
type nativeStages interface {
	Clean(ctx context.Context) error
	DownloadTurbines(ctx context.Context) error
	DownloadWindERA5(ctx context.Context) error
	CalcWindSpeed(ctx context.Context) error
	CalcSimulatedEnergyTimeseries(ctx context.Context) error
	CalcSimulatedEnergyPerLocation(ctx context.Context) error
	CalcOptimalLocations(ctx context.Context) error
	CalcRepowerPotential(ctx context.Context) error
	CalcMinDistances(ctx context.Context) error
	GenerateFigures(ctx context.Context) error
}

// commandRunner runs the external tools.
type commandRunner interface {
	Run(ctx context.Context, opts shell.Options, argv ...string) error
	Notebooks(ctx context.Context, jupyter, pattern string) ([]string, error)
}

const jupyter = "jupyter"

// pipelineOrder lists the data targets in the order each consumes the
// previous one's output.
var pipelineOrder = []string{
	"download_turbines",
	"download_wind_era5",
	"calc_wind_speed",
	"calc_simulated_energy_timeseries",
	"calc_simulated_energy_per_location",
	"calc_optimal_locations",
	"calc_repower_potential",
	"calc_min_distances",
	"generate_figures",
}

func newRegistry(cfg *config.Config, st nativeStages, cmd commandRunner) *pipeline.Registry {
	command := func(opts shell.Options, argv ...string) pipeline.RunFunc {
		return func(ctx context.Context) error {
			return cmd.Run(ctx, opts, argv...)
		}
	}

	reg := pipeline.NewRegistry()
	for _, t := range []pipeline.Target{
		{Name: "clean", Description: "remove Python cache directories", Run: st.Clean},
		{Name: "run_jupyter", Description: "start a Jupyter notebook server", Run: command(shell.Options{Interactive: true}, jupyter, "notebook")},
		{Name: "unit_test", Description: "run the Python unit tests", Run: command(shell.Options{}, cfg.Python, "-m", "pytest", "tests")},
		{Name: "test_notebooks", Description: "execute every notebook as a smoke test", Run: func(ctx context.Context) error {
			_, err := cmd.Notebooks(ctx, jupyter, cfg.NotebookGlob)
			return err
		}},
		{Name: "test", Description: "unit_test and test_notebooks", Deps: []string{"unit_test", "test_notebooks"}},
		{Name: "lint", Description: "run the linter", Run: command(shell.Options{}, cfg.LintCommand...)},

		{Name: "download_turbines", Description: "download the USWTDB turbine CSV", Run: st.DownloadTurbines},
		{Name: "download_wind_era5", Description: "download monthly ERA5 wind fields", Run: st.DownloadWindERA5},
		{Name: "calc_wind_speed", Description: "wind speed at every turbine and the mean wind grid", Run: st.CalcWindSpeed},
		{Name: "calc_simulated_energy_timeseries", Description: "monthly generation of the existing fleet", Run: st.CalcSimulatedEnergyTimeseries},
		{Name: "calc_simulated_energy_per_location", Description: "mean power per location and model", Run: st.CalcSimulatedEnergyPerLocation},
		{Name: "calc_optimal_locations", Description: "clusters and optimal new turbine locations", Run: st.CalcOptimalLocations},
		{Name: "calc_repower_potential", Description: "repowering curves per model and distance factor", Run: st.CalcRepowerPotential},
		{Name: "calc_min_distances", Description: "distance to the closest turbine", Run: st.CalcMinDistances},
		{Name: "generate_figures", Description: "render PNG figures", Run: st.GenerateFigures},

		{Name: "slides", Description: "compile the slides", Run: command(shell.Options{Dir: cfg.SlidesDir}, cfg.SlidesCommand...)},
		{Name: "pipeline", Description: "download data, run every calculation and render figures", Deps: pipelineOrder},
	} {
		reg.Add(t)
	}
	return reg
}
