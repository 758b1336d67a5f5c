// Package figures renders the pipeline's PNG figures with gonum/plot.
package figures

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/couchcryptid/wind-repower-usa/internal/store"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Inputs are the results a figure set is drawn from. Nil or empty fields skip
// the figures that need them.
type Inputs struct {
	Turbines          []domain.Turbine
	MinDistancesKM    []float64
	SimulatedEnergy   []store.SimulatedEnergy
	GeneratedEnergy   []domain.MonthlyEnergy // optional overlay of simulated_energy
	RepowerPotentials []store.RepowerPotential
	MeanWindSpeed     *domain.MeanGrid
	WindRose          []store.WindRoseSector
}

var (
	red    = mustHex("#c72321")
	teal   = mustHex("#0d8085")
	yellow = mustHex("#efc220")
	brown  = mustHex("#7a6952")
	peach  = mustHex("#fbd7a9")

	modelColors = []color.Color{red, teal, yellow}
)

// Renderer writes figures into a directory.
type Renderer struct {
	dir    string
	width  vg.Length
	height vg.Length
	logger *slog.Logger
}

// New creates a Renderer writing to dir.
func New(dir string, logger *slog.Logger) *Renderer {
	return &Renderer{dir: dir, width: 8 * vg.Inch, height: 5 * vg.Inch, logger: logger}
}

// saver is a drawable figure: a single plot or a stack of plots.
type saver interface {
	Save(w, h vg.Length, file string) error
}

type figure struct {
	name  string
	ready bool
	draw  func() (saver, error)
}

func single(f func() (*plot.Plot, error)) func() (saver, error) {
	return func() (saver, error) {
		p, err := f()
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Render draws every figure whose inputs are available and returns the
// written paths. A figure that cannot be drawn from its inputs is skipped with
// a warning; only write errors fail the render.
func (r *Renderer) Render(in Inputs) ([]string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create figures dir: %w", err)
	}

	figs := []figure{
		{"power_curves", true, single(PowerCurves)},
		{"history_turbines", hasHistory(in.Turbines), func() (saver, error) { return HistoryTurbines(in.Turbines) }},
		{"min_distances", len(in.Turbines) > 0 && len(in.MinDistancesKM) == len(in.Turbines),
			single(func() (*plot.Plot, error) { return MinDistances(in.Turbines, in.MinDistancesKM) })},
		{"simulated_energy", len(in.SimulatedEnergy) > 0,
			single(func() (*plot.Plot, error) { return SimulatedEnergy(in.SimulatedEnergy, in.GeneratedEnergy) })},
		{"repower_potential", len(in.RepowerPotentials) > 0,
			single(func() (*plot.Plot, error) { return RepowerPotential(in.RepowerPotentials) })},
		{"mean_wind_speed_and_turbines", in.MeanWindSpeed != nil && len(in.Turbines) > 0,
			single(func() (*plot.Plot, error) { return MeanWindSpeedAndTurbines(*in.MeanWindSpeed, in.Turbines) })},
		{"wind_rose", len(in.WindRose) > 0, single(func() (*plot.Plot, error) { return WindRose(in.WindRose) })},
	}

	var written []string
	for _, f := range figs {
		if !f.ready {
			r.logger.Warn("figure inputs missing, skipping", "figure", f.name)
			continue
		}
		p, err := f.draw()
		if err != nil {
			r.logger.Warn("figure not drawn, skipping", "figure", f.name, "error", err)
			continue
		}
		path := filepath.Join(r.dir, f.name+".png")
		if err := p.Save(r.width, r.height, path); err != nil {
			return written, fmt.Errorf("save %s: %w", path, err)
		}
		r.logger.Info("figure written", "figure", f.name, "file", path)
		written = append(written, path)
	}
	return written, nil
}

// stacked draws plots on top of each other with aligned axes.
type stacked []*plot.Plot

func (s stacked) Save(w, h vg.Length, file string) error {
	c, err := draw.NewFormattedCanvas(w, h, strings.TrimPrefix(filepath.Ext(file), "."))
	if err != nil {
		return err
	}
	rows := make([][]*plot.Plot, len(s))
	for i, p := range s {
		rows[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{
		Rows: len(s), Cols: 1,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
		PadY: vg.Millimeter * 4,
	}
	canvases := plot.Align(rows, tiles, draw.New(c))
	for i, p := range s {
		p.Draw(canvases[i][0])
	}

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func mustHex(s string) color.Color {
	var c color.RGBA
	c.A = 0xff
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		panic(fmt.Sprintf("figures: bad color %q", s))
	}
	return c
}
