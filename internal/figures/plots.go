package figures

import (
	"fmt"
	"image/color"
	"math"
	"slices"
	"sort"

	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/couchcryptid/wind-repower-usa/internal/store"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PowerCurves draws the reference and new turbine power curves.
func PowerCurves() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Power curves"
	p.X.Label.Text = "Wind speed [m/s]"
	p.Y.Label.Text = "Power generation [kW]"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	models := append([]domain.TurbineModel{domain.GE1577}, domain.NewTurbineModels()...)
	colors := append([]color.Color{brown}, modelColors...)
	for i, m := range models {
		xys := make(plotter.XYs, 0, 301)
		for v := 0.0; v <= 30; v += 0.1 {
			xys = append(xys, plotter.XY{X: v, Y: m.PowerKW(v)})
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = colors[i]
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(m.Name, line)
	}
	return p, nil
}

// hasHistory reports whether any turbine has a commissioning year and a
// capacity or rotor diameter.
func hasHistory(turbines []domain.Turbine) bool {
	for _, t := range turbines {
		if !math.IsNaN(t.ProjectYear) && (!math.IsNaN(t.CapacityKW) || !math.IsNaN(t.RotorDiameterM)) {
			return true
		}
	}
	return false
}

// medianPerYear returns the median of value over all turbines commissioned in
// the same year, skipping turbines without year or value.
func medianPerYear(turbines []domain.Turbine, value func(domain.Turbine) float64) plotter.XYs {
	perYear := make(map[int][]float64)
	for _, t := range turbines {
		v := value(t)
		if math.IsNaN(t.ProjectYear) || math.IsNaN(v) {
			continue
		}
		y := int(t.ProjectYear)
		perYear[y] = append(perYear[y], v)
	}
	years := make([]int, 0, len(perYear))
	for y := range perYear {
		years = append(years, y)
	}
	sort.Ints(years)

	xys := make(plotter.XYs, len(years))
	for i, y := range years {
		xys[i] = plotter.XY{X: float64(y), Y: median(perYear[y])}
	}
	return xys
}

// HistoryTurbines draws the median capacity and the median rotor diameter of
// turbines per commissioning year in two panels sharing the year axis.
func HistoryTurbines(turbines []domain.Turbine) (stacked, error) {
	panels := []struct {
		label string
		unit  string
		color color.Color
		value func(domain.Turbine) float64
	}{
		{"Median capacity of new turbines [kW]", "Capacity [kW]", yellow, func(t domain.Turbine) float64 { return t.CapacityKW }},
		{"Median rotor diameter of new turbines [m]", "Rotor diameter [m]", teal, func(t domain.Turbine) float64 { return t.RotorDiameterM }},
	}

	var plots stacked
	minYear, maxYear := math.Inf(1), math.Inf(-1)
	for _, panel := range panels {
		xys := medianPerYear(turbines, panel.value)
		p := plot.New()
		p.Y.Label.Text = panel.unit
		p.Add(plotter.NewGrid())
		p.Legend.Top = true
		p.Legend.Left = true
		if len(xys) > 0 {
			line, points, err := plotter.NewLinePoints(xys)
			if err != nil {
				return nil, err
			}
			line.LineStyle.Color = panel.color
			points.GlyphStyle.Color = panel.color
			points.GlyphStyle.Shape = draw.CircleGlyph{}
			p.Add(line, points)
			p.Legend.Add(panel.label, line, points)
			minYear = math.Min(minYear, xys[0].X)
			maxYear = math.Max(maxYear, xys[len(xys)-1].X)
		}
		plots = append(plots, p)
	}
	if math.IsInf(minYear, 1) {
		return nil, fmt.Errorf("no turbines with commissioning year and capacity or rotor diameter")
	}

	plots[0].Title.Text = "Turbine history"
	plots[len(plots)-1].X.Label.Text = "Year"
	for _, p := range plots {
		p.X.Min, p.X.Max = minYear-1, maxYear+1
	}
	return plots, nil
}

const (
	maxMinDistanceM = 500
	rotorBinStart   = 5.0
	rotorBinWidth   = 10.0
	rotorBins       = 15
)

// MinDistances draws the distance to the closest turbine against rotor
// diameter with guide lines at multiples of the rotor diameter and low
// quantiles per rotor diameter bin.
func MinDistances(turbines []domain.Turbine, distancesKM []float64) (*plot.Plot, error) {
	if len(turbines) != len(distancesKM) {
		return nil, fmt.Errorf("%d turbines but %d distances", len(turbines), len(distancesKM))
	}

	var points plotter.XYs
	bins := make([][]float64, rotorBins)
	for i, t := range turbines {
		d := distancesKM[i] * 1e3
		if math.IsNaN(t.RotorDiameterM) || math.IsNaN(d) {
			continue
		}
		bin := int((t.RotorDiameterM - rotorBinStart) / rotorBinWidth)
		if bin >= 0 && bin < rotorBins {
			bins[bin] = append(bins[bin], d)
		}
		if d < maxMinDistanceM {
			points = append(points, plotter.XY{X: t.RotorDiameterM, Y: d})
		}
	}

	p := plot.New()
	p.Title.Text = "Distance to closest turbine"
	p.X.Label.Text = "Rotor diameter [m]"
	p.Y.Label.Text = "Distance to closest turbine [m]"
	p.Add(plotter.NewGrid())
	p.X.Min, p.X.Max = 0, rotorBinStart+rotorBins*rotorBinWidth
	p.Y.Min, p.Y.Max = 0, maxMinDistanceM
	p.Legend.Top = true
	p.Legend.Left = true

	if len(points) > 0 {
		scatter, err := plotter.NewScatter(points)
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle.Radius = vg.Points(0.5)
		scatter.GlyphStyle.Color = color.Black
		p.Add(scatter)
	}

	centers := make([]float64, rotorBins)
	for i := range centers {
		centers[i] = rotorBinStart + (float64(i)+0.5)*rotorBinWidth
	}

	guides := []struct {
		factor float64
		color  color.Color
	}{{2, yellow}, {3, brown}, {4, red}, {6, peach}}
	for _, g := range guides {
		xys := make(plotter.XYs, len(centers))
		for i, c := range centers {
			xys[i] = plotter.XY{X: c, Y: g.factor * c}
		}
		if err := addLine(p, xys, g.color, nil, fmt.Sprintf("%gx", g.factor)); err != nil {
			return nil, err
		}
	}

	quantiles := []struct {
		q     float64
		color color.Color
	}{{0.05, mustHex("#246b71")}, {0.1, mustHex("#6a9395")}, {0.2, mustHex("#84bcbf")}, {0.3, mustHex("#9bdade")}}
	for _, q := range quantiles {
		var xys plotter.XYs
		for i, values := range bins {
			if len(values) == 0 {
				continue
			}
			xys = append(xys, plotter.XY{X: centers[i], Y: quantile(q.q, values)})
		}
		if len(xys) == 0 {
			continue
		}
		if err := addLine(p, xys, q.color, nil, fmt.Sprintf("%d%% quantile", int(math.Round(q.q*100)))); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// SimulatedEnergy draws the simulated monthly generation of the existing
// fleet. When generated values are given they are drawn as well, together with
// the error (generation - simulation) for months present in both series.
func SimulatedEnergy(rows []store.SimulatedEnergy, generated []domain.MonthlyEnergy) (*plot.Plot, error) {
	simulated := make(map[domain.Month]float64, len(rows))
	xys := make(plotter.XYs, 0, len(rows))
	for _, r := range rows {
		m, err := domain.ParseMonth(r.Month)
		if err != nil {
			return nil, err
		}
		simulated[m] = r.GWh
		xys = append(xys, plotter.XY{X: monthX(m), Y: r.GWh})
	}

	p := plot.New()
	p.Title.Text = "Simulated wind energy generation"
	p.X.Label.Text = "time"
	p.Y.Label.Text = "Wind energy generation per month [GWh]"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	if len(generated) > 0 {
		p.Title.Text = "Simulated and generated wind energy"
		gen := make(plotter.XYs, len(generated))
		var diff plotter.XYs
		for i, g := range generated {
			gen[i] = plotter.XY{X: monthX(g.Month), Y: g.GWh}
			if sim, ok := simulated[g.Month]; ok {
				diff = append(diff, plotter.XY{X: monthX(g.Month), Y: g.GWh - sim})
			}
		}
		if err := addLine(p, gen, red, nil, "Generated"); err != nil {
			return nil, err
		}
		if len(diff) > 0 {
			zero := plotter.NewFunction(func(float64) float64 { return 0 })
			zero.LineStyle.Color = color.Black
			zero.LineStyle.Width = vg.Points(1.5)
			p.Add(zero)
			if err := addLine(p, diff, teal, nil, "Error (generation - simulation)"); err != nil {
				return nil, err
			}
		}
	}

	if err := addLine(p, xys, yellow, nil, "Simulated"); err != nil {
		return nil, err
	}
	return p, nil
}

func monthX(m domain.Month) float64 {
	return float64(m.Start().Unix())
}

// RepowerPotential draws the average power generation against the number of
// repowered turbines. Colors distinguish models and dash patterns distinguish
// distance factors.
func RepowerPotential(rows []store.RepowerPotential) (*plot.Plot, error) {
	type key struct {
		model  string
		factor float64
	}
	curves := make(map[key]plotter.XYs)
	var keys []key
	for _, r := range rows {
		k := key{r.Model, r.DistanceFactor}
		if _, ok := curves[k]; !ok {
			keys = append(keys, k)
		}
		curves[k] = append(curves[k], plotter.XY{
			X: float64(r.NumNewTurbines),
			Y: r.PowerGeneration / domain.HoursPerYear,
		})
	}

	var models []string
	var factors []float64
	for _, k := range keys {
		if !slices.Contains(models, k.model) {
			models = append(models, k.model)
		}
		if !slices.Contains(factors, k.factor) {
			factors = append(factors, k.factor)
		}
	}
	sort.Float64s(factors)
	// The factor 0 baseline sorts last so that it gets its own dash pattern.
	if len(factors) > 0 && factors[0] == 0 {
		factors = append(factors[1:], 0)
	}

	p := plot.New()
	p.Title.Text = "Repower potential"
	p.X.Label.Text = "Number of repowered turbines"
	p.Y.Label.Text = "Average wind power generation [GW]"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	dashes := [][]vg.Length{
		nil,
		{vg.Points(6), vg.Points(3)},
		{vg.Points(2), vg.Points(2)},
		{vg.Points(6), vg.Points(2), vg.Points(2), vg.Points(2)},
		{vg.Points(1), vg.Points(3)},
	}
	labelled := make(map[string]bool)
	for _, k := range keys {
		mi := slices.Index(models, k.model)
		fi := slices.Index(factors, k.factor)
		label := ""
		if !labelled[k.model] {
			label = modelName(k.model)
			labelled[k.model] = true
		}
		if err := addLine(p, curves[k], modelColors[mi%len(modelColors)], dashes[fi%len(dashes)], label); err != nil {
			return nil, err
		}
	}
	for _, e := range factorLegend(factors) {
		line, err := plotter.NewLine(plotter.XYs{{}})
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = color.Black
		line.LineStyle.Dashes = dashes[e.dash%len(dashes)]
		p.Legend.Add(e.label, line)
	}
	return p, nil
}

type legendEntry struct {
	label string
	dash  int
}

// factorLegend lists the distance factor legend entries. The factor 0
// baseline keeps its dash pattern but gets no entry.
func factorLegend(factors []float64) []legendEntry {
	var entries []legendEntry
	for i, f := range factors {
		if f == 0 {
			continue
		}
		entries = append(entries, legendEntry{label: fmt.Sprintf("Distance factor %g", f), dash: i})
	}
	return entries
}

// MeanWindSpeedAndTurbines draws the mean 100 m wind speed as a heat map with
// turbine locations on top.
func MeanWindSpeedAndTurbines(mean domain.MeanGrid, turbines []domain.Turbine) (*plot.Plot, error) {
	g := newHeatGrid(mean)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Mean wind speed at 100 m (%.1f to %.1f m/s)", g.Min(), g.Max())
	p.X.Label.Text = "Longitude [deg]"
	p.Y.Label.Text = "Latitude [deg]"

	heat := plotter.NewHeatMap(g, palette.Heat(12, 1))
	heat.NaN = color.Transparent
	p.Add(heat)

	xys := make(plotter.XYs, len(turbines))
	for i, t := range turbines {
		xys[i] = plotter.XY{X: t.Lon, Y: t.Lat}
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Radius = vg.Points(0.5)
	scatter.GlyphStyle.Color = red
	p.Add(scatter)
	p.Legend.Add("Wind turbine", scatter)
	return p, nil
}

// WindRose draws the share of turbine hours per wind direction sector as a
// closed polygon. North is up and east to the right; a point lies in the
// direction the wind blows to.
func WindRose(sectors []store.WindRoseSector) (*plot.Plot, error) {
	total := 0.0
	for _, s := range sectors {
		total += s.TurbineHours
	}
	if total <= 0 {
		return nil, fmt.Errorf("wind rose has no hours")
	}

	xys := make(plotter.XYs, 0, len(sectors)+1)
	maxShare := 0.0
	for _, s := range sectors {
		share := 100 * s.TurbineHours / total
		maxShare = math.Max(maxShare, share)
		xys = append(xys, plotter.XY{X: share * math.Cos(s.CenterRad), Y: share * math.Sin(s.CenterRad)})
	}
	xys = append(xys, xys[0])

	p := plot.New()
	p.Title.Text = "Wind direction at 100 m"
	p.X.Label.Text = "East [% of hours]"
	p.Y.Label.Text = "North [% of hours]"
	p.Add(plotter.NewGrid())
	p.X.Min, p.X.Max = -maxShare, maxShare
	p.Y.Min, p.Y.Max = -maxShare, maxShare
	if err := addLine(p, xys, teal, nil, "Share of hours per direction"); err != nil {
		return nil, err
	}
	return p, nil
}

// heatGrid presents a MeanGrid with ascending coordinates.
type heatGrid struct {
	lats, lons []float64
	values     []float64 // [lat][lon] with ascending lat
	min, max   float64
}

func newHeatGrid(m domain.MeanGrid) *heatGrid {
	g := &heatGrid{lons: m.Longitudes, min: math.Inf(1), max: math.Inf(-1)}
	nLat, nLon := len(m.Latitudes), len(m.Longitudes)
	descending := nLat > 1 && m.Latitudes[0] > m.Latitudes[nLat-1]

	g.lats = make([]float64, nLat)
	g.values = make([]float64, len(m.Values))
	for r := 0; r < nLat; r++ {
		src := r
		if descending {
			src = nLat - 1 - r
		}
		g.lats[r] = m.Latitudes[src]
		copy(g.values[r*nLon:(r+1)*nLon], m.Values[src*nLon:(src+1)*nLon])
	}
	for _, v := range g.values {
		if math.IsNaN(v) {
			continue
		}
		g.min = math.Min(g.min, v)
		g.max = math.Max(g.max, v)
	}
	if math.IsInf(g.min, 1) {
		g.min, g.max = 0, 0
	}
	if g.max <= g.min {
		g.max = g.min + 1
	}
	return g
}

func (g *heatGrid) Dims() (c, r int)   { return len(g.lons), len(g.lats) }
func (g *heatGrid) Z(c, r int) float64 { return g.values[r*len(g.lons)+c] }
func (g *heatGrid) X(c int) float64    { return g.lons[c] }
func (g *heatGrid) Y(r int) float64    { return g.lats[r] }
func (g *heatGrid) Min() float64       { return g.min }
func (g *heatGrid) Max() float64       { return g.max }

func addLine(p *plot.Plot, xys plotter.XYs, c color.Color, dashes []vg.Length, label string) error {
	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = vg.Points(1.2)
	line.LineStyle.Dashes = dashes
	p.Add(line)
	if label != "" {
		p.Legend.Add(label, line)
	}
	return nil
}

func median(values []float64) float64 {
	return quantile(0.5, values)
}

func quantile(q float64, values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}

func modelName(fileName string) string {
	if m, err := domain.TurbineModelByFileName(fileName); err == nil {
		return m.Name
	}
	return fileName
}
