// Command genmock writes a synthetic USWTDB turbine file, synthetic ERA5
// monthly wind files and a synthetic monthly generation series so the pipeline can run without network access. Output
// uses the same layout as the download targets.
//
// Usage:
//
//	go run ./cmd/genmock -data-dir data -farms 12 -year 2018 -months 1-2
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/wind-repower-usa/internal/adapter/cds"
	"github.com/couchcryptid/wind-repower-usa/internal/adapter/netcdf"
	"github.com/couchcryptid/wind-repower-usa/internal/config"
	"github.com/couchcryptid/wind-repower-usa/internal/domain"
)

// Synthetic farms are placed in a box over the Great Plains.
var region = domain.BoundingBox{North: 43, West: -101, South: 40, East: -96}

var uswtdbHeader = []string{
	"case_id", "faa_ors", "usgs_pr_id", "t_state", "t_county", "t_fips", "p_name", "p_year",
	"p_tnum", "p_cap", "t_manu", "t_model", "t_cap", "t_hh", "t_rd", "t_rsa", "t_ttlh",
	"t_conf_atr", "t_conf_loc", "t_img_date", "t_img_srce", "xlong", "ylat",
}

type turbineType struct {
	manufacturer string
	model        string
	capacityKW   float64
	hubHeightM   float64
	rotorM       float64
}

var fleet = []turbineType{
	{"GE Wind", "GE1.5-77", 1500, 80, 77},
	{"Vestas", "V90-2.0", 2000, 80, 90},
	{"Siemens", "SWT-2.3-101", 2300, 80, 101},
	{"Gamesa", "G87-2.0", 2000, 78, 87},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "data", "data directory the pipeline reads from")
	farms := flag.Int("farms", 12, "number of wind farms")
	perFarm := flag.Int("turbines-per-farm", 15, "turbines per farm")
	year := flag.Int("year", 2018, "year of the ERA5 files")
	months := flag.String("months", "1", "months of the ERA5 files, e.g. 1-3")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *farms <= 0 || *perFarm <= 0 {
		flag.Usage()
		return fmt.Errorf("-farms and -turbines-per-farm must be positive")
	}
	monthList, err := config.ParseIntRange(*months)
	if err != nil {
		return fmt.Errorf("invalid -months: %w", err)
	}

	cfg := &config.Config{DataDir: *dataDir}
	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))

	turbines := synthTurbines(rng, *farms, *perFarm)
	if err := writeTurbines(cfg.TurbinesFile(), turbines); err != nil {
		return err
	}
	log.Printf("turbines: %d written to %s", len(turbines), cfg.TurbinesFile())

	box, err := domain.CalcBoundingBox(turbines)
	if err != nil {
		return err
	}
	grid := gridFor(box)

	if err := os.MkdirAll(cfg.ERA5Dir(), 0o755); err != nil {
		return err
	}
	for _, m := range domain.Months([]int{*year}, monthList) {
		path := filepath.Join(cfg.ERA5Dir(), cds.FileName(m))
		times, fields := synthWind(rng, grid, m)
		if err := netcdf.WriteERA5(path, grid, times, fields); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Printf("era5 %s: %d hours on %dx%d grid", m, len(times), len(grid.Latitudes), len(grid.Longitudes))
	}

	generated := synthGenerated(rng, turbines, domain.Months([]int{*year}, monthList))
	if err := writeGenerated(cfg.GeneratedEnergyFile(), generated); err != nil {
		return err
	}
	log.Printf("generated energy: %d months written to %s", len(generated), cfg.GeneratedEnergyFile())
	return nil
}

// synthGenerated returns monthly generation of the synthetic fleet at a
// capacity factor around 35%.
func synthGenerated(rng *rand.Rand, turbines []domain.Turbine, months []domain.Month) []domain.MonthlyEnergy {
	capacityKW := 0.0
	for _, t := range turbines {
		if !math.IsNaN(t.CapacityKW) {
			capacityKW += t.CapacityKW
		}
	}
	out := make([]domain.MonthlyEnergy, len(months))
	for i, m := range months {
		hours := m.Start().AddDate(0, 1, 0).Sub(m.Start()).Hours()
		factor := 0.35 + 0.05*rng.NormFloat64()
		out[i] = domain.MonthlyEnergy{Month: m, GWh: capacityKW * hours * factor * 1e-6}
	}
	return out
}

func writeGenerated(path string, values []domain.MonthlyEnergy) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := domain.FormatGeneratedEnergy(f, values); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// synthTurbines lays out each farm as rows of turbines a few rotor diameters
// apart.
func synthTurbines(rng *rand.Rand, farms, perFarm int) []domain.Turbine {
	turbines := make([]domain.Turbine, 0, farms*perFarm)
	caseID := int64(3000000)
	for f := range farms {
		tt := fleet[rng.IntN(len(fleet))]
		year := 2000 + rng.IntN(19)
		lat := region.South + rng.Float64()*(region.North-region.South)
		lon := region.West + rng.Float64()*(region.East-region.West)
		spacingKM := (3 + rng.Float64()*3) * tt.rotorM * domain.MeterToKM
		perRow := int(math.Ceil(math.Sqrt(float64(perFarm))))

		for i := range perFarm {
			row, col := i/perRow, i%perRow
			t := domain.Turbine{
				CaseID:         caseID,
				State:          "NE",
				County:         fmt.Sprintf("County %d", f+1),
				ProjectName:    fmt.Sprintf("Synthetic Farm %d", f+1),
				ProjectYear:    float64(year),
				Manufacturer:   tt.manufacturer,
				Model:          tt.model,
				CapacityKW:     tt.capacityKW,
				HubHeightM:     tt.hubHeightM,
				RotorDiameterM: tt.rotorM,
				Lat:            lat + domain.KMToDegreesLat(float64(row)*spacingKM*2),
				Lon:            lon + domain.KMToDegreesLon(float64(col)*spacingKM, lat),
			}
			// Some records in the real database lack turbine details.
			if rng.Float64() < 0.05 {
				t.ProjectYear = math.NaN()
				t.CapacityKW = math.NaN()
				t.HubHeightM = math.NaN()
			}
			turbines = append(turbines, t)
			caseID++
		}
	}
	return turbines
}

func writeTurbines(path string, turbines []domain.Turbine) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(uswtdbHeader); err != nil {
		f.Close()
		return err
	}
	col := make(map[string]int, len(uswtdbHeader))
	for i, h := range uswtdbHeader {
		col[h] = i
	}
	for _, t := range turbines {
		row := make([]string, len(uswtdbHeader))
		row[col["case_id"]] = strconv.FormatInt(t.CaseID, 10)
		row[col["t_state"]] = t.State
		row[col["t_county"]] = t.County
		row[col["p_name"]] = t.ProjectName
		row[col["p_year"]] = formatFloat(t.ProjectYear)
		row[col["t_manu"]] = t.Manufacturer
		row[col["t_model"]] = t.Model
		row[col["t_cap"]] = formatFloat(t.CapacityKW)
		row[col["t_hh"]] = formatFloat(t.HubHeightM)
		row[col["t_rd"]] = formatFloat(t.RotorDiameterM)
		row[col["xlong"]] = strconv.FormatFloat(t.Lon, 'f', 6, 64)
		row[col["ylat"]] = strconv.FormatFloat(t.Lat, 'f', 6, 64)
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// gridFor returns the ERA5 grid covering box, latitudes north to south.
func gridFor(box domain.BoundingBox) domain.Grid {
	r := domain.ERA5GridResolution
	var g domain.Grid
	for lat := box.North; lat >= box.South-r/2; lat -= r {
		g.Latitudes = append(g.Latitudes, lat)
	}
	for lon := box.West; lon <= box.East+r/2; lon += r {
		g.Longitudes = append(g.Longitudes, lon)
	}
	return g
}

// synthWind returns hourly u/v components with a diurnal cycle, a west to
// east gradient and noise. 10m winds are weaker than 100m winds.
func synthWind(rng *rand.Rand, grid domain.Grid, m domain.Month) ([]time.Time, map[string][]float32) {
	start := m.Start()
	end := start.AddDate(0, 1, 0)
	var times []time.Time
	for t := start; t.Before(end); t = t.Add(time.Hour) {
		times = append(times, t)
	}

	n := len(times) * grid.Size()
	fields := map[string][]float32{
		netcdf.U100: make([]float32, 0, n),
		netcdf.V100: make([]float32, 0, n),
		netcdf.U10:  make([]float32, 0, n),
		netcdf.V10:  make([]float32, 0, n),
	}
	for _, t := range times {
		diurnal := 1.5 * math.Sin(2*math.Pi*float64(t.Hour())/24)
		for range grid.Latitudes {
			for j := range grid.Longitudes {
				base := 6 + 2*float64(j)/float64(len(grid.Longitudes)) + diurnal
				u := base + rng.NormFloat64()
				v := 0.5*base + rng.NormFloat64()
				shear := 0.65 + 0.15*rng.Float64()
				fields[netcdf.U100] = append(fields[netcdf.U100], float32(u))
				fields[netcdf.V100] = append(fields[netcdf.V100], float32(v))
				fields[netcdf.U10] = append(fields[netcdf.U10], float32(u*shear))
				fields[netcdf.V10] = append(fields[netcdf.V10], float32(v*shear))
			}
		}
	}
	return times, fields
}
