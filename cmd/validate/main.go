// Command validate checks the consistency of the result store written by the
// calculation targets: minimum distances, optimal location spacing and
// repowering curves.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/wind-repower-usa/internal/config"
	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/couchcryptid/wind-repower-usa/internal/store"
)

// relTolerance bounds float differences between stored and recomputed values.
const relTolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// scenarioKey identifies one (model, distance factor) combination.
type scenarioKey struct {
	model  string
	factor float64
}

// results holds everything loaded from the turbine file and the store.
type results struct {
	turbines     []domain.Turbine
	minDistances []float64
	clusters     []int
	existingKW   []float64
	energy       []store.SimulatedEnergy
	optimal      map[scenarioKey][]bool
	curves       map[scenarioKey][]store.RepowerPotential
}

func main() {
	dataDir := flag.String("data-dir", "data", "data directory the pipeline wrote to")
	flag.Parse()

	if code := run(&config.Config{DataDir: *dataDir}); code != 0 {
		os.Exit(code)
	}
}

func run(cfg *config.Config) int {
	fmt.Println("=== Repower Result Validation ===")
	fmt.Println()

	res, err := load(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateMinDistances(res),
		validateOptimalSpacing(res),
		validateRepowerCurves(res),
		validateSimulatedEnergy(res),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d turbines, %d scenarios, %d months\n",
		len(res.turbines), len(res.curves), len(res.energy))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func load(ctx context.Context, cfg *config.Config) (*results, error) {
	f, err := os.Open(cfg.TurbinesFile())
	if err != nil {
		return nil, fmt.Errorf("open turbines: %w", err)
	}
	turbines, rejected, err := domain.ParseTurbines(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("parse turbines: %w", err)
	}
	if rejected > 0 {
		fmt.Printf("Skipped %d turbine rows without coordinates\n", rejected)
	}

	if _, err := os.Stat(cfg.DBPath()); err != nil {
		return nil, fmt.Errorf("result store: %w", err)
	}
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	defer st.Close()

	res := &results{
		turbines: turbines,
		optimal:  make(map[scenarioKey][]bool),
		curves:   make(map[scenarioKey][]store.RepowerPotential),
	}
	if res.minDistances, err = st.MinDistances(ctx); err != nil {
		return nil, err
	}
	if res.clusters, err = st.Clusters(ctx); err != nil {
		return nil, err
	}
	if res.existingKW, err = st.EnergyPerLocation(ctx, domain.ExistingModelName); err != nil {
		return nil, err
	}
	if res.energy, err = st.SimulatedEnergy(ctx); err != nil && !errors.Is(err, store.ErrNoResults) {
		return nil, err
	}

	rows, err := st.RepowerPotentials(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		key := scenarioKey{model: r.Model, factor: r.DistanceFactor}
		res.curves[key] = append(res.curves[key], r)
	}
	for key := range res.curves {
		optimal, err := st.OptimalLocations(ctx, key.model, key.factor, len(turbines))
		if err != nil {
			return nil, err
		}
		res.optimal[key] = optimal
	}
	return res, nil
}

// ── Phase 1: Min distances ──
// Distances must be non-negative, one per turbine, and no smaller than the
// distance to any other turbine.

func validateMinDistances(res *results) *phase {
	p := &phase{name: "Min distances"}
	fmt.Println("Phase 1: Min distances")

	if len(res.minDistances) != len(res.turbines) {
		p.errorf("%d distances for %d turbines", len(res.minDistances), len(res.turbines))
		return p
	}
	locations := domain.Locations(res.turbines)
	for i, d := range res.minDistances {
		if math.IsNaN(d) {
			if len(res.turbines) > 1 {
				p.errorf("turbine %d: missing distance", i)
			}
			continue
		}
		if d < 0 {
			p.errorf("turbine %d: negative distance %g", i, d)
		}
	}

	// Spot check a sample with a brute force search.
	step := max(1, len(locations)/50)
	for i := 0; i < len(locations); i += step {
		want := math.Inf(1)
		for j := range locations {
			if j != i {
				want = math.Min(want, domain.HaversineKM(locations[i], locations[j]))
			}
		}
		if got := res.minDistances[i]; !math.IsInf(want, 1) && !approxEqual(got, want) {
			p.errorf("turbine %d: stored %g km, brute force %g km", i, got, want)
		}
	}
	return p
}

// ── Phase 2: Optimal location spacing ──
// Selected locations within a cluster keep at least the crosswind spacing. The
// along-wind stretch only adds to it, and factor 0 requires nothing.

func validateOptimalSpacing(res *results) *phase {
	p := &phase{name: "Optimal location spacing"}
	fmt.Println("Phase 2: Optimal location spacing")

	if len(res.clusters) != len(res.turbines) {
		p.errorf("%d cluster labels for %d turbines", len(res.clusters), len(res.turbines))
		return p
	}
	locations := domain.Locations(res.turbines)
	groups := domain.GroupByCluster(res.clusters)
	for key, optimal := range res.optimal {
		model, err := domain.TurbineModelByFileName(key.model)
		if err != nil {
			p.errorf("%s: %v", key.model, err)
			continue
		}
		minKM := model.MinDistanceKM(key.factor)
		for _, members := range groups {
			for a, i := range members {
				if !optimal[i] {
					continue
				}
				for _, j := range members[a+1:] {
					if optimal[j] && domain.HaversineKM(locations[i], locations[j]) < minKM*(1-relTolerance) {
						p.errorf("%s/%g: locations %d and %d closer than %.3f km", key.model, key.factor, i, j, minKM)
					}
				}
			}
		}
	}
	return p
}

// ── Phase 3: Repower curves ──
// Step 0 is the existing fleet and the turbine count never drops below the
// number of new turbines.

func validateRepowerCurves(res *results) *phase {
	p := &phase{name: "Repower curves"}
	fmt.Println("Phase 3: Repower curves")

	fleetGWh := 0.0
	for _, kw := range res.existingKW {
		fleetGWh += kw * domain.HoursPerYear * 1e-6
	}
	numClusters := len(domain.GroupByCluster(res.clusters))

	for key, steps := range res.curves {
		name := fmt.Sprintf("%s/%g", key.model, key.factor)
		if len(steps) == 0 {
			p.errorf("%s: empty curve", name)
			continue
		}
		first := steps[0]
		if first.Step != 0 || first.NumNewTurbines != 0 || first.NumTurbines != len(res.turbines) {
			p.errorf("%s: step 0 is %d new of %d turbines, expected 0 of %d",
				name, first.NumNewTurbines, first.NumTurbines, len(res.turbines))
		}
		if !approxEqual(first.PowerGeneration, fleetGWh) {
			p.errorf("%s: step 0 generates %g GWh/yr, existing fleet %g GWh/yr", name, first.PowerGeneration, fleetGWh)
		}
		if len(steps) != numClusters+1 {
			p.errorf("%s: %d steps for %d clusters", name, len(steps), numClusters)
		}
		last := steps[len(steps)-1]
		if optimal, ok := res.optimal[key]; ok && last.NumNewTurbines != countTrue(optimal) {
			p.errorf("%s: final step has %d new turbines, %d optimal locations", name, last.NumNewTurbines, countTrue(optimal))
		}
		for i, s := range steps {
			if s.Step != i {
				p.errorf("%s: step %d stored as %d", name, i, s.Step)
			}
			if s.NumNewTurbines > s.NumTurbines {
				p.errorf("%s: step %d has more new turbines than turbines", name, i)
			}
		}
	}
	return p
}

// ── Phase 4: Simulated energy ──

func validateSimulatedEnergy(res *results) *phase {
	p := &phase{name: "Simulated energy"}
	fmt.Println("Phase 4: Simulated energy")

	if len(res.energy) == 0 {
		p.errorf("no monthly generation stored")
	}
	for _, e := range res.energy {
		if math.IsNaN(e.GWh) || e.GWh < 0 {
			p.errorf("%s: invalid generation %g GWh", e.Month, e.GWh)
		}
	}
	return p
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= relTolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
