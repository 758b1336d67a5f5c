package domain

import (
	"fmt"
	"sort"
)

// HoursPerYear converts mean power to annual energy.
const HoursPerYear = 365 * 24

// RepowerStep is one point of a repowering curve.
type RepowerStep struct {
	NumNewTurbines  int
	NumTurbines     int
	PowerGeneration float64 // GWh per year
}

// RepowerInput bundles the per-location quantities for one (model, factor)
// scenario.
type RepowerInput struct {
	Clusters        []int
	IsOptimal       []bool
	ExistingPowerKW []float64 // mean power of the existing turbine at each location
	NewPowerKW      []float64 // mean power of the new model at each location
}

// CalcRepowerPotential builds the cumulative repowering curve of a scenario.
//
// Step 0 is the existing fleet. Clusters are then repowered one at a time in
// order of decreasing gain in annual generation: the existing turbines of the
// cluster are removed and new turbines are placed at its optimal locations.
func CalcRepowerPotential(in RepowerInput) ([]RepowerStep, error) {
	n := len(in.Clusters)
	if len(in.IsOptimal) != n || len(in.ExistingPowerKW) != n || len(in.NewPowerKW) != n {
		return nil, fmt.Errorf("calc repower potential: length mismatch")
	}

	type clusterGain struct {
		id      int
		numOld  int
		numNew  int
		gainGWh float64
	}

	groups := GroupByCluster(in.Clusters)
	gains := make([]clusterGain, 0, len(groups))
	total := 0.0
	for id, members := range groups {
		g := clusterGain{id: id, numOld: len(members)}
		for _, i := range members {
			existing := kwToGWhPerYear(in.ExistingPowerKW[i])
			total += existing
			g.gainGWh -= existing
			if in.IsOptimal[i] {
				g.numNew++
				g.gainGWh += kwToGWhPerYear(in.NewPowerKW[i])
			}
		}
		gains = append(gains, g)
	}

	sort.SliceStable(gains, func(a, b int) bool {
		if gains[a].gainGWh != gains[b].gainGWh {
			return gains[a].gainGWh > gains[b].gainGWh
		}
		return gains[a].id < gains[b].id
	})

	steps := make([]RepowerStep, 0, len(gains)+1)
	current := RepowerStep{NumTurbines: n, PowerGeneration: total}
	steps = append(steps, current)
	for _, g := range gains {
		current.NumNewTurbines += g.numNew
		current.NumTurbines += g.numNew - g.numOld
		current.PowerGeneration += g.gainGWh
		steps = append(steps, current)
	}
	return steps, nil
}

func kwToGWhPerYear(kw float64) float64 {
	return kw * HoursPerYear * 1e-6
}
