package domain

import (
	"fmt"
	"sort"
)

// CalcOptimalLocations selects locations for new turbines of one model.
//
// meanPowerKW holds the expected mean output of the model at every location.
// Within each cluster locations are visited in order of decreasing power and
// selected when they keep the spacing to every location selected before. A
// disabled spacing selects every location.
func CalcOptimalLocations(locations []Location, clusters []int, meanPowerKW []float64, spacing Spacing) ([]bool, error) {
	if len(clusters) != len(locations) || len(meanPowerKW) != len(locations) {
		return nil, fmt.Errorf("calc optimal locations: length mismatch: %d locations, %d clusters, %d power values",
			len(locations), len(clusters), len(meanPowerKW))
	}
	if spacing.PrevailingRad != nil && len(spacing.PrevailingRad) != len(locations) {
		return nil, fmt.Errorf("calc optimal locations: %d prevailing directions for %d locations",
			len(spacing.PrevailingRad), len(locations))
	}

	optimal := make([]bool, len(locations))
	if !spacing.Enabled() {
		for i := range optimal {
			optimal[i] = true
		}
		return optimal, nil
	}

	for _, members := range GroupByCluster(clusters) {
		order := append([]int(nil), members...)
		sort.SliceStable(order, func(a, b int) bool {
			return meanPowerKW[order[a]] > meanPowerKW[order[b]]
		})

		var selected []int
		for _, i := range order {
			ok := true
			for _, j := range selected {
				if HaversineKM(locations[i], locations[j]) < spacing.RequiredKM(locations, i, j) {
					ok = false
					break
				}
			}
			if ok {
				selected = append(selected, i)
				optimal[i] = true
			}
		}
	}
	return optimal, nil
}
