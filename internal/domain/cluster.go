package domain

import "math"

// CalcClusters groups locations that are connected by chains of neighbours
// closer than thresholdKM. Cluster ids are dense, start at 0 and are ordered by
// the first location of each cluster.
func CalcClusters(locations []Location, thresholdKM float64) []int {
	parent := make([]int, len(locations))
	for i := range parent {
		parent[i] = i
	}

	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	if thresholdKM > 0 {
		index := NewSpatialIndex(locations)
		for i, loc := range locations {
			for _, j := range index.Within(loc, thresholdKM) {
				if j != i && HaversineKM(loc, locations[j]) < thresholdKM {
					union(i, j)
				}
			}
		}
	}

	ids := make(map[int]int)
	clusters := make([]int, len(locations))
	for i := range locations {
		root := find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		clusters[i] = id
	}
	return clusters
}

// ClusterThresholdKM returns the largest spacing any of the models requires
// for any of the distance factors in any direction. Clusters built with this
// threshold never interact with each other for any (model, factor)
// combination.
func ClusterThresholdKM(models []TurbineModel, distanceFactors []float64, alongWindRatio float64) float64 {
	threshold := 0.0
	for _, m := range models {
		for _, f := range distanceFactors {
			s := Spacing{CrosswindKM: m.MinDistanceKM(f), AlongWindRatio: alongWindRatio}
			threshold = math.Max(threshold, s.MaxKM())
		}
	}
	return threshold
}

// GroupByCluster returns the member indices of every cluster id.
func GroupByCluster(clusters []int) [][]int {
	n := 0
	for _, c := range clusters {
		if c+1 > n {
			n = c + 1
		}
	}
	groups := make([][]int, n)
	for i, c := range clusters {
		groups[c] = append(groups[c], i)
	}
	return groups
}
