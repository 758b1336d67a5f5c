package domain

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// maxSearchRadiusKM is half the Earth's circumference; beyond it every point
// has been considered.
const maxSearchRadiusKM = math.Pi * EarthRadiusKM

// site is a location stored in the spatial index together with its position
// in the input slice.
type site struct {
	geom.Point
	index int
}

// SpatialIndex answers nearest-neighbour and radius queries over a fixed set
// of locations.
type SpatialIndex struct {
	locations []Location
	tree      *rtree.Rtree
}

// NewSpatialIndex builds an R-tree over locations. Longitude is used as X and
// latitude as Y.
func NewSpatialIndex(locations []Location) *SpatialIndex {
	tree := rtree.NewTree(25, 50)
	for i, loc := range locations {
		tree.Insert(&site{Point: geom.Point{X: loc.Lon, Y: loc.Lat}, index: i})
	}
	return &SpatialIndex{locations: locations, tree: tree}
}

// Within returns the indices of all locations at most radiusKM away from loc,
// including loc itself if it is part of the index.
func (s *SpatialIndex) Within(loc Location, radiusKM float64) []int {
	var out []int
	for _, g := range s.tree.SearchIntersect(searchBounds(loc, radiusKM)) {
		st, ok := g.(*site)
		if !ok {
			continue
		}
		if HaversineKM(loc, s.locations[st.index]) <= radiusKM {
			out = append(out, st.index)
		}
	}
	return out
}

// Nearest returns the index of and distance to the closest location other
// than the one at index self. It returns -1 and NaN if there is none.
func (s *SpatialIndex) Nearest(self int) (int, float64) {
	loc := s.locations[self]
	for radius := 1.0; ; radius *= 4 {
		best, bestDist := -1, math.Inf(1)
		for _, g := range s.tree.SearchIntersect(searchBounds(loc, radius)) {
			st, ok := g.(*site)
			if !ok || st.index == self {
				continue
			}
			d := HaversineKM(loc, s.locations[st.index])
			if d < bestDist || (d == bestDist && st.index < best) {
				best, bestDist = st.index, d
			}
		}
		// A candidate inside the search radius cannot be beaten by points
		// outside of the searched box.
		if best >= 0 && bestDist <= radius {
			return best, bestDist
		}
		if radius >= maxSearchRadiusKM {
			if best >= 0 {
				return best, bestDist
			}
			return -1, math.NaN()
		}
	}
}

// searchBounds returns a lon/lat box that contains every point within
// radiusKM of loc.
func searchBounds(loc Location, radiusKM float64) *geom.Bounds {
	dLat := KMToDegreesLat(radiusKM)
	maxAbsLat := math.Min(90, math.Abs(loc.Lat)+dLat)
	dLon := KMToDegreesLon(radiusKM, maxAbsLat)
	return &geom.Bounds{
		Min: geom.Point{X: loc.Lon - dLon, Y: loc.Lat - dLat},
		Max: geom.Point{X: loc.Lon + dLon, Y: loc.Lat + dLat},
	}
}

// CalcMinDistances returns, for every location, the distance in kilometers to
// the closest other location. A single location yields NaN.
func CalcMinDistances(locations []Location) []float64 {
	index := NewSpatialIndex(locations)
	out := make([]float64, len(locations))
	for i := range locations {
		_, out[i] = index.Nearest(i)
	}
	return out
}
