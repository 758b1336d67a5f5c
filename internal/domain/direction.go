package domain

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// NumDirectionSectors is the number of equal sectors of a wind rose.
const NumDirectionSectors = 36

// WindDirection returns the direction the wind vector (u, v) points to in
// radians, counter-clockwise from east, in [-π, π].
func WindDirection(u, v float64) float64 {
	return math.Atan2(v, u)
}

// WindRose counts hours per wind direction sector. Sector i covers
// [-π + i·w, -π + (i+1)·w) with w = 2π/NumDirectionSectors.
type WindRose struct {
	Hours []float64
}

// NewWindRose returns an empty rose.
func NewWindRose() *WindRose {
	return &WindRose{Hours: make([]float64, NumDirectionSectors)}
}

// Add counts one hour of wind. Calm or missing values are ignored.
func (r *WindRose) Add(u, v float64) {
	if math.IsNaN(u) || math.IsNaN(v) || (u == 0 && v == 0) {
		return
	}
	r.Hours[sectorOf(WindDirection(u, v))]++
}

// Prevailing returns the center of the sector with the most hours, NaN for an
// empty rose. Ties go to the first sector.
func (r *WindRose) Prevailing() float64 {
	if floats.Sum(r.Hours) == 0 {
		return math.NaN()
	}
	return SectorCenter(floats.MaxIdx(r.Hours))
}

// SectorCenter returns the direction at the center of sector i.
func SectorCenter(i int) float64 {
	w := 2 * math.Pi / NumDirectionSectors
	return -math.Pi + (float64(i)+0.5)*w
}

func sectorOf(direction float64) int {
	i := int((direction + math.Pi) / (2 * math.Pi) * NumDirectionSectors)
	return min(max(i, 0), NumDirectionSectors-1)
}

// Bearing returns the direction from a to b in radians, counter-clockwise from
// east, on a local equirectangular projection. It shares the orientation of
// WindDirection.
func Bearing(a, b Location) float64 {
	meanLat := (a.Lat + b.Lat) / 2 * math.Pi / 180
	dx := (b.Lon - a.Lon) * math.Cos(meanLat)
	dy := b.Lat - a.Lat
	return math.Atan2(dy, dx)
}

// Spacing is the minimum distance kept between new turbines. Across the
// prevailing wind it is CrosswindKM; along the wind it is stretched by
// AlongWindRatio, so every turbine is surrounded by an elliptic zone aligned
// with its prevailing wind direction.
type Spacing struct {
	CrosswindKM    float64
	AlongWindRatio float64   // values below 1 are treated as 1
	PrevailingRad  []float64 // per location; nil or NaN entries give a circular zone
}

// Enabled reports whether any spacing is required. A zero spacing selects
// every location.
func (s Spacing) Enabled() bool {
	return s.CrosswindKM > 0
}

// RadiusKM returns the extent of the zone around a turbine with prevailing
// wind direction prevailing towards bearing.
func (s Spacing) RadiusKM(bearing, prevailing float64) float64 {
	b := s.CrosswindKM
	ratio := s.AlongWindRatio
	if ratio <= 1 || math.IsNaN(prevailing) {
		return b
	}
	a := b * ratio
	phi := bearing - prevailing
	return a * b / math.Hypot(b*math.Cos(phi), a*math.Sin(phi))
}

// RequiredKM returns the distance locations i and j must keep: the larger of
// the two zones measured along the line connecting them.
func (s Spacing) RequiredKM(locations []Location, i, j int) float64 {
	if s.AlongWindRatio <= 1 || s.PrevailingRad == nil {
		return s.CrosswindKM
	}
	ri := s.RadiusKM(Bearing(locations[i], locations[j]), s.PrevailingRad[i])
	rj := s.RadiusKM(Bearing(locations[j], locations[i]), s.PrevailingRad[j])
	return math.Max(ri, rj)
}

// MaxKM is the largest distance the spacing can require in any direction.
func (s Spacing) MaxKM() float64 {
	return s.CrosswindKM * math.Max(1, s.AlongWindRatio)
}
