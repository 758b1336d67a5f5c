package domain

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusKM is the mean Earth radius used for great circle distances.
	EarthRadiusKM = 6371.0

	// MeterToKM converts meters to kilometers.
	MeterToKM = 1e-3

	// ERA5GridResolution is the horizontal resolution of ERA5 single levels in degrees.
	ERA5GridResolution = 0.25
)

// HaversineKM returns the great circle distance between a and b in kilometers.
func HaversineKM(a, b Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// KMToDegreesLat converts a north-south distance to degrees latitude.
func KMToDegreesLat(km float64) float64 {
	return km / (EarthRadiusKM * 2 * math.Pi) * 360
}

// KMToDegreesLon converts an east-west distance at the given latitude to
// degrees longitude. Near the poles the result is capped at 360.
func KMToDegreesLon(km, lat float64) float64 {
	c := math.Cos(lat * math.Pi / 180)
	if c < 1e-6 {
		return 360
	}
	return math.Min(360, KMToDegreesLat(km)/c)
}

// BoundingBox is an axis-aligned lat/lon box.
type BoundingBox struct {
	North float64
	West  float64
	South float64
	East  float64
}

// CDSArea formats the box in the North/West/South/East order expected by the
// CDS API "area" keyword.
func (b BoundingBox) CDSArea() string {
	return fmt.Sprintf("%g/%g/%g/%g", b.North, b.West, b.South, b.East)
}

// Contains reports whether loc lies inside the box, borders included.
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat <= b.North && loc.Lat >= b.South && loc.Lon >= b.West && loc.Lon <= b.East
}

// CalcBoundingBox returns the smallest box containing all turbines, expanded
// outward to the ERA5 grid so that every turbine has surrounding grid points.
func CalcBoundingBox(turbines []Turbine) (BoundingBox, error) {
	if len(turbines) == 0 {
		return BoundingBox{}, ErrNoTurbines
	}

	box := BoundingBox{
		North: math.Inf(-1),
		West:  math.Inf(1),
		South: math.Inf(1),
		East:  math.Inf(-1),
	}
	for _, t := range turbines {
		box.North = math.Max(box.North, t.Lat)
		box.South = math.Min(box.South, t.Lat)
		box.West = math.Min(box.West, t.Lon)
		box.East = math.Max(box.East, t.Lon)
	}

	r := ERA5GridResolution
	box.North = math.Ceil(box.North/r) * r
	box.South = math.Floor(box.South/r) * r
	box.West = math.Floor(box.West/r) * r
	box.East = math.Ceil(box.East/r) * r
	return box, nil
}
