package domain

import "math"

const (
	// DefaultShearExponent is the 1/7 power law used when the shear exponent
	// cannot be derived from the two reference heights.
	DefaultShearExponent = 1.0 / 7.0

	referenceHeightLow  = 10.0
	referenceHeightHigh = 100.0
)

// WindSpeed returns the magnitude of the wind vector (u, v).
func WindSpeed(u, v float64) float64 {
	return math.Hypot(u, v)
}

// ShearExponent derives the power law exponent from wind speeds at 10 m and 100 m.
func ShearExponent(w10, w100 float64) float64 {
	if w10 <= 0 || w100 <= 0 {
		return DefaultShearExponent
	}
	alpha := math.Log(w100/w10) / math.Log(referenceHeightHigh/referenceHeightLow)
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return DefaultShearExponent
	}
	return alpha
}

// WindSpeedAtHeight extrapolates the 100 m wind speed to height h.
func WindSpeedAtHeight(w100, alpha, h float64) float64 {
	if h == referenceHeightHigh {
		return w100
	}
	return w100 * math.Pow(h/referenceHeightHigh, alpha)
}
