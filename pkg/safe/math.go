package safe

import "math"

// NonNeg clamps a value to zero from below. Depth feeds occasionally carry
// negative volumes after venue corrections; they must never enter a weighted
// sum.
func NonNeg(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// FloorEps returns v floored to eps when v is smaller than eps or not finite.
// Used for denominators (baseline volatility, weighted volume).
func FloorEps(v, eps float64) float64 {
	if math.IsNaN(v) || v < eps {
		return eps
	}
	return v
}

// Finite reports whether v is a usable number (not NaN, not Inf).
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
