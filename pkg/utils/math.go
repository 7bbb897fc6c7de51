package utils

import "math"

// ClampFloat64 clamps a float64 value between min and max
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// MaxAbsIndex returns the index and magnitude of the element with the largest
// absolute value. The first index wins on ties; an empty slice yields (-1, 0).
func MaxAbsIndex(values []float64) (int, float64) {
	idx := -1
	best := 0.0
	for i, v := range values {
		if a := math.Abs(v); idx < 0 || a > best {
			idx = i
			best = a
		}
	}
	return idx, best
}

// RelativeChange returns (to - from) / max(from, floor) * 100.
// Only the divide-by-zero case is guarded; sign and magnitude are kept.
func RelativeChange(from, to, floor float64) float64 {
	return (to - from) / math.Max(from, floor) * 100
}
