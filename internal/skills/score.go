package skills

import "math"

// NormalizeScore rounds a finite score to one decimal place, half away from
// zero. Non-finite input (NaN, ±Inf) reports ok=false: callers must keep
// "no score" distinct from a score of zero.
func NormalizeScore(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return round1(v), true
}

// NormalizeOptional is NormalizeScore for optional values. A nil or
// non-finite input yields nil.
func NormalizeOptional(v *float64) *float64 {
	if v == nil {
		return nil
	}
	n, ok := NormalizeScore(*v)
	if !ok {
		return nil
	}
	return &n
}

// round1 rounds to one decimal. math.Round already rounds half away from zero.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
