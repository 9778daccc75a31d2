// Package detector implements the anomaly scoring engine: a bank of
// pure feature functions, a must-flag rule set, and a weighted scorer
// that turns one trade plus its market and historical context into a
// bounded suspicion score with human-readable reasons.
package detector

// Normalize maps a value against a reference median onto [0,1) with a
// saturating curve: value == median gives 0.5, value == 4x median gives
// 0.8, value == 9x median gives 0.9. A non-positive median means the
// comparison is undefined and the result is 0.
func Normalize(value, median float64) float64 {
	if median <= 0 {
		return 0
	}
	return 1 - 1/(1+value/median)
}

// clamp01 bounds a score to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
