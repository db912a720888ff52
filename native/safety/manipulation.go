package safety

import "math"

// ManipulationSigmaThreshold is the rolling z-score beyond which an alert
// fires; manipulation scoring never halts a market on its own.
const ManipulationSigmaThreshold = 3.0

// ManipulationScore computes a 0-100 score from the z-score of the latest
// sample against the rolling mean/variance of the supplied history (up to
// the 100-sample window). It never returns an error: an empty or
// single-point history yields a score of 0.
func ManipulationScore(history []float64) int {
	n := len(history)
	if n < 2 {
		return 0
	}
	latest := history[n-1]
	rest := history[:n-1]

	mean := 0.0
	for _, v := range rest {
		mean += v
	}
	mean /= float64(len(rest))

	variance := 0.0
	for _, v := range rest {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(rest))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		if latest == mean {
			return 0
		}
		return 100
	}

	z := math.Abs(latest-mean) / stddev
	score := int(math.Min(100, (z/ManipulationSigmaThreshold)*100))
	if score < 0 {
		score = 0
	}
	return score
}

// Alerts reports whether the score crosses the alerting threshold.
func Alerts(score int) bool {
	return score >= 100
}
