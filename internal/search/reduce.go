package search

import (
	"math"

	"github.com/signalsfoundry/patrol-search/core"
)

// Better reports whether candidate should replace incumbent. Only a strictly
// higher detection count wins, so among equal runs the earliest is kept; the
// same rule applies to candidate moves inside the planner.
func Better(candidate, incumbent core.RunResult) bool {
	return candidate.Detections > incumbent.Detections
}

// BestRun folds runs in order and returns the winner and its index. An empty
// slice yields the zero RunResult and -1.
func BestRun(runs []core.RunResult) (core.RunResult, int) {
	if len(runs) == 0 {
		return core.RunResult{}, -1
	}
	best, idx := runs[0], 0
	for i, r := range runs[1:] {
		if Better(r, best) {
			best, idx = r, i+1
		}
	}
	return best, idx
}

// BestBatch folds batch results in order using the same rule as BestRun.
func BestBatch(batches []BatchResult) BatchResult {
	if len(batches) == 0 {
		return BatchResult{Index: -1}
	}
	best := batches[0]
	for _, b := range batches[1:] {
		if b.Probability > best.Probability {
			best = b
		}
	}
	return best
}

// Summarize returns the mean and sample standard deviation of values. The
// deviation is zero when fewer than two values are given.
func Summarize(values []float64) (mean, stddev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)
	if n < 2 {
		return mean, 0
	}

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n-1))
}
