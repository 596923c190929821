package search

import (
	"math"
	"testing"

	"github.com/signalsfoundry/patrol-search/core"
)

func runWith(detections int, marker float64) core.RunResult {
	return core.RunResult{
		Detections: detections,
		Path:       core.Path{{X: marker, Y: 1}},
	}
}

func TestBestRunKeepsEarliestOnTie(t *testing.T) {
	runs := []core.RunResult{runWith(3, 1), runWith(7, 2), runWith(5, 3), runWith(7, 4)}
	best, idx := BestRun(runs)
	if idx != 1 || best.Path[0].X != 2 {
		t.Fatalf("BestRun picked index %d, want the first 7 at index 1", idx)
	}
}

func TestBestRunEmpty(t *testing.T) {
	if _, idx := BestRun(nil); idx != -1 {
		t.Fatalf("BestRun(nil) index = %d, want -1", idx)
	}
}

func TestBestRunAllZero(t *testing.T) {
	_, idx := BestRun([]core.RunResult{runWith(0, 1), runWith(0, 2)})
	if idx != 0 {
		t.Fatalf("BestRun of all-zero runs = %d, want 0", idx)
	}
}

func TestBestBatchKeepsEarliestOnTie(t *testing.T) {
	batches := []BatchResult{
		{Index: 0, Probability: 0.25},
		{Index: 1, Probability: 0.5},
		{Index: 2, Probability: 0.5},
	}
	if got := BestBatch(batches); got.Index != 1 {
		t.Fatalf("BestBatch = batch %d, want 1", got.Index)
	}
	if got := BestBatch(nil); got.Index != -1 {
		t.Fatalf("BestBatch(nil) index = %d, want -1", got.Index)
	}
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		name      string
		values    []float64
		mean, std float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{0.5}, 0.5, 0},
		{"pair", []float64{0.25, 0.75}, 0.5, math.Sqrt(0.125)},
		{"constant", []float64{0.5, 0.5, 0.5}, 0.5, 0},
		{"spread", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 5, math.Sqrt(32.0 / 7.0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mean, std := Summarize(tc.values)
			if math.Abs(mean-tc.mean) > 1e-12 || math.Abs(std-tc.std) > 1e-12 {
				t.Fatalf("Summarize(%v) = (%v, %v), want (%v, %v)", tc.values, mean, std, tc.mean, tc.std)
			}
		})
	}
}
