package core

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func mustPlanner(t *testing.T, cfg Config) *Planner {
	t.Helper()
	p, err := NewPlanner(cfg)
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	return p
}

func nearly(a, b Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestBestMoveFirstStrictlyGreaterWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StepLength = 1
	cfg.TrialsPerMove = 3
	p := mustPlanner(t, cfg)

	// From (15, 4) at step 5 drones sit in column 15. East credits row 4,
	// north and south both score 3 against the shared starting ledger; north
	// is found first and must win.
	rng := &scriptedRand{vals: []int{angleDraw(0), angleDraw(90), angleDraw(-90)}}
	mv, err := p.BestMove(rng, Ledger{}, Point{X: 15, Y: 4}, 5, SpeedDrone)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if mv.Detections != 3 || mv.Fallback {
		t.Fatalf("move = %+v, want 3 detections without fallback", mv)
	}
	if !nearly(mv.Position, Point{X: 15, Y: 5}) {
		t.Fatalf("position = %v, want (15, 5)", mv.Position)
	}
	for _, row := range []int{4, 5, 6} {
		if !mv.Ledger.Contains(LedgerKey{Speed: SpeedDrone, Row: row}) {
			t.Fatalf("ledger missing row %d: %v", row, mv.Ledger.Keys())
		}
	}
	if mv.Ledger.Contains(LedgerKey{Speed: SpeedDrone, Row: 3}) {
		t.Fatalf("ledger carries a row from a losing candidate: %v", mv.Ledger.Keys())
	}
}

func TestBestMoveFallsBackToRandomMove(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StepLength = 1
	cfg.TrialsPerMove = 2
	p := mustPlanner(t, cfg)

	in := NewLedger(LedgerKey{Speed: SpeedAircraft, Row: 2})
	// Drones are at column 20 at step 0, outside the grid, so nothing scores.
	rng := &scriptedRand{vals: []int{angleDraw(0), angleDraw(0), angleDraw(90)}}
	mv, err := p.BestMove(rng, in, Point{X: 4, Y: 4}, 0, SpeedDrone)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if !mv.Fallback || mv.Detections != 0 {
		t.Fatalf("move = %+v, want uncredited fallback", mv)
	}
	if !nearly(mv.Position, Point{X: 4, Y: 5}) {
		t.Fatalf("fallback position = %v, want the third draw (4, 5)", mv.Position)
	}
	if mv.Ledger.Len() != 1 || !mv.Ledger.Includes(in) {
		t.Fatalf("fallback ledger = %v, want input ledger", mv.Ledger.Keys())
	}
}

func TestBestMoveNeverShrinksLedger(t *testing.T) {
	p := mustPlanner(t, DefaultConfig())
	rng := newTestRand(5)
	ledger := Ledger{}
	pos := Point{X: 4, Y: 4}

	for step := 0; step < 160; step++ {
		speed := []SpeedClass{SpeedAircraft, SpeedDrone, SpeedVessel}[step%3]
		mv, err := p.BestMove(rng, ledger, pos, step, speed)
		if err != nil {
			t.Fatalf("BestMove: %v", err)
		}
		if mv.Ledger.Len() < ledger.Len() || !mv.Ledger.Includes(ledger) {
			t.Fatalf("step %d: ledger shrank from %d to %d", step, ledger.Len(), mv.Ledger.Len())
		}
		if mv.Ledger.Len()-ledger.Len() != mv.Detections {
			t.Fatalf("step %d: ledger grew by %d for %d detections", step, mv.Ledger.Len()-ledger.Len(), mv.Detections)
		}
		pos, ledger = mv.Position, mv.Ledger
	}
}

func TestFlyPathReferenceScenario(t *testing.T) {
	cfg := DefaultConfig()
	p := mustPlanner(t, cfg)

	for seed := uint64(1); seed <= 25; seed++ {
		res, err := p.FlyPath(newTestRand(seed))
		if err != nil {
			t.Fatalf("FlyPath: %v", err)
		}
		if len(res.Path) != 160 {
			t.Fatalf("seed %d: path length = %d, want 160", seed, len(res.Path))
		}
		prev := cfg.Start
		for i, pos := range res.Path {
			if !cfg.Arena.Contains(pos) {
				t.Fatalf("seed %d: position %d %v outside arena", seed, i, pos)
			}
			if d := prev.DistanceTo(pos); math.Abs(d-cfg.StepLength) > 1e-9 {
				t.Fatalf("seed %d: step %d moved %v, want %v", seed, i, d, cfg.StepLength)
			}
			prev = pos
		}
		if res.Detections < 0 || res.Detections > 24 {
			t.Fatalf("seed %d: detections = %d, want within [0, 24]", seed, res.Detections)
		}
		if res.Ledger.Len() != res.Detections {
			t.Fatalf("seed %d: ledger holds %d tracks for %d detections", seed, res.Ledger.Len(), res.Detections)
		}
	}
}

func TestFlyPathDeterministicForSeed(t *testing.T) {
	p := mustPlanner(t, DefaultConfig())

	a, err := p.FlyPath(newTestRand(42))
	if err != nil {
		t.Fatalf("FlyPath: %v", err)
	}
	b, err := p.FlyPath(newTestRand(42))
	if err != nil {
		t.Fatalf("FlyPath: %v", err)
	}
	if !slices.Equal(a.Path, b.Path) || a.Detections != b.Detections {
		t.Fatalf("identical seeds produced different runs: %d vs %d detections", a.Detections, b.Detections)
	}
	if !slices.Equal(a.Ledger.Keys(), b.Ledger.Keys()) {
		t.Fatalf("identical seeds produced different ledgers")
	}
}

func TestFlyPathFromKeepsStartingLedger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Phases = []Phase{
		{Speed: SpeedDrone, Start: 0, End: 100},
		{Speed: SpeedVessel, Start: 100, End: 160},
	}
	p := mustPlanner(t, cfg)

	start := NewLedger(LedgerKey{Speed: SpeedDrone, Row: 3}, LedgerKey{Speed: SpeedDrone, Row: 4})
	res, err := p.flyPathFrom(newTestRand(9), Point{X: 10, Y: 4}, start)
	if err != nil {
		t.Fatalf("flyPathFrom: %v", err)
	}
	if !res.Ledger.Includes(start) {
		t.Fatalf("final ledger lost starting tracks")
	}
	if res.Ledger.Len() != start.Len()+res.Detections {
		t.Fatalf("ledger = %d tracks, want %d", res.Ledger.Len(), start.Len()+res.Detections)
	}
	if len(res.Path) != 160 {
		t.Fatalf("path length = %d, want 160", len(res.Path))
	}
}

func TestNewPlannerRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero width", func(c *Config) { c.Arena.Width = 0 }, ErrInvalidArena},
		{"start outside", func(c *Config) { c.Start = Point{X: 20, Y: 4} }, ErrStartOutside},
		{"zero radius", func(c *Config) { c.SensorRadius = 0 }, ErrInvalidRadius},
		{"step too long", func(c *Config) { c.StepLength = 8 }, ErrStepTooLong},
		{"step over half extent", func(c *Config) { c.StepLength = 4 }, ErrStepTooLong},
		{"no legal direction from centre", func(c *Config) {
			c.Arena = Arena{Width: 8, Height: 8}
			c.StepLength = 7
		}, ErrStepTooLong},
		{"negative step", func(c *Config) { c.StepLength = -1 }, ErrStepTooLong},
		{"no trials", func(c *Config) { c.TrialsPerMove = 0 }, ErrInvalidTrials},
		{"no duration", func(c *Config) { c.Duration = 0 }, ErrInvalidDuration},
		{"zero speed phase", func(c *Config) {
			c.Phases = []Phase{{Speed: 0, Start: 0, End: 160}}
		}, ErrInvalidSpeed},
		{"gap in phases", func(c *Config) {
			c.Phases = []Phase{{Speed: 1, Start: 0, End: 50}, {Speed: 1, Start: 60, End: 160}}
		}, ErrInvalidPhases},
		{"short phases", func(c *Config) {
			c.Phases = []Phase{{Speed: 1, Start: 0, End: 100}}
		}, ErrInvalidPhases},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if _, err := NewPlanner(cfg); !errors.Is(err, tc.want) {
				t.Fatalf("NewPlanner error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDefaultPhases(t *testing.T) {
	want := []Phase{
		{Speed: SpeedAircraft, Start: 0, End: 5},
		{Speed: SpeedDrone, Start: 5, End: 25},
		{Speed: SpeedVessel, Start: 25, End: 160},
	}
	got := DefaultPhases(160)
	if !slices.Equal(got, want) {
		t.Fatalf("DefaultPhases(160) = %v, want %v", got, want)
	}
	if err := ValidatePhases(got, 160); err != nil {
		t.Fatalf("ValidatePhases: %v", err)
	}

	// Short runs leave the early phases empty but still tile the duration.
	short := DefaultPhases(7)
	if short[0].Len() != 0 || short[1].Len() != 0 || short[2].Len() != 7 {
		t.Fatalf("DefaultPhases(7) = %v", short)
	}
	if err := ValidatePhases(short, 7); err != nil {
		t.Fatalf("ValidatePhases(short): %v", err)
	}
}
