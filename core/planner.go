package core

import "fmt"

// Path is the ordered sequence of agent positions, one per step.
type Path []Point

// Move is the outcome of one greedy step decision.
type Move struct {
	Position   Point
	Detections int
	Ledger     Ledger

	// Fallback is set when no sampled candidate detected anything and an
	// uncredited random move was taken instead.
	Fallback bool
	// Attempts is the largest number of direction draws any single
	// displacement needed while making this decision.
	Attempts int
}

// RunResult is the outcome of one full patrol run.
type RunResult struct {
	Path       Path
	Detections int
	Ledger     Ledger

	FallbackMoves int
	MaxAttempts   int
}

// Planner builds patrol paths by greedy single-step selection. A Planner is
// read-only after construction and may be shared by concurrent runs, each
// with its own Rand.
type Planner struct {
	sensor        Sensor
	stepper       Stepper
	start         Point
	trialsPerMove int
	phases        []Phase
	duration      int
}

// NewPlanner validates cfg and returns a planner for it.
func NewPlanner(cfg Config) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	phases := append([]Phase(nil), cfg.PhaseTable()...)
	return &Planner{
		sensor:        Sensor{Arena: cfg.Arena, Radius: cfg.SensorRadius},
		stepper:       Stepper{Arena: cfg.Arena, StepLength: cfg.StepLength},
		start:         cfg.Start,
		trialsPerMove: cfg.TrialsPerMove,
		phases:        phases,
		duration:      cfg.Duration,
	}, nil
}

// Phases returns a copy of the planner's phase table.
func (p *Planner) Phases() []Phase {
	return append([]Phase(nil), p.phases...)
}

// Duration returns the number of steps in a run.
func (p *Planner) Duration() int { return p.duration }

// Sensor returns the planner's sensor footprint.
func (p *Planner) Sensor() Sensor { return p.sensor }

// BestMove samples trialsPerMove candidate moves from `from` and keeps the one
// with the most new detections at step t. Every candidate is scanned against
// the same input ledger; the first candidate to reach the highest count wins.
// When no candidate detects anything, a fresh random move is returned with no
// credit and the input ledger.
func (p *Planner) BestMove(rng Rand, ledger Ledger, from Point, t int, speed SpeedClass) (Move, error) {
	best := Move{Position: from, Ledger: ledger}

	for i := 0; i < p.trialsPerMove; i++ {
		candidate, attempts, err := p.stepper.Step(rng, from)
		if err != nil {
			return Move{}, err
		}
		best.Attempts = max(best.Attempts, attempts)

		count, next, err := p.sensor.Scan(candidate, speed, t, ledger)
		if err != nil {
			return Move{}, err
		}
		if count > best.Detections {
			best.Position = candidate
			best.Detections = count
			best.Ledger = next
		}
	}

	if best.Detections == 0 {
		pos, attempts, err := p.stepper.Step(rng, from)
		if err != nil {
			return Move{}, err
		}
		best.Position = pos
		best.Ledger = ledger
		best.Fallback = true
		best.Attempts = max(best.Attempts, attempts)
	}
	return best, nil
}

// FlyPath runs every phase in order from the start position and an empty
// ledger, carrying position and ledger across phase boundaries.
func (p *Planner) FlyPath(rng Rand) (RunResult, error) {
	return p.flyPathFrom(rng, p.start, Ledger{})
}

// flyPathFrom is FlyPath with an explicit starting state.
func (p *Planner) flyPathFrom(rng Rand, start Point, ledger Ledger) (RunResult, error) {
	res := RunResult{
		Path:   make(Path, 0, p.duration),
		Ledger: ledger,
	}
	pos := start

	for _, ph := range p.phases {
		for t := ph.Start; t < ph.End; t++ {
			mv, err := p.BestMove(rng, res.Ledger, pos, t, ph.Speed)
			if err != nil {
				return RunResult{}, fmt.Errorf("step %d: %w", t, err)
			}
			pos = mv.Position
			res.Ledger = mv.Ledger
			res.Detections += mv.Detections
			res.Path = append(res.Path, pos)
			if mv.Fallback {
				res.FallbackMoves++
			}
			res.MaxAttempts = max(res.MaxAttempts, mv.Attempts)
		}
	}
	return res, nil
}
