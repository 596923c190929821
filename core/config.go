package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArena    = errors.New("invalid arena")
	ErrStartOutside    = errors.New("start position outside arena")
	ErrInvalidRadius   = errors.New("invalid sensor radius")
	ErrStepTooLong     = errors.New("invalid step length")
	ErrInvalidSpeed    = errors.New("invalid speed class")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidTrials   = errors.New("invalid trials per move")
	ErrInvalidPhases   = errors.New("invalid phase table")
)

// DefaultTrialsPerMove is the number of candidate moves sampled per step.
const DefaultTrialsPerMove = 10

// Config holds the fixed parameters of one patrol run.
type Config struct {
	Arena         Arena
	Start         Point
	SensorRadius  float64
	StepLength    float64
	TrialsPerMove int
	Duration      int

	// Phases assigns speed classes to step ranges. Empty means
	// DefaultPhases(Duration).
	Phases []Phase
}

// DefaultConfig returns the reference scenario: a 20x8 arena (560 km by
// 240 km), 160 steps, starting at (4, 4), moving 0.933 units per step with a
// sensor radius of one unit.
func DefaultConfig() Config {
	return Config{
		Arena:         Arena{Width: 20, Height: 8},
		Start:         Point{X: 4, Y: 4},
		SensorRadius:  1,
		StepLength:    0.933,
		TrialsPerMove: DefaultTrialsPerMove,
		Duration:      160,
	}
}

// PhaseTable returns the configured phases, or the default split when none
// are set.
func (c Config) PhaseTable() []Phase {
	if len(c.Phases) == 0 {
		return DefaultPhases(c.Duration)
	}
	return c.Phases
}

// Validate checks the preconditions the planner relies on. The step length
// must stay under half the arena's smallest side: from any interior point
// the axis move toward the centre is then inside, so a legal whole-degree
// direction always exists.
func (c Config) Validate() error {
	if !(c.Arena.Width > 0) || !(c.Arena.Height > 0) {
		return fmt.Errorf("%w: %gx%g", ErrInvalidArena, c.Arena.Width, c.Arena.Height)
	}
	if !c.Arena.Contains(c.Start) {
		return fmt.Errorf("%w: (%g, %g)", ErrStartOutside, c.Start.X, c.Start.Y)
	}
	if !(c.SensorRadius > 0) {
		return fmt.Errorf("%w: %g", ErrInvalidRadius, c.SensorRadius)
	}
	if limit := c.Arena.MinExtent() / 2; !(c.StepLength > 0) || c.StepLength >= limit {
		return fmt.Errorf("%w: %g must be in (0, %g)", ErrStepTooLong, c.StepLength, limit)
	}
	if c.TrialsPerMove <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTrials, c.TrialsPerMove)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, c.Duration)
	}
	return ValidatePhases(c.PhaseTable(), c.Duration)
}
