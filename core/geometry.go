package core

import (
	"fmt"
	"math"
)

// Point is a position on the arena in board units.
type Point struct {
	X, Y float64
}

// DistanceTo returns the straight-line distance between two points.
func (p Point) DistanceTo(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Arena is the open rectangle (0, Width) x (0, Height) patrolled by the agent.
// Integer grid cells used by the sensor scan live at (x, y) with
// 0 <= x < Width and 0 <= y < Height.
type Arena struct {
	Width  float64
	Height float64
}

// Contains reports whether p lies strictly inside the arena.
func (a Arena) Contains(p Point) bool {
	return p.X > 0 && p.X < a.Width && p.Y > 0 && p.Y < a.Height
}

// MinExtent returns the length of the arena's shorter side.
func (a Arena) MinExtent() float64 {
	return math.Min(a.Width, a.Height)
}

// InsideCircle reports whether point lies within radius of center. The
// boundary is inclusive. Axis offsets reject early, the Manhattan distance
// accepts early, and only the remaining band pays for the squared distance.
func InsideCircle(center, point Point, radius float64) bool {
	dx := math.Abs(point.X - center.X)
	dy := math.Abs(point.Y - center.Y)

	if dx > radius || dy > radius {
		return false
	}
	if dx+dy <= radius {
		return true
	}
	return dx*dx+dy*dy <= radius*radius
}

// Rand is the random source consumed by the planner. *math/rand/v2.Rand
// satisfies it.
type Rand interface {
	// IntN returns a uniform integer in [0, n).
	IntN(n int) int
}

// Stepper draws fixed-length moves in random whole-degree directions.
type Stepper struct {
	Arena      Arena
	StepLength float64
}

// MaxStepAttempts bounds the direction draws a single Step may make.
const MaxStepAttempts = 10000

// Step returns a point exactly StepLength away from `from`, in a direction
// drawn uniformly from the 361 whole-degree angles in [-180, 180], that lies
// strictly inside the arena. Directions are redrawn until one lands inside;
// the number of draws is returned alongside the point.
//
// Config.Validate keeps StepLength under half the arena's smallest side, which
// leaves at least one axis direction legal from every interior point. Step
// still gives up after MaxStepAttempts draws and reports ErrStepTooLong.
func (s Stepper) Step(rng Rand, from Point) (Point, int, error) {
	for attempts := 1; attempts <= MaxStepAttempts; attempts++ {
		deg := rng.IntN(361) - 180
		theta := float64(deg) * math.Pi / 180.0

		next := Point{
			X: from.X + s.StepLength*math.Cos(theta),
			Y: from.Y + s.StepLength*math.Sin(theta),
		}
		if s.Arena.Contains(next) {
			return next, attempts, nil
		}
	}
	return from, MaxStepAttempts, fmt.Errorf("%w: no direction of length %g stays inside %gx%g from (%g, %g)",
		ErrStepTooLong, s.StepLength, s.Arena.Width, s.Arena.Height, from.X, from.Y)
}
