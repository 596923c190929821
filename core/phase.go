package core

import "fmt"

// Phase is a contiguous step range [Start, End) during which the agent hunts
// intruders of a single speed class.
type Phase struct {
	Speed SpeedClass
	Start int
	End   int
}

// Len returns the number of steps in the phase.
func (p Phase) Len() int { return p.End - p.Start }

// DefaultPhases splits duration into the three reference phases: aircraft
// for the first 1/32 of the steps, drones for the next 1/8, and vessels for
// the remainder. Boundaries use integer division, so with 160 steps the
// phases are [0,5), [5,25) and [25,160).
func DefaultPhases(duration int) []Phase {
	aircraftEnd := duration / 32
	droneEnd := aircraftEnd + duration/8
	return []Phase{
		{Speed: SpeedAircraft, Start: 0, End: aircraftEnd},
		{Speed: SpeedDrone, Start: aircraftEnd, End: droneEnd},
		{Speed: SpeedVessel, Start: droneEnd, End: duration},
	}
}

// ValidatePhases checks that phases tile [0, duration) in order with positive
// speed classes. Empty phases are allowed.
func ValidatePhases(phases []Phase, duration int) error {
	if len(phases) == 0 {
		return fmt.Errorf("%w: no phases", ErrInvalidPhases)
	}
	next := 0
	for i, ph := range phases {
		if !(ph.Speed > 0) {
			return fmt.Errorf("%w: phase %d speed %v", ErrInvalidSpeed, i, ph.Speed)
		}
		if ph.Start != next {
			return fmt.Errorf("%w: phase %d starts at %d, want %d", ErrInvalidPhases, i, ph.Start, next)
		}
		if ph.End < ph.Start {
			return fmt.Errorf("%w: phase %d ends at %d before it starts at %d", ErrInvalidPhases, i, ph.End, ph.Start)
		}
		next = ph.End
	}
	if next != duration {
		return fmt.Errorf("%w: phases end at %d, duration is %d", ErrInvalidPhases, next, duration)
	}
	return nil
}
