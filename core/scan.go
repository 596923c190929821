package core

import (
	"fmt"
	"math"
)

// Sensor is the fixed-radius detection footprint carried by the agent.
type Sensor struct {
	Arena  Arena
	Radius float64
}

// ScanBounds returns the half-open integer box [xLo, xHi) x [yLo, yHi) of grid
// cells the sensor can see from center, clipped to the arena. The box is
// padded by one cell on the upper side so fractional centers are covered.
func (s Sensor) ScanBounds(center Point) (xLo, xHi, yLo, yHi int) {
	xLo = max(0, int(math.Floor(center.X)-s.Radius))
	xHi = min(cellLimit(s.Arena.Width), int(math.Ceil(center.X)+s.Radius+1))
	yLo = max(0, int(math.Floor(center.Y)-s.Radius))
	yHi = min(cellLimit(s.Arena.Height), int(math.Ceil(center.Y)+s.Radius+1))
	return xLo, xHi, yLo, yHi
}

// Scan counts intruders of the given speed class that newly fall inside the
// sensor at step t. A row already present in ledger for this speed is
// skipped; a row is credited at most once. The returned ledger holds ledger's
// keys plus every newly credited row; ledger itself is left untouched.
func (s Sensor) Scan(center Point, speed SpeedClass, t int, ledger Ledger) (int, Ledger, error) {
	if !(speed > 0) {
		return 0, ledger, fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}

	xLo, xHi, yLo, yHi := s.ScanBounds(center)
	step := float64(t)

	var credited []LedgerKey
	for y := yLo; y < yHi; y++ {
		key := LedgerKey{Speed: speed, Row: y}
		if ledger.Contains(key) {
			continue
		}
		for x := xLo; x < xHi; x++ {
			if !InsideCircle(center, Point{X: float64(x), Y: float64(y)}, s.Radius) {
				continue
			}
			if speed.ArrivalStep(s.Arena.Width, x) == step {
				credited = append(credited, key)
				break
			}
		}
	}

	if len(credited) == 0 {
		return 0, ledger, nil
	}
	return len(credited), ledger.With(credited...), nil
}

// cellLimit is the exclusive upper bound of integer cells in [0, extent).
func cellLimit(extent float64) int {
	return int(math.Ceil(extent))
}
