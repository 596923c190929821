package timectrl

import (
	"context"
	"slices"
	"sync"
	"time"
)

// StepClock exposes the current discrete step of a replay.
type StepClock interface {
	// Now returns the last step delivered to listeners, or -1 before the
	// first one.
	Now() int
}

// Mode describes how the StepController advances.
type Mode int

const (
	// RealTime delivers one step per Tick of wall-clock time.
	RealTime Mode = iota
	// Accelerated delivers steps as quickly as listeners consume them.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "real-time"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// StepController walks an integer clock over [0, Steps) and notifies
// registered listeners of every step. It implements StepClock.
type StepController struct {
	mu    sync.RWMutex
	Steps int
	Tick  time.Duration
	Mode  Mode

	current   int
	listeners []func(step int)
}

// NewStepController constructs a controller.
func NewStepController(steps int, tick time.Duration, mode Mode) *StepController {
	return &StepController{
		Steps:   steps,
		Tick:    tick,
		Mode:    mode,
		current: -1,
	}
}

// Now returns the last delivered step. Implements StepClock.
func (sc *StepController) Now() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.current
}

// AddListener registers a callback invoked on every step. Listeners must be
// added before Start.
func (sc *StepController) AddListener(fn func(step int)) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.listeners = append(sc.listeners, fn)
}

// Start runs the controller in a separate goroutine until every step has
// been delivered or ctx is cancelled. It returns a channel that is closed
// when the controller finishes.
func (sc *StepController) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	sc.mu.RLock()
	listeners := slices.Clone(sc.listeners)
	sc.mu.RUnlock()

	go func() {
		defer close(done)

		var tick <-chan time.Time
		if sc.Mode == RealTime && sc.Tick > 0 {
			ticker := time.NewTicker(sc.Tick)
			defer ticker.Stop()
			tick = ticker.C
		}

		for step := 0; step < sc.Steps; step++ {
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			} else if ctx.Err() != nil {
				return
			}

			sc.mu.Lock()
			sc.current = step
			sc.mu.Unlock()

			for _, fn := range listeners {
				fn(step)
			}
		}
	}()
	return done
}
