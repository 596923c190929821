package core

import (
	"maps"
	"slices"
)

// SpeedClass identifies an intruder category by its speed relative to the
// agent, in board units per step.
type SpeedClass float64

// Speed classes of the reference patrol scenario.
const (
	SpeedAircraft SpeedClass = 4
	SpeedDrone    SpeedClass = 1
	SpeedVessel   SpeedClass = 0.1
)

// ArrivalStep returns the step at which an intruder of this class, entering
// from the arena's right edge, reaches column x.
func (s SpeedClass) ArrivalStep(width float64, x int) float64 {
	return (width - float64(x)) / float64(s)
}

// LedgerKey records that an intruder of Speed has been credited on Row.
type LedgerKey struct {
	Speed SpeedClass
	Row   int
}

// Ledger is an immutable set of credited (speed, row) tracks. The zero value
// is an empty ledger. Adding keys returns a new Ledger; the receiver is never
// modified, so a Ledger can be shared freely between speculative branches and
// goroutines.
type Ledger struct {
	keys map[LedgerKey]struct{}
}

// NewLedger returns a ledger holding keys.
func NewLedger(keys ...LedgerKey) Ledger {
	return Ledger{}.With(keys...)
}

// Contains reports whether k has already been credited.
func (l Ledger) Contains(k LedgerKey) bool {
	_, ok := l.keys[k]
	return ok
}

// Len returns the number of credited tracks.
func (l Ledger) Len() int { return len(l.keys) }

// With returns a ledger holding the receiver's keys plus keys. When every key
// is already present the receiver's storage is shared rather than copied.
func (l Ledger) With(keys ...LedgerKey) Ledger {
	fresh := false
	for _, k := range keys {
		if !l.Contains(k) {
			fresh = true
			break
		}
	}
	if !fresh {
		return l
	}

	next := make(map[LedgerKey]struct{}, len(l.keys)+len(keys))
	maps.Copy(next, l.keys)
	for _, k := range keys {
		next[k] = struct{}{}
	}
	return Ledger{keys: next}
}

// Includes reports whether every key of other is also in l.
func (l Ledger) Includes(other Ledger) bool {
	for k := range other.keys {
		if !l.Contains(k) {
			return false
		}
	}
	return true
}

// Keys returns the credited tracks ordered by speed (fastest first), then row.
func (l Ledger) Keys() []LedgerKey {
	keys := slices.Collect(maps.Keys(l.keys))
	slices.SortFunc(keys, func(a, b LedgerKey) int {
		switch {
		case a.Speed > b.Speed:
			return -1
		case a.Speed < b.Speed:
			return 1
		}
		return a.Row - b.Row
	})
	return keys
}
