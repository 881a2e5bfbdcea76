// Package debounce filters raw active-low pin levels into press and release
// edges.
package debounce

import "time"

// Timing holds the debounce windows.
type Timing struct {
	// Confirm is how long a new level must persist before it is accepted.
	Confirm time.Duration
	// Refractory blocks further transitions after an accepted one.
	Refractory time.Duration
}

// DefaultTiming matches the firmware's 2 ms confirm and 50 ms lockout.
var DefaultTiming = Timing{Confirm: 2 * time.Millisecond, Refractory: 50 * time.Millisecond}

// Edge is the outcome of one Update.
type Edge uint8

const (
	None Edge = iota
	Pressed
	Released
)

func (e Edge) String() string {
	switch e {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	}
	return "none"
}

// Slot is the debounce state for one input. Level true means high, which is
// released for active-low buttons.
type Slot struct {
	stable      bool
	candidate   bool
	since       time.Time
	lockedUntil time.Time
}

// NewSlot seeds a slot with the current level as both stable and candidate so
// the first tick after a reconfiguration sees no edge.
func NewSlot(level bool, now time.Time) Slot {
	return Slot{stable: level, candidate: level, since: now}
}

// Stable returns the last accepted level.
func (s *Slot) Stable() bool { return s.stable }

// Pressed reports whether the accepted state is pressed (low).
func (s *Slot) Pressed() bool { return !s.stable }

// Update feeds one sample and returns the accepted edge, if any.
func (s *Slot) Update(level bool, now time.Time, t Timing) Edge {
	if level != s.candidate {
		s.candidate = level
		s.since = now
		return None
	}
	if level == s.stable {
		return None
	}
	if now.Sub(s.since) < t.Confirm || now.Before(s.lockedUntil) {
		return None
	}
	s.stable = level
	s.lockedUntil = now.Add(t.Refractory)
	if level {
		return Released
	}
	return Pressed
}
