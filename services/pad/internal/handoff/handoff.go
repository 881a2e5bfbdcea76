// Package handoff publishes immutable scan snapshots from the config applier
// to the button scanner.
//
// The writer builds a Snapshot off to the side and swaps it in with one
// assignment under the lock. The reader calls Acquire once per tick and works
// on its own reference for the rest of the tick. A replaced snapshot is
// retired only after the reader has moved past it.
package handoff

import (
	"sync"
	"time"

	"gamepad-go/services/pad/internal/pinset"
)

// Mode selects how pins map to debounced inputs.
type Mode uint8

const (
	// ModeSingle scans each pin as one button.
	ModeSingle Mode = iota
	// ModePairs scans pins (i, i+1) as one combined input, pressed only
	// when both read low.
	ModePairs
)

func (m Mode) String() string {
	if m == ModePairs {
		return "pairs"
	}
	return "single"
}

// ParseMode maps "single" and "pairs" to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "single", "":
		return ModeSingle, true
	case "pairs", "pair", "matrix":
		return ModePairs, true
	}
	return ModeSingle, false
}

// Snapshot is everything the scanner needs for one configuration. It must
// not be modified after Publish.
type Snapshot struct {
	Gen   uint32
	Pins  *pinset.PinSet
	Seeds []bool  // pin level at publish time, true = high (released)
	Codes []uint8 // HID button code per pin index
	Mode  Mode
	At    time.Time
}

// Code returns the HID button code for pin index i, defaulting to 1.
func (s *Snapshot) Code(i int) uint8 {
	if s == nil || i < 0 || i >= len(s.Codes) || s.Codes[i] == 0 {
		return 1
	}
	return s.Codes[i]
}

// Seed returns the level captured for pin index i, defaulting to high.
func (s *Snapshot) Seed(i int) bool {
	if s == nil || i < 0 || i >= len(s.Seeds) {
		return true
	}
	return s.Seeds[i]
}

// Handle is the single published-snapshot slot.
type Handle struct {
	mu       sync.RWMutex
	cur      *Snapshot
	gen      uint32
	acquired uint32 // generation last handed to the reader, 0 = none
	pending  []*Snapshot
	onRetire func(*Snapshot)
}

// New returns a Handle holding an empty generation-1 snapshot. onRetire, if
// non-nil, is called outside the lock for every retired snapshot.
func New(onRetire func(*Snapshot)) *Handle {
	return &Handle{
		cur:      &Snapshot{Gen: 1, Pins: pinset.Empty},
		gen:      1,
		onRetire: onRetire,
	}
}

// Publish assigns the next generation to s and makes it current. s must be
// fully built by the caller. It returns the generation assigned.
func (h *Handle) Publish(s *Snapshot) uint32 {
	if s.Pins == nil {
		s.Pins = pinset.Empty
	}
	if s.At.IsZero() {
		s.At = time.Now()
	}

	var retire []*Snapshot
	h.mu.Lock()
	h.gen++
	s.Gen = h.gen
	old := h.cur
	h.cur = s
	if old.Gen > h.acquired {
		// The reader never saw it.
		retire = append(retire, old)
	} else {
		h.pending = append(h.pending, old)
	}
	gen := h.gen
	h.mu.Unlock()

	h.retire(retire)
	return gen
}

// Acquire returns the current snapshot and records that the reader now
// holds it. Snapshots older than the returned one are retired.
func (h *Handle) Acquire() *Snapshot {
	h.mu.RLock()
	s := h.cur
	seen := h.acquired
	h.mu.RUnlock()
	if s.Gen == seen {
		return s
	}

	var retire []*Snapshot
	h.mu.Lock()
	s = h.cur
	if s.Gen > h.acquired {
		h.acquired = s.Gen
	}
	keep := h.pending[:0]
	for _, p := range h.pending {
		if p.Gen < h.acquired {
			retire = append(retire, p)
		} else {
			keep = append(keep, p)
		}
	}
	for i := len(keep); i < len(h.pending); i++ {
		h.pending[i] = nil
	}
	h.pending = keep
	h.mu.Unlock()

	h.retire(retire)
	return s
}

// Load returns the current snapshot without marking it as acquired. Used by
// status readers.
func (h *Handle) Load() *Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cur
}

// Generation returns the generation of the current snapshot.
func (h *Handle) Generation() uint32 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.gen
}

// Pending returns the number of replaced snapshots still awaiting retirement.
func (h *Handle) Pending() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.pending)
}

func (h *Handle) retire(list []*Snapshot) {
	if h.onRetire == nil {
		return
	}
	for _, s := range list {
		h.onRetire(s)
	}
}
