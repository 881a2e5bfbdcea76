// Package scanner polls the configured button pins, debounces them and
// forwards accepted transitions to the HID sink.
package scanner

import (
	"context"
	"sync/atomic"
	"time"

	"gamepad-go/services/pad/internal/debounce"
	"gamepad-go/services/pad/internal/halcore"
	"gamepad-go/services/pad/internal/handoff"
	"gamepad-go/services/pad/internal/pinset"
	"gamepad-go/x/logx"
)

// DefaultPeriod is the polling interval.
const DefaultPeriod = 10 * time.Millisecond

// HID is the subset of the HID sink the scanner drives.
type HID interface {
	Press(code uint8)
	Release(code uint8)
	SendReport()
}

// Event is one accepted transition.
type Event struct {
	Gen   uint32
	Index int
	Pin   pinset.PinID
	// Pair is the second pin of a combined input; equal to Pin in single mode.
	Pair pinset.PinID
	Code uint8
	Edge debounce.Edge
	At   time.Time
}

type Config struct {
	Period time.Duration
	Timing debounce.Timing
	// OnEvent, if set, is called for every accepted transition after the
	// HID calls were queued. It runs on the scanning goroutine.
	OnEvent func(Event)
}

// Stats are cumulative counters.
type Stats struct {
	Ticks  uint32
	Events uint32
	Panics uint32
	Gen    uint32
}

// input is one debounced input: a single pin or a pin pair.
type input struct {
	a, b pinset.PinID
	code uint8
	slot debounce.Slot
}

type Scanner struct {
	pub *handoff.Handle
	in  halcore.DigitalInput
	hid HID
	cfg Config

	// owned by the scanning goroutine
	snap   *handoff.Snapshot
	inputs []input

	ticks, events, panics, gen atomic.Uint32
}

func New(pub *handoff.Handle, in halcore.DigitalInput, hid HID, cfg Config) *Scanner {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Timing == (debounce.Timing{}) {
		cfg.Timing = debounce.DefaultTiming
	}
	return &Scanner{pub: pub, in: in, hid: hid, cfg: cfg}
}

// Tick runs one polling pass at time now and returns the number of accepted
// transitions.
func (s *Scanner) Tick(now time.Time) int {
	s.ticks.Add(1)

	snap := s.pub.Acquire()
	if s.snap == nil || snap.Gen != s.snap.Gen {
		s.rebuild(snap)
	}

	n := 0
	for i := range s.inputs {
		in := &s.inputs[i]
		level := s.in.Level(in.a)
		if in.b != in.a {
			// Combined input is low only when both pins are low.
			level = level || s.in.Level(in.b)
		}
		e := in.slot.Update(level, now, s.cfg.Timing)
		if e == debounce.None {
			continue
		}
		s.emit(Event{Gen: snap.Gen, Index: i, Pin: in.a, Pair: in.b, Code: in.code, Edge: e, At: now})
		n++
	}
	return n
}

func (s *Scanner) emit(ev Event) {
	if ev.Edge == debounce.Pressed {
		s.hid.Press(ev.Code)
	} else {
		s.hid.Release(ev.Code)
	}
	s.hid.SendReport()
	s.events.Add(1)
	logx.Debug(logx.ComponentScanner, "button", "pin", ev.Pin, "code", ev.Code, "edge", ev.Edge.String())
	if s.cfg.OnEvent != nil {
		s.cfg.OnEvent(ev)
	}
}

// rebuild replaces the debounce table with one seeded from snap and brings
// the HID button state in line with the new table.
func (s *Scanner) rebuild(snap *handoff.Snapshot) {
	before := s.heldCodes()

	pins := snap.Pins
	var inputs []input
	switch snap.Mode {
	case handoff.ModePairs:
		inputs = make([]input, 0, pins.Len()/2)
		for i := 0; i+1 < pins.Len(); i += 2 {
			a, errA := pins.At(i)
			b, errB := pins.At(i + 1)
			if errA != nil || errB != nil {
				break
			}
			seed := snap.Seed(i) || snap.Seed(i+1)
			inputs = append(inputs, input{a: a, b: b, code: snap.Code(i), slot: debounce.NewSlot(seed, snap.At)})
		}
	default:
		inputs = make([]input, 0, pins.Len())
		for i := 0; i < pins.Len(); i++ {
			p, err := pins.At(i)
			if err != nil {
				break
			}
			inputs = append(inputs, input{a: p, b: p, code: snap.Code(i), slot: debounce.NewSlot(snap.Seed(i), snap.At)})
		}
	}
	s.snap = snap
	s.inputs = inputs
	s.gen.Store(snap.Gen)

	after := s.heldCodes()
	changed := false
	for c := 0; c < len(before); c++ {
		switch {
		case before[c] && !after[c]:
			s.hid.Release(uint8(c))
			changed = true
		case after[c] && !before[c]:
			s.hid.Press(uint8(c))
			changed = true
		}
	}
	if changed {
		s.hid.SendReport()
	}
	logx.Info(logx.ComponentScanner, "pin set active", "gen", snap.Gen, "pins", pins.String(),
		"mode", snap.Mode.String(), "inputs", len(inputs))
}

// heldCodes returns the HID codes currently held down by the debounce table.
func (s *Scanner) heldCodes() (held [256]bool) {
	for i := range s.inputs {
		if s.inputs[i].slot.Pressed() {
			held[s.inputs[i].code] = true
		}
	}
	return
}

// Run ticks every Period until ctx is cancelled. A panic inside a tick is
// logged and the loop carries on. Debounce state is discarded on exit.
func (s *Scanner) Run(ctx context.Context) {
	t := time.NewTicker(s.cfg.Period)
	defer t.Stop()
	defer s.reset()

	logx.Info(logx.ComponentScanner, "scanner started", "period", s.cfg.Period)
	for {
		select {
		case <-ctx.Done():
			logx.Info(logx.ComponentScanner, "scanner stopping")
			return
		case now := <-t.C:
			s.safeTick(now)
		}
	}
}

func (s *Scanner) safeTick(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			logx.Error(logx.ComponentScanner, "tick panic", "panic", r)
		}
	}()
	s.Tick(now)
}

func (s *Scanner) reset() {
	s.snap = nil
	s.inputs = nil
}

// pins returns the pins scanned by the active table, in order.
// Only valid on the scanning goroutine.
func (s *Scanner) pins() []pinset.PinID {
	if s.snap == nil {
		return nil
	}
	return s.snap.Pins.Pins()
}

func (s *Scanner) Stats() Stats {
	return Stats{
		Ticks:  s.ticks.Load(),
		Events: s.events.Load(),
		Panics: s.panics.Load(),
		Gen:    s.gen.Load(),
	}
}
