// Package hidsink serialises all HID device access behind one drainer.
//
// Producers (button scanner, analog reporter) never block. Button edges are
// kept in order and never discarded; each edge followed by SendReport gets its
// own report. Axis values and report requests coalesce to the latest state,
// so a slow link costs intermediate axis samples, never a transition.
package hidsink

import (
	"context"
	"sync"
	"sync/atomic"

	"gamepad-go/errcode"
	"gamepad-go/services/pad/internal/halcore"
	"gamepad-go/x/logx"
)

// DefaultQueueLen is the edge backlog above which a warning is logged.
const DefaultQueueLen = 64

type edge struct {
	code   uint8
	press  bool
	report bool // SendReport was requested after this edge
}

const (
	dirtyThrottle uint8 = 1 << iota
	dirtyBrake
)

// Stats are cumulative counters.
type Stats struct {
	Sent      uint32 // reports delivered
	Skipped   uint32 // reports not sent because the link was down
	Failed    uint32 // transport failures
	Coalesced uint32 // axis updates and report requests merged into a later one
}

type Sink struct {
	dev  halcore.HidDevice
	warn int
	wake chan struct{}

	mu       sync.Mutex // guards the pending state below
	edges    []edge
	throttle uint16
	brake    uint16
	dirty    uint8
	report   bool

	devMu sync.Mutex // held while applying to dev

	sent, skipped, failed, coalesced atomic.Uint32
}

// New wraps dev. backlog <= 0 selects DefaultQueueLen.
func New(dev halcore.HidDevice, backlog int) *Sink {
	if backlog <= 0 {
		backlog = DefaultQueueLen
	}
	return &Sink{dev: dev, warn: backlog, wake: make(chan struct{}, 1)}
}

func (s *Sink) Press(code uint8)   { s.pushEdge(edge{code: code, press: true}) }
func (s *Sink) Release(code uint8) { s.pushEdge(edge{code: code}) }

func (s *Sink) SetThrottle(v uint16) {
	s.mu.Lock()
	if s.dirty&dirtyThrottle != 0 {
		s.coalesced.Add(1)
	}
	s.throttle, s.dirty = v, s.dirty|dirtyThrottle
	s.mu.Unlock()
	s.signal()
}

func (s *Sink) SetBrake(v uint16) {
	s.mu.Lock()
	if s.dirty&dirtyBrake != 0 {
		s.coalesced.Add(1)
	}
	s.brake, s.dirty = v, s.dirty|dirtyBrake
	s.mu.Unlock()
	s.signal()
}

// SendReport requests a report of the current state. It attaches to the
// latest unreported edge when there is one. The outcome is reported through
// logs and Stats, never to the caller.
func (s *Sink) SendReport() {
	s.mu.Lock()
	if n := len(s.edges); n > 0 && !s.edges[n-1].report {
		s.edges[n-1].report = true
	} else {
		if s.report {
			s.coalesced.Add(1)
		}
		s.report = true
	}
	s.mu.Unlock()
	s.signal()
}

// IsConnected reads the link state straight from the device.
func (s *Sink) IsConnected() bool { return s.dev.IsConnected() }

func (s *Sink) pushEdge(e edge) {
	s.mu.Lock()
	s.edges = append(s.edges, e)
	n := len(s.edges)
	s.mu.Unlock()
	if n == s.warn {
		logx.Warn(logx.ComponentHID, "button edges backing up, link slow", "pending", n)
	}
	s.signal()
}

func (s *Sink) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drains pending state until ctx is cancelled.
func (s *Sink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			s.Flush(ctx)
		}
	}
}

// Flush applies everything pending on the calling goroutine and returns the
// number of device calls made. Axes are applied first so every report in the
// batch carries the latest values.
func (s *Sink) Flush(ctx context.Context) int {
	s.devMu.Lock()
	defer s.devMu.Unlock()

	n := 0
	for ctx.Err() == nil {
		s.mu.Lock()
		edges, dirty, thr, brk, report := s.edges, s.dirty, s.throttle, s.brake, s.report
		s.edges, s.dirty, s.report = nil, 0, false
		s.mu.Unlock()

		if len(edges) == 0 && dirty == 0 && !report {
			return n
		}
		if dirty&dirtyThrottle != 0 {
			s.dev.SetThrottle(thr)
			n++
		}
		if dirty&dirtyBrake != 0 {
			s.dev.SetBrake(brk)
			n++
		}
		reported := false
		for _, e := range edges {
			if e.press {
				s.dev.Press(e.code)
			} else {
				s.dev.Release(e.code)
			}
			n++
			reported = false
			if e.report {
				s.send()
				n++
				reported = true
			}
		}
		if report {
			if reported {
				// The last edge's report already carried this state.
				s.coalesced.Add(1)
			} else {
				s.send()
				n++
			}
		}
	}
	return n
}

func (s *Sink) send() {
	if !s.dev.IsConnected() {
		s.skipped.Add(1)
		return
	}
	if err := s.dev.SendReport(); err != nil {
		s.failed.Add(1)
		err = errcode.Wrap(errcode.TransportFailure, "hidsink.send", "", err)
		logx.Warn(logx.ComponentHID, "report send failed", "err", err)
		return
	}
	s.sent.Add(1)
}

// Pending is the number of undelivered edges, axis updates and report
// requests.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.edges)
	if s.dirty&dirtyThrottle != 0 {
		n++
	}
	if s.dirty&dirtyBrake != 0 {
		n++
	}
	if s.report {
		n++
	}
	return n
}

func (s *Sink) Stats() Stats {
	return Stats{
		Sent:      s.sent.Load(),
		Skipped:   s.skipped.Load(),
		Failed:    s.failed.Load(),
		Coalesced: s.coalesced.Load(),
	}
}
