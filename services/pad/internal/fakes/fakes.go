// Package fakes provides in-memory pins, ADC channels and a recording HID
// device. The simulator build runs on them and the package tests drive them.
package fakes

import (
	"errors"
	"fmt"
	"sync"

	"gamepad-go/services/pad/internal/pinset"
)

// ---- GPIO ----

// Pins is a bank of input lines. Unset lines read high (pulled up).
type Pins struct {
	mu         sync.Mutex
	levels     map[pinset.PinID]bool
	configured []pinset.PinID
	reads      []pinset.PinID
	record     bool
	FailConfig map[pinset.PinID]bool
}

func NewPins() *Pins {
	return &Pins{levels: map[pinset.PinID]bool{}, FailConfig: map[pinset.PinID]bool{}}
}

// Set drives pin to level (true = high).
func (p *Pins) Set(pin pinset.PinID, level bool) {
	p.mu.Lock()
	p.levels[pin] = level
	p.mu.Unlock()
}

// Press drives pin low.
func (p *Pins) Press(pin pinset.PinID) { p.Set(pin, false) }

// Release drives pin high.
func (p *Pins) Release(pin pinset.PinID) { p.Set(pin, true) }

func (p *Pins) Level(pin pinset.PinID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.record {
		p.reads = append(p.reads, pin)
	}
	l, ok := p.levels[pin]
	return !ok || l
}

func (p *Pins) ConfigureInput(pin pinset.PinID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailConfig[pin] {
		return fmt.Errorf("configure gpio %d: refused", pin)
	}
	p.configured = append(p.configured, pin)
	return nil
}

// Configured returns the pins passed to ConfigureInput, in call order.
func (p *Pins) Configured() []pinset.PinID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pinset.PinID(nil), p.configured...)
}

// RecordReads starts (or restarts) logging Level calls.
func (p *Pins) RecordReads() {
	p.mu.Lock()
	p.record = true
	p.reads = nil
	p.mu.Unlock()
}

// Reads returns the pins sampled since RecordReads.
func (p *Pins) Reads() []pinset.PinID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pinset.PinID(nil), p.reads...)
}

// ---- ADC ----

// ADC is a settable analog channel.
type ADC struct {
	mu  sync.Mutex
	raw int
	err error
}

func (a *ADC) Set(raw int) {
	a.mu.Lock()
	a.raw, a.err = raw, nil
	a.mu.Unlock()
}

func (a *ADC) Fail(err error) {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
}

func (a *ADC) Read() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.raw, a.err
}

// ---- HID ----

// Call is one recorded HidDevice call.
type Call struct {
	Op    string // press, release, throttle, brake, report
	Value int
}

func (c Call) String() string { return fmt.Sprintf("%s(%d)", c.Op, c.Value) }

// ErrSendFailed is returned by SendReport while HID.FailSend is set.
var ErrSendFailed = errors.New("fake hid: send failed")

// HID records every call. It starts connected.
type HID struct {
	mu        sync.Mutex
	calls     []Call
	connected bool
	failSend  bool
	buttons   uint32
	throttle  uint16
	brake     uint16
	reports   int
	OnReport  func(buttons uint32, throttle, brake uint16)
}

func NewHID() *HID { return &HID{connected: true} }

func (h *HID) SetConnected(v bool) {
	h.mu.Lock()
	h.connected = v
	h.mu.Unlock()
}

func (h *HID) FailSend(v bool) {
	h.mu.Lock()
	h.failSend = v
	h.mu.Unlock()
}

func (h *HID) Press(code uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, Call{"press", int(code)})
	if code >= 1 && code <= 32 {
		h.buttons |= 1 << (code - 1)
	}
}

func (h *HID) Release(code uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, Call{"release", int(code)})
	if code >= 1 && code <= 32 {
		h.buttons &^= 1 << (code - 1)
	}
}

func (h *HID) SetThrottle(v uint16) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, Call{"throttle", int(v)})
	h.throttle = v
}

func (h *HID) SetBrake(v uint16) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, Call{"brake", int(v)})
	h.brake = v
}

func (h *HID) SendReport() error {
	h.mu.Lock()
	h.calls = append(h.calls, Call{"report", 0})
	if h.failSend {
		h.mu.Unlock()
		return ErrSendFailed
	}
	h.reports++
	b, t, br, cb := h.buttons, h.throttle, h.brake, h.OnReport
	h.mu.Unlock()
	if cb != nil {
		cb(b, t, br)
	}
	return nil
}

func (h *HID) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// Calls returns the recorded calls.
func (h *HID) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.calls...)
}

// Reset clears the recorded calls.
func (h *HID) Reset() {
	h.mu.Lock()
	h.calls = nil
	h.mu.Unlock()
}

// Reports returns the number of successful SendReport calls.
func (h *HID) Reports() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reports
}

// Buttons returns the current button bitmap (bit 0 = button 1).
func (h *HID) Buttons() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buttons
}
