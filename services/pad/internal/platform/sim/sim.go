// Package sim is an in-process board: scripted pins, fixed ADC readings and
// a HID device that logs its reports.
package sim

import (
	"context"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"gamepad-go/errcode"
	"gamepad-go/services/pad"
	"gamepad-go/services/pad/internal/blehid"
	"gamepad-go/services/pad/internal/fakes"
	"gamepad-go/services/pad/internal/pinset"
	"gamepad-go/x/logx"
)

// Board is a simulated gamepad.
type Board struct {
	Pins     *fakes.Pins
	Throttle *fakes.ADC
	Brake    *fakes.ADC
	HID      *LogHID
}

func New() *Board {
	b := &Board{
		Pins:     fakes.NewPins(),
		Throttle: &fakes.ADC{},
		Brake:    &fakes.ADC{},
		HID:      &LogHID{},
	}
	b.HID.SetConnected(true)
	return b
}

func (b *Board) Deps() pad.Deps {
	return pad.Deps{Input: b.Pins, HID: b.HID, Throttle: b.Throttle, Brake: b.Brake}
}

// Toggle presses and releases pin every period until ctx ends, long enough
// for each edge to pass debounce.
func (b *Board) Toggle(ctx context.Context, pin pinset.PinID, period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()
	down := false
	for {
		select {
		case <-ctx.Done():
			b.Pins.Release(pin)
			return
		case <-t.C:
			down = !down
			b.Pins.Set(pin, !down)
		}
	}
}

// LogHID encodes reports the same way the BLE device does and logs them
// instead of notifying a host.
type LogHID struct {
	mu        sync.Mutex
	report    blehid.Report
	last      blehid.Report
	buf       []byte
	connected atomic.Bool
	sent      atomic.Uint32
}

func (h *LogHID) SetConnected(v bool) { h.connected.Store(v) }
func (h *LogHID) IsConnected() bool   { return h.connected.Load() }

func (h *LogHID) Press(code uint8) {
	h.mu.Lock()
	h.report.Press(code)
	h.mu.Unlock()
}

func (h *LogHID) Release(code uint8) {
	h.mu.Lock()
	h.report.Release(code)
	h.mu.Unlock()
}

func (h *LogHID) SetThrottle(v uint16) {
	h.mu.Lock()
	h.report.Throttle = v
	h.mu.Unlock()
}

func (h *LogHID) SetBrake(v uint16) {
	h.mu.Lock()
	h.report.Brake = v
	h.mu.Unlock()
}

// SendReport logs the report at debug level, or at info when the buttons
// changed since the last one.
func (h *LogHID) SendReport() error {
	if !h.connected.Load() {
		return errcode.NotConnected
	}
	h.mu.Lock()
	r := h.report
	changed := r.Buttons != h.last.Buttons
	h.last = r
	h.buf = r.AppendBinary(h.buf[:0])
	enc := hex.EncodeToString(h.buf)
	h.mu.Unlock()

	h.sent.Add(1)
	if changed {
		logx.Info(logx.ComponentHID, "report", "buttons", r.Buttons, "bytes", enc)
	} else {
		logx.Debug(logx.ComponentHID, "report", "bytes", enc)
	}
	return nil
}

// Sent is the number of reports delivered.
func (h *LogHID) Sent() uint32 { return h.sent.Load() }

// State returns the last delivered report.
func (h *LogHID) State() blehid.Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
