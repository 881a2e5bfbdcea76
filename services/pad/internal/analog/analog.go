// Package analog forwards throttle and brake samples to the HID sink.
package analog

import (
	"context"
	"sync/atomic"
	"time"

	"gamepad-go/services/pad/internal/halcore"
	"gamepad-go/x/logx"
	"gamepad-go/x/mathx"
)

const (
	DefaultPeriod = 10 * time.Millisecond
	// AxisMax is the top of the HID axis range.
	AxisMax uint16 = 0x7FFF
)

// HID is the subset of the HID sink the reporter drives.
type HID interface {
	IsConnected() bool
	SetThrottle(v uint16)
	SetBrake(v uint16)
	SendReport()
}

// Calibration maps raw samples onto the axis. A reversed range inverts the
// axis.
type Calibration struct {
	RawMin, RawMax int
}

// DefaultCalibration covers a 12-bit ADC.
var DefaultCalibration = Calibration{RawMin: 0, RawMax: 4095}

// Scale converts a raw sample to 0..AxisMax.
func (c Calibration) Scale(raw int) uint16 {
	if c.RawMin == c.RawMax {
		return 0
	}
	return mathx.Scale(raw, c.RawMin, c.RawMax, uint16(0), AxisMax)
}

type Config struct {
	Period   time.Duration
	Throttle Calibration
	Brake    Calibration
}

type Reporter struct {
	throttle halcore.AnalogSource
	brake    halcore.AnalogSource
	hid      HID
	cfg      Config

	lastThrottle, lastBrake atomic.Uint32
	readErrs                atomic.Uint32
}

func New(throttle, brake halcore.AnalogSource, hid HID, cfg Config) *Reporter {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Throttle == (Calibration{}) {
		cfg.Throttle = DefaultCalibration
	}
	if cfg.Brake == (Calibration{}) {
		cfg.Brake = DefaultCalibration
	}
	return &Reporter{throttle: throttle, brake: brake, hid: hid, cfg: cfg}
}

// Tick samples both axes and queues a report. Nothing is read while the HID
// link is down. It reports whether a report was queued.
func (r *Reporter) Tick() bool {
	if !r.hid.IsConnected() {
		return false
	}
	if v, ok := r.read("throttle", r.throttle, r.cfg.Throttle); ok {
		r.lastThrottle.Store(uint32(v))
		r.hid.SetThrottle(v)
	}
	if v, ok := r.read("brake", r.brake, r.cfg.Brake); ok {
		r.lastBrake.Store(uint32(v))
		r.hid.SetBrake(v)
	}
	r.hid.SendReport()
	return true
}

func (r *Reporter) read(name string, src halcore.AnalogSource, cal Calibration) (uint16, bool) {
	if src == nil {
		return 0, false
	}
	raw, err := src.Read()
	if err != nil {
		if r.readErrs.Add(1)&0xff == 1 {
			logx.Warn(logx.ComponentAnalog, "axis read failed", "axis", name, "err", err)
		}
		return 0, false
	}
	return cal.Scale(raw), true
}

// Run ticks every Period until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	t := time.NewTicker(r.cfg.Period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Tick()
		}
	}
}

// Axes returns the last values sent.
func (r *Reporter) Axes() (throttle, brake uint16) {
	return uint16(r.lastThrottle.Load()), uint16(r.lastBrake.Load())
}

func (r *Reporter) ReadErrors() uint32 { return r.readErrs.Load() }
