//go:build tinygo

// Package mcu runs the gamepad on a TinyGo target: buttons on machine pins,
// pedals on the on-chip ADC, HID over the target's BLE stack.
package mcu

import (
	"machine"
	"sync"

	"tinygo.org/x/bluetooth"

	"gamepad-go/services/pad"
	"gamepad-go/services/pad/internal/blehid"
	"gamepad-go/services/pad/internal/halcore"
	"gamepad-go/services/pad/internal/pinset"
)

// Config names the analog pins. A zero pin leaves that axis unread.
type Config struct {
	ThrottlePin machine.Pin
	BrakePin    machine.Pin
	BLEName     string
}

type Board struct {
	Input *Pins
	HID   *blehid.Device
	cfg   Config
}

func Open(cfg Config) (*Board, error) {
	if cfg.BLEName == "" {
		cfg.BLEName = "ESP32 Gamepad"
	}
	b := &Board{Input: &Pins{}, cfg: cfg}
	b.HID = blehid.New(bluetooth.DefaultAdapter, cfg.BLEName)
	if err := b.HID.Start(); err != nil {
		return nil, err
	}
	if cfg.ThrottlePin != 0 || cfg.BrakePin != 0 {
		machine.InitADC()
	}
	return b, nil
}

func (b *Board) Deps() pad.Deps {
	return pad.Deps{
		Input:    b.Input,
		HID:      b.HID,
		Throttle: adcSource(b.cfg.ThrottlePin),
		Brake:    adcSource(b.cfg.BrakePin),
	}
}

// adcSource reads 12-bit samples; machine.ADC.Get is left-aligned to 16.
func adcSource(p machine.Pin) halcore.AnalogSource {
	if p == 0 {
		return nil
	}
	a := machine.ADC{Pin: p}
	a.Configure(machine.ADCConfig{})
	return halcore.AnalogFunc(func() (int, error) {
		return int(a.Get() >> 4), nil
	})
}

// Pins samples machine pins configured as pulled-up inputs.
type Pins struct {
	mu         sync.RWMutex
	configured [256]bool
}

func (p *Pins) ConfigureInput(pin pinset.PinID) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	p.mu.Lock()
	p.configured[pin] = true
	p.mu.Unlock()
	return nil
}

// Level reads pin; unconfigured pins read high (released).
func (p *Pins) Level(pin pinset.PinID) bool {
	p.mu.RLock()
	ok := p.configured[pin]
	p.mu.RUnlock()
	if !ok {
		return true
	}
	return machine.Pin(pin).Get()
}
