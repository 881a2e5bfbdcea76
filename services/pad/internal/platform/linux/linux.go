//go:build linux && !tinygo

// Package linux runs the gamepad on a Linux board: buttons on gpiochip lines
// through periph, pedals on an ADS1115 over I2C, HID over BlueZ.
package linux

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/bluetooth"

	"gamepad-go/drivers/ads1115"
	"gamepad-go/errcode"
	"gamepad-go/services/pad"
	"gamepad-go/services/pad/internal/analog"
	"gamepad-go/services/pad/internal/blehid"
	"gamepad-go/services/pad/internal/pinset"
	"gamepad-go/x/logx"
)

// Config selects the Linux resources. Zero values pick defaults.
type Config struct {
	// PinName formats a pin number as a periph pin name. Default "GPIO%d".
	PinName string
	// I2CBus names the ADC bus; "" is the first bus. Unused when NoADC.
	I2CBus string
	NoADC  bool
	// BLEName is the advertised device name.
	BLEName string
}

// Board owns the opened hardware.
type Board struct {
	Input *Pins
	HID   *blehid.Device
	ADC   *ads1115.Device
	bus   i2c.BusCloser
}

// ADCCalibration spans 0..3.3 V at the ADS1115's default ±6.144 V range.
var ADCCalibration = analog.Calibration{RawMin: 0, RawMax: 17600}

// Open initialises periph, the ADC and the BLE peripheral.
func Open(cfg Config) (*Board, error) {
	if cfg.PinName == "" {
		cfg.PinName = "GPIO%d"
	}
	if cfg.BLEName == "" {
		cfg.BLEName = "ESP32 Gamepad"
	}
	if _, err := host.Init(); err != nil {
		return nil, errcode.Wrap(errcode.Unsupported, "linux.open", "periph host init", err)
	}

	b := &Board{Input: NewPins(cfg.PinName)}
	if !cfg.NoADC {
		bus, err := i2creg.Open(cfg.I2CBus)
		if err != nil {
			return nil, errcode.Wrap(errcode.Unsupported, "linux.open", "open i2c "+cfg.I2CBus, err)
		}
		b.bus = bus
		b.ADC = ads1115.New(bus, ads1115.Config{})
	}

	b.HID = blehid.New(bluetooth.DefaultAdapter, cfg.BLEName)
	if err := b.HID.Start(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Deps maps the board onto the pad service: AIN0 is throttle, AIN1 brake.
func (b *Board) Deps() pad.Deps {
	d := pad.Deps{Input: b.Input, HID: b.HID}
	if b.ADC != nil {
		d.Throttle = b.ADC.Channel(0)
		d.Brake = b.ADC.Channel(1)
	}
	return d
}

func (b *Board) Close() error {
	if b.bus != nil {
		return b.bus.Close()
	}
	return nil
}

// Pins resolves button lines by name on first use.
type Pins struct {
	format string
	mu     sync.RWMutex
	lines  map[pinset.PinID]gpio.PinIO
}

func NewPins(format string) *Pins {
	return &Pins{format: format, lines: make(map[pinset.PinID]gpio.PinIO)}
}

// ConfigureInput sets pin as an input with pull-up. Edge detection is left
// off; the scanner polls.
func (p *Pins) ConfigureInput(pin pinset.PinID) error {
	name := fmt.Sprintf(p.format, pin)
	line := gpioreg.ByName(name)
	if line == nil {
		return &errcode.E{C: errcode.PinOutOfRange, Op: "linux.configure", Msg: "no gpio line " + name}
	}
	if err := line.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return errcode.Wrap(errcode.Error, "linux.configure", name, err)
	}
	p.mu.Lock()
	p.lines[pin] = line
	p.mu.Unlock()
	logx.Debug(logx.ComponentScanner, "input configured", "pin", pin, "line", name)
	return nil
}

// Level reads pin. An unconfigured pin reads high (released).
func (p *Pins) Level(pin pinset.PinID) bool {
	p.mu.RLock()
	line := p.lines[pin]
	p.mu.RUnlock()
	if line == nil {
		return true
	}
	return line.Read() == gpio.High
}
