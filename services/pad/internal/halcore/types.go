// services/pad/internal/halcore/types.go
package halcore

import "gamepad-go/services/pad/internal/pinset"

// ---- HID ----

// HidDevice is the HID transport (BLE on hardware). Implementations need
// not be safe for concurrent use; hidsink serialises every call.
type HidDevice interface {
	Press(code uint8)
	Release(code uint8)
	SetThrottle(v uint16)
	SetBrake(v uint16)
	SendReport() error
	IsConnected() bool
}

// ---- GPIO ----

// DigitalInput samples one input line. true = high. Must not block.
// Buttons are wired active-low, so false means pressed.
type DigitalInput interface {
	Level(pin pinset.PinID) bool
}

// PinConfigurer is optionally implemented by a DigitalInput that must set
// up a line (direction, pull-up) before it can be sampled.
type PinConfigurer interface {
	ConfigureInput(pin pinset.PinID) error
}

// ---- ADC ----

// AnalogSource returns one raw sample. Must not block.
type AnalogSource interface {
	Read() (int, error)
}

// AnalogFunc adapts a plain function to AnalogSource.
type AnalogFunc func() (int, error)

func (f AnalogFunc) Read() (int, error) { return f() }
