// Package ads1115 is a driver for the ADS1115 16-bit I2C ADC, used for the
// throttle and brake pedals when the MCU's own ADC is not available.
//
//	d.Trigger(ch)            // start a single-shot conversion (fast)
//	v, err := d.Collect()    // ErrNotReady while converting
//
// d.Read(ch) performs trigger + bounded polling. Channel(ch) adapts one input
// to a plain Read() (int, error) source.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided.
package ads1115

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// Default I2C address (ADDR pin to GND).
const Address = 0x48

const (
	regConversion = 0x00
	regConfig     = 0x01

	cfgOS         = 1 << 15 // write: start conversion; read: 1 = idle
	cfgMuxSingle  = 0x4 << 12
	cfgModeSingle = 1 << 8
	cfgCompOff    = 0x3
)

// Gain selects the full-scale range.
type Gain uint16

const (
	Gain6V144 Gain = 0 << 9
	Gain4V096 Gain = 1 << 9
	Gain2V048 Gain = 2 << 9
	Gain1V024 Gain = 3 << 9
)

// Rate selects samples per second.
type Rate uint16

const (
	Rate128 Rate = 4 << 5
	Rate250 Rate = 5 << 5
	Rate475 Rate = 6 << 5
	Rate860 Rate = 7 << 5
)

var (
	ErrTimeout  = errors.New("ads1115: timeout")
	ErrNotReady = errors.New("ads1115: not ready")
	ErrChannel  = errors.New("ads1115: channel out of range")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x48 if zero.
	Address uint16
	// Gain zero value is ±6.144 V, the widest range.
	Gain Gain
	// Rate defaults to 860 SPS (~1.2 ms per conversion).
	Rate Rate
	// PollInterval is used by Read between Collect attempts. Default 300 µs.
	PollInterval time.Duration
	// CollectTimeout bounds the total wait in Read. Default 5 ms.
	CollectTimeout time.Duration
}

// Device is not safe for concurrent use; its Sources share one buffer.
type Device struct {
	bus drivers.I2C
	cfg Config
	buf [3]byte
}

// New creates a Device. The bus must already be configured; the ADC is not
// touched until the first Trigger.
func New(bus drivers.I2C, cfg Config) *Device {
	if cfg.Address == 0 {
		cfg.Address = Address
	}
	if cfg.Rate == 0 {
		cfg.Rate = Rate860
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 300 * time.Microsecond
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 5 * time.Millisecond
	}
	return &Device{bus: bus, cfg: cfg}
}

// configWord builds the single-shot config for single-ended input ch.
func (d *Device) configWord(ch int) uint16 {
	return cfgOS | cfgMuxSingle | uint16(ch)<<12 | uint16(d.cfg.Gain) | cfgModeSingle | uint16(d.cfg.Rate) | cfgCompOff
}

// Trigger starts a single-shot conversion on AIN<ch>.
func (d *Device) Trigger(ch int) error {
	if ch < 0 || ch > 3 {
		return ErrChannel
	}
	w := d.configWord(ch)
	d.buf[0] = regConfig
	d.buf[1] = byte(w >> 8)
	d.buf[2] = byte(w)
	return d.bus.Tx(d.cfg.Address, d.buf[:3], nil)
}

// Collect returns the last conversion, or ErrNotReady while one is running.
func (d *Device) Collect() (int16, error) {
	d.buf[0] = regConfig
	if err := d.bus.Tx(d.cfg.Address, d.buf[:1], d.buf[1:3]); err != nil {
		return 0, err
	}
	if uint16(d.buf[1])<<8&cfgOS == 0 {
		return 0, ErrNotReady
	}
	d.buf[0] = regConversion
	if err := d.bus.Tx(d.cfg.Address, d.buf[:1], d.buf[1:3]); err != nil {
		return 0, err
	}
	return int16(uint16(d.buf[1])<<8 | uint16(d.buf[2])), nil
}

// Read triggers a conversion on ch and polls until it completes.
func (d *Device) Read(ch int) (int16, error) {
	if err := d.Trigger(ch); err != nil {
		return 0, err
	}
	deadline := time.Now().Add(d.cfg.CollectTimeout)
	for {
		v, err := d.Collect()
		if !errors.Is(err, ErrNotReady) {
			return v, err
		}
		if time.Now().After(deadline) {
			return 0, ErrTimeout
		}
		time.Sleep(d.cfg.PollInterval)
	}
}

// Source reads one input; negative readings clamp to zero.
type Source struct {
	d  *Device
	ch int
}

// Channel returns a Source for AIN<ch>.
func (d *Device) Channel(ch int) Source { return Source{d: d, ch: ch} }

func (s Source) Read() (int, error) {
	v, err := s.d.Read(s.ch)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		v = 0
	}
	return int(v), nil
}
