//go:build linux && !tinygo

package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"gamepad-go/services/pad/internal/platform/linux"
)

// fileConfig is the optional TOML file. [pad], [heartbeat] and [web]
// replace the sections of the embedded config; [board] selects hardware.
//
//	[board]
//	i2c_bus = "1"
//	ble_name = "Bench Pad"
//
//	[pad]
//	chip = "HOST"
//	pins = "17,27,22"
//	button_map = "17:1,27:2,22:3"
type fileConfig struct {
	Board     boardConfig    `toml:"board"`
	Pad       map[string]any `toml:"pad"`
	Heartbeat map[string]any `toml:"heartbeat"`
	Web       map[string]any `toml:"web"`
}

type boardConfig struct {
	PinName string `toml:"pin_name"`
	I2CBus  string `toml:"i2c_bus"`
	NoADC   bool   `toml:"no_adc"`
	BLEName string `toml:"ble_name"`
}

func (b boardConfig) linux() linux.Config {
	return linux.Config{PinName: b.PinName, I2CBus: b.I2CBus, NoADC: b.NoADC, BLEName: b.BLEName}
}

// loadFile decodes path; an empty path yields the zero config.
func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fc, fmt.Errorf("config %s: %w", path, err)
	}
	if und := md.Undecoded(); len(und) > 0 {
		return fc, fmt.Errorf("config %s: unknown keys %v", path, und)
	}
	return fc, nil
}

// overlay returns the sections present in the file.
func (fc fileConfig) overlay() map[string]any {
	out := map[string]any{}
	for k, v := range map[string]map[string]any{"pad": fc.Pad, "heartbeat": fc.Heartbeat, "web": fc.Web} {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
