// Package chips holds the usable GPIO numbers per supported chip series.
package chips

import (
	"strings"

	"gamepad-go/services/pad/internal/pinset"
)

// Chip describes the GPIO lines a button may be wired to.
type Chip struct {
	Series string
	MaxPin pinset.PinID
	// Unusable lists lines that exist numerically but are absent, wired to
	// flash, or otherwise reserved.
	Unusable []pinset.PinID
}

// Valid reports whether p may be configured as a button input.
func (c Chip) Valid(p pinset.PinID) bool {
	if p > c.MaxPin {
		return false
	}
	for _, u := range c.Unusable {
		if u == p {
			return false
		}
	}
	return true
}

var table = []Chip{
	{Series: "ESP32", MaxPin: 39, Unusable: []pinset.PinID{6, 7, 8, 9, 10, 11, 20, 24, 28, 29, 30, 31}},
	{Series: "ESP32_S2", MaxPin: 46, Unusable: []pinset.PinID{22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32}},
	{Series: "ESP32_S3", MaxPin: 48, Unusable: []pinset.PinID{22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32}},
	{Series: "ESP32_C3", MaxPin: 21, Unusable: []pinset.PinID{12, 13, 14, 15, 16, 17}},
	// Linux gpiochip lines; the kernel decides what exists.
	{Series: "HOST", MaxPin: 255},
}

// Default is the series assumed until one is configured.
var Default = table[2]

// Lookup finds a series by name, case-insensitively. "ESP32-S3" and
// "esp32s3" are accepted spellings of ESP32_S3.
func Lookup(series string) (Chip, bool) {
	key := normalise(series)
	for _, c := range table {
		if normalise(c.Series) == key {
			return c, true
		}
	}
	return Chip{}, false
}

func normalise(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "_", "")
}
