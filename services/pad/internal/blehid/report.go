// Package blehid implements the gamepad's HID-over-GATT peripheral.
package blehid

import "encoding/binary"

// ReportMap is the HID report descriptor: 32 buttons followed by throttle and
// brake axes of 0..0x7FFF.
var ReportMap = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x05, // Usage (Game Pad)
	0xA1, 0x01, // Collection (Application)
	0x05, 0x09, //   Usage Page (Button)
	0x19, 0x01, //   Usage Minimum (1)
	0x29, 0x20, //   Usage Maximum (32)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x20, //   Report Count (32)
	0x81, 0x02, //   Input (Data, Var, Abs)
	0x05, 0x02, //   Usage Page (Simulation Controls)
	0x09, 0xBB, //   Usage (Throttle)
	0x09, 0xC5, //   Usage (Brake)
	0x15, 0x00, //   Logical Minimum (0)
	0x26, 0xFF, 0x7F, //   Logical Maximum (32767)
	0x75, 0x10, //   Report Size (16)
	0x95, 0x02, //   Report Count (2)
	0x81, 0x02, //   Input (Data, Var, Abs)
	0xC0, // End Collection
}

// ReportLen is the size of one input report.
const ReportLen = 8

// Report is the gamepad input state.
type Report struct {
	Buttons  uint32 // bit 0 = button 1
	Throttle uint16
	Brake    uint16
}

// Press sets button code (1..32). Other codes are ignored.
func (r *Report) Press(code uint8) {
	if code >= 1 && code <= 32 {
		r.Buttons |= 1 << (code - 1)
	}
}

// Release clears button code.
func (r *Report) Release(code uint8) {
	if code >= 1 && code <= 32 {
		r.Buttons &^= 1 << (code - 1)
	}
}

// AppendBinary appends the little-endian wire form of r to b.
func (r Report) AppendBinary(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, r.Buttons)
	b = binary.LittleEndian.AppendUint16(b, r.Throttle)
	return binary.LittleEndian.AppendUint16(b, r.Brake)
}
