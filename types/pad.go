package types

// ------------------------
// Pad configuration ("config/pad")
// ------------------------

// PadConfig is the boot-time gamepad configuration. Every field is applied
// through the same path as a runtime update.
type PadConfig struct {
	Chip      string `json:"chip,omitempty"`       // "ESP32_S3", ...
	Pins      string `json:"pins"`                 // "4,5,6"
	ButtonMap string `json:"button_map,omitempty"` // "4:1,5:2"
	ScanMode  string `json:"scan_mode,omitempty"`  // "single" | "pairs"
}

// ConfigSet is a runtime configuration update ("pad/config/set").
type ConfigSet struct {
	Key   string `json:"variable_id"`
	Value string `json:"value"`
}

// ConfigResult reports how one update was handled ("pad/config/result").
type ConfigResult struct {
	Key   string `json:"variable_id"`
	Value string `json:"value"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Gen   uint32 `json:"gen,omitempty"`
}

// ------------------------
// Runtime state
// ------------------------

// ButtonEvent is published on "pad/button/<pin>/event".
type ButtonEvent struct {
	Pin     int    `json:"pin"`
	Pair    int    `json:"pair,omitempty"` // second pin in pairs mode
	Code    int    `json:"code"`
	Pressed bool   `json:"pressed"`
	Gen     uint32 `json:"gen"`
	TS      int64  `json:"ts_ms"`
}

// LinkState is the retained HID link state on "pad/link".
type LinkState struct {
	Connected bool  `json:"connected"`
	TS        int64 `json:"ts_ms"`
}

// PadStatus is retained on "pad/state" and returned by "pad/state/get".
type PadStatus struct {
	State      string `json:"state"`
	ChipSeries string `json:"chip"`
	Pins       string `json:"pins"`
	ButtonMap  string `json:"button_map"`
	ScanMode   string `json:"scan_mode"`
	Gen        uint32 `json:"gen"`
	Connected  bool   `json:"connected"`
	Throttle   uint16 `json:"throttle"`
	Brake      uint16 `json:"brake"`
	LastError  string `json:"last_error,omitempty"`

	Applied      uint32 `json:"applied"`
	Rejected     uint32 `json:"rejected"`
	UnknownKeys  uint32 `json:"unknown_keys"`
	QueueDropped uint32 `json:"queue_dropped"`
	Events       uint32 `json:"events"`
	ScanPanics   uint32 `json:"scan_panics"`
	ReportsSent  uint32 `json:"reports_sent"`
	SendFailures uint32 `json:"send_failures"`
	HIDCoalesced uint32 `json:"hid_coalesced"`
}

// ------------------------
// Power
// ------------------------

// HeartbeatConfig is supplied on "config/heartbeat". Durations in seconds.
type HeartbeatConfig struct {
	Interval   float64 `json:"interval"`
	SleepAfter float64 `json:"sleep_after"` // 0 disables the sleep request
}

// SleepRequest is published on "pad/power/sleep" after a long disconnect.
type SleepRequest struct {
	IdleMs int64  `json:"idle_ms"`
	Reason string `json:"reason"`
}
