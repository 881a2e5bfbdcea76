package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx by WithDevice)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgESP32S3 = `{
  "pad": {
    "chip": "ESP32_S3",
    "pins": "4,5,6,7",
    "scan_mode": "single"
  },
  "heartbeat": {
    "interval": 2,
    "sleep_after": 300
  },
  "web": {
    "addr": ":80"
  }
}`

const cfgESP32C3 = `{
  "pad": {
    "chip": "ESP32_C3",
    "pins": "4,5,6,7"
  },
  "heartbeat": {
    "interval": 2,
    "sleep_after": 300
  },
  "web": {
    "addr": ":80"
  }
}`

// Simulator and Linux host runs.
const cfgHost = `{
  "pad": {
    "pins": "4,5,6",
    "button_map": "4:1,5:2,6:3"
  },
  "heartbeat": {
    "interval": 5,
    "sleep_after": 0
  },
  "web": {
    "addr": "127.0.0.1:8080"
  }
}`

var embeddedConfigs = map[string][]byte{
	"esp32s3-devkit": []byte(cfgESP32S3),
	"esp32c3-devkit": []byte(cfgESP32C3),
	"host":           []byte(cfgHost),
}
