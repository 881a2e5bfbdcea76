package config

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"gamepad-go/bus"
	"gamepad-go/x/logx"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

type ctxKey string

var ctxDeviceKey = ctxKey(CtxDeviceKey)

// WithDevice returns a context carrying the device ID.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, ctxDeviceKey, device)
}

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Devices lists the device IDs with an embedded config.
func Devices() []string {
	out := make([]string, 0, len(embeddedConfigs))
	for k := range embeddedConfigs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	// Overlay replaces top-level keys of the embedded document, e.g. with
	// values from a config file on the host.
	Overlay map[string]any
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// Load resolves the config document for device with the overlay applied.
func (s *ConfigService) Load(device string) (map[string]any, error) {
	if device == "" {
		return nil, errors.New("missing device ID")
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errors.New("no embedded config for device: " + device)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.New("embedded config is not a JSON object: " + err.Error())
	}
	for k, v := range s.Overlay {
		m[k] = v
	}
	return m, nil
}

// publishConfig reads the device config and publishes one retained message
// per top-level key.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(ctxDeviceKey).(string)
	m, err := s.Load(device)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  m[k],
			Retained: true,
		})
	}
	logx.Info(logx.ComponentConfig, "config published", "device", device, "keys", len(keys))
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			logx.Error(logx.ComponentConfig, "config not published", "err", err)
		}
	}()
}
