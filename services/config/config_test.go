package config

import (
	"context"
	"testing"
	"time"

	"gamepad-go/bus"
)

func TestConfig_PublishEmbedded_RetainedPerKey(t *testing.T) {
	// Override lookup for this test.
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		if device != "pad" {
			return nil, false
		}
		return []byte(`{
			"mode": "dev",
			"debug": true,
			"pad": {"pins": "4,5"}
		}`), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService()

	ctx := WithDevice(context.Background(), "pad")
	svc.Start(ctx, conn)

	// Subscribe; retained messages should arrive regardless of ordering.
	sub := conn.Subscribe(bus.T(configPrefix, "#"))

	wantCount := 3
	got := map[string]any{}

	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < wantCount && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if m.Topic.Len() != 2 {
				t.Fatalf("unexpected topic length: %#v", m.Topic)
			}
			if prefix, _ := m.Topic.At(0).(string); prefix != configPrefix {
				t.Fatalf("unexpected prefix: %v", m.Topic.At(0))
			}
			key, ok := m.Topic.At(1).(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", m.Topic.At(1))
			}
			if !m.Retained {
				t.Fatalf("config/%s not retained", key)
			}
			got[key] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(got) != wantCount {
		t.Fatalf("expected %d retained messages, got %d (%v)", wantCount, len(got), got)
	}
	if s, ok := got["mode"].(string); !ok || s != "dev" {
		t.Fatalf("mode payload = %#v", got["mode"])
	}
	if v, ok := got["debug"].(bool); !ok || !v {
		t.Fatalf("debug payload = %#v", got["debug"])
	}
	if m, ok := got["pad"].(map[string]any); !ok || m["pins"] != "4,5" {
		t.Fatalf("pad payload = %#v", got["pad"])
	}
}

func TestConfig_OverlayReplacesKeys(t *testing.T) {
	svc := NewConfigService()
	svc.Overlay = map[string]any{"pad": map[string]any{"pins": "9"}}
	m, err := svc.Load("host")
	if err != nil {
		t.Fatal(err)
	}
	if pad := m["pad"].(map[string]any); pad["pins"] != "9" {
		t.Fatalf("pad = %#v", pad)
	}
	if _, ok := m["heartbeat"]; !ok {
		t.Fatal("overlay dropped untouched keys")
	}
}

func TestConfig_EmbeddedDocumentsParse(t *testing.T) {
	svc := NewConfigService()
	for _, dev := range Devices() {
		m, err := svc.Load(dev)
		if err != nil {
			t.Fatalf("%s: %v", dev, err)
		}
		if _, ok := m["pad"].(map[string]any); !ok {
			t.Fatalf("%s: no pad section", dev)
		}
	}
}

func TestConfig_PublishConfig_MissingDevice(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-missing-device")
	svc := NewConfigService()

	if err := svc.publishConfig(context.Background(), conn); err == nil {
		t.Fatal("expected error for missing device ID, got nil")
	}
}

func TestConfig_PublishConfig_NoConfigFound(t *testing.T) {
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) { return nil, false }
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(4)
	conn := b.NewConnection("test-no-config")
	svc := NewConfigService()

	ctx := WithDevice(context.Background(), "unknown-device")
	if err := svc.publishConfig(ctx, conn); err == nil {
		t.Fatal("expected error for missing embedded config, got nil")
	}
}
