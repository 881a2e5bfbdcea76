package heartbeat

import (
	"context"
	"testing"
	"time"

	"gamepad-go/bus"
	"gamepad-go/types"
)

func TestSleepRequestedAfterIdleDisconnect(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	sleep := conn.Subscribe(TopicSleep())

	conn.Publish(conn.NewMessage(bus.T("config", "heartbeat"),
		map[string]any{"interval": 0.005, "sleep_after": 0.03}, true))
	conn.Publish(conn.NewMessage(bus.T("pad", "link"), types.LinkState{Connected: false}, true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = New().Start(ctx, b.NewConnection("heartbeat"))

	select {
	case m := <-sleep.Channel():
		req, ok := m.Payload.(types.SleepRequest)
		if !ok || req.IdleMs < 30 || req.Reason != "disconnected" {
			t.Fatalf("sleep request = %#v", m.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no sleep request")
	}

	// Only one request per disconnect.
	select {
	case m := <-sleep.Channel():
		t.Fatalf("second sleep request %#v", m.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNoSleepWhileConnected(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	sleep := conn.Subscribe(TopicSleep())

	conn.Publish(conn.NewMessage(bus.T("config", "heartbeat"),
		types.HeartbeatConfig{Interval: 0.005, SleepAfter: 0.01}, true))
	conn.Publish(conn.NewMessage(bus.T("pad", "link"), types.LinkState{Connected: true}, true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = New().Start(ctx, b.NewConnection("heartbeat"))

	select {
	case m := <-sleep.Channel():
		t.Fatalf("unexpected sleep request %#v", m.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconnectClearsRequest(t *testing.T) {
	now := time.Unix(0, 0)
	s := New()
	s.now = func() time.Time { return now }
	s.sleepAfter = time.Minute

	b := bus.NewBus(8)
	conn := b.NewConnection("hb")
	sleep := conn.Subscribe(TopicSleep())

	s.onLink(false)
	now = now.Add(2 * time.Minute)
	s.beat(conn)
	if !s.requested {
		t.Fatal("expected request")
	}
	<-sleep.Channel()

	s.onLink(true)
	if s.requested {
		t.Fatal("reconnect should clear the request")
	}
	s.onLink(false)
	now = now.Add(30 * time.Second)
	s.beat(conn)
	if s.requested {
		t.Fatal("requested before sleep_after elapsed")
	}
}
