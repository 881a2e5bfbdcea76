//go:build tinygo

// Command selftest exercises the bus on the target before the gamepad
// firmware is trusted on it. The LED stays lit when every check passes and
// blinks otherwise.
//
//	tinygo flash -target <board> ./bus/cmd/selftest
package main

import (
	"context"
	"machine"
	"sort"
	"time"

	"gamepad-go/bus"
	"gamepad-go/x/logx"
)

const component logx.Component = "selftest"

func expect(sub *bus.Subscription, want string, timeout time.Duration) bool {
	select {
	case got := <-sub.Channel():
		s, ok := got.Payload.(string)
		return ok && s == want
	case <-time.After(timeout):
		return false
	}
}

func silent(sub *bus.Subscription, timeout time.Duration) bool {
	select {
	case <-sub.Channel():
		return false
	case <-time.After(timeout):
		return true
	}
}

func drain(sub *bus.Subscription, n int, timeout time.Duration) []string {
	var out []string
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case m := <-sub.Channel():
			s, _ := m.Payload.(string)
			out = append(out, s)
		case <-deadline:
			return out
		}
	}
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Retained link state reaches a late subscriber.
func checkRetained() bool {
	b := bus.NewBus(4)
	c := b.NewConnection("t")
	c.Publish(c.NewMessage(bus.T("pad", "link"), "up", true))
	return expect(c.Subscribe(bus.T("pad", "link")), "up", 100*time.Millisecond)
}

// Button events fan out by pin through a single-level wildcard.
func checkWildcard() bool {
	b := bus.NewBus(8)
	c := b.NewConnection("t")
	all := c.Subscribe(bus.T("pad", "button", "+", "event"))
	one := c.Subscribe(bus.T("pad", "button", 5, "event"))

	c.Publish(c.NewMessage(bus.T("pad", "button", 12, "event"), "p12", false))
	if !expect(all, "p12", 100*time.Millisecond) || !silent(one, 50*time.Millisecond) {
		return false
	}
	c.Publish(c.NewMessage(bus.T("pad", "button", 5, "event"), "p5", false))
	return expect(all, "p5", 100*time.Millisecond) && expect(one, "p5", 100*time.Millisecond)
}

// Config keys retained under config/# all replay to a new subscriber, and a
// nil payload clears one.
func checkRetainedTree() bool {
	b := bus.NewBus(8)
	c := b.NewConnection("t")
	c.Publish(c.NewMessage(bus.T("config", "pad"), "pad", true))
	c.Publish(c.NewMessage(bus.T("config", "web"), "web", true))
	c.Publish(c.NewMessage(bus.T("config", "heartbeat"), "hb", true))
	c.Publish(c.NewMessage(bus.T("config", "web"), nil, true))
	got := drain(c.Subscribe(bus.T("config", "#")), 2, 200*time.Millisecond)
	return equal(got, []string{"hb", "pad"})
}

func checkRequestReply() bool {
	b := bus.NewBus(8)
	req := b.NewConnection("req")
	resp := b.NewConnection("resp")
	sub := resp.Subscribe(bus.T("pad", "state", "get"))
	go func() {
		if m, ok := <-sub.Channel(); ok {
			resp.Reply(m, "idle", false)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	reply, err := req.RequestWait(ctx, req.NewMessage(bus.T("pad", "state", "get"), nil, false))
	if err != nil {
		return false
	}
	s, _ := reply.Payload.(string)
	return s == "idle"
}

func checkRequestTimeout() bool {
	b := bus.NewBus(8)
	c := b.NewConnection("req")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.RequestWait(ctx, c.NewMessage(bus.T("nobody", "home"), nil, false))
	return err != nil
}

func checkBadToken() (ok bool) {
	defer func() { ok = recover() != nil }()
	_ = bus.T([]byte{1})
	return false
}

func main() {
	time.Sleep(250 * time.Millisecond)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.High()

	checks := []struct {
		name string
		fn   func() bool
	}{
		{"retained", checkRetained},
		{"wildcard", checkWildcard},
		{"retained_tree", checkRetainedTree},
		{"request_reply", checkRequestReply},
		{"request_timeout", checkRequestTimeout},
		{"bad_token", checkBadToken},
	}

	failed := 0
	for _, c := range checks {
		if c.fn() {
			logx.Info(component, "pass", "check", c.name)
		} else {
			logx.Error(component, "fail", "check", c.name)
			failed++
		}
		time.Sleep(10 * time.Millisecond)
	}
	logx.Info(component, "done", "checks", len(checks), "failed", failed)

	for {
		led.High()
		if failed == 0 {
			time.Sleep(2 * time.Second)
			continue
		}
		time.Sleep(250 * time.Millisecond)
		led.Low()
		time.Sleep(250 * time.Millisecond)
	}
}
