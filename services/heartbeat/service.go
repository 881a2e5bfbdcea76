package heartbeat

import (
	"context"
	"time"

	"gamepad-go/bus"
	"gamepad-go/types"
	"gamepad-go/x/jsonx"
	"gamepad-go/x/logx"
	"gamepad-go/x/timex"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicLink            = bus.T("pad", "link")
	topicSleep           = bus.T("pad", "power", "sleep")
)

// TopicSleep carries types.SleepRequest.
func TopicSleep() bus.Topic { return topicSleep }

type Service struct {
	interval   time.Duration
	sleepAfter time.Duration
	now        func() time.Time

	linkKnown bool
	connected bool
	downSince time.Time
	requested bool
}

func New() *Service {
	return &Service{interval: time.Second, now: time.Now}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	linkSub := conn.Subscribe(topicLink)
	defer conn.Unsubscribe(linkSub)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick, link and config changes
	for {
		select {
		case <-ctx.Done():
			logx.Info(logx.ComponentSystem, "heartbeat service stopping")
			return
		case <-tick.C:
			s.beat(conn)
		case msg := <-linkSub.Channel():
			var ls types.LinkState
			if err := jsonx.Decode(msg.Payload, &ls); err == nil {
				s.onLink(ls.Connected)
			}
		case msg := <-cfgSub.Channel():
			var hc types.HeartbeatConfig
			if err := jsonx.Decode(msg.Payload, &hc); err != nil {
				logx.Warn(logx.ComponentSystem, "bad heartbeat config", "err", err)
				continue
			}
			if hc.Interval > 0 {
				s.interval = time.Duration(hc.Interval * float64(time.Second))
				tick.Reset(s.interval)
			}
			s.sleepAfter = time.Duration(hc.SleepAfter * float64(time.Second))
			logx.Info(logx.ComponentSystem, "heartbeat configured", "interval", s.interval, "sleep_after", s.sleepAfter)
		}
	}
}

func (s *Service) onLink(connected bool) {
	if s.linkKnown && connected == s.connected {
		return
	}
	s.linkKnown = true
	s.connected = connected
	if connected {
		s.requested = false
		return
	}
	s.downSince = s.now()
}

// beat logs liveness and raises a sleep request once the link has been down
// for sleepAfter.
func (s *Service) beat(conn *bus.Connection) {
	if !s.linkKnown || s.connected {
		logx.Debug(logx.ComponentSystem, "heartbeat", "connected", s.connected)
		return
	}
	idle := s.now().Sub(s.downSince)
	logx.Info(logx.ComponentSystem, "heartbeat, waiting for host", "idle", idle.Truncate(time.Second))
	if s.sleepAfter <= 0 || s.requested || idle < s.sleepAfter {
		return
	}
	s.requested = true
	logx.Warn(logx.ComponentSystem, "no host connection, requesting sleep", "idle", idle)
	conn.Publish(conn.NewMessage(topicSleep, types.SleepRequest{IdleMs: timex.Ms(idle), Reason: "disconnected"}, false))
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
