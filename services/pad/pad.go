// Package pad wires the gamepad core together: configuration queue, applier,
// button scanner, analog reporter and HID sink, exposed on the bus.
package pad

import (
	"context"
	"errors"
	"sync"
	"time"

	"gamepad-go/bus"
	"gamepad-go/errcode"
	"gamepad-go/services/pad/internal/analog"
	"gamepad-go/services/pad/internal/applier"
	"gamepad-go/services/pad/internal/cfgchan"
	"gamepad-go/services/pad/internal/debounce"
	"gamepad-go/services/pad/internal/halcore"
	"gamepad-go/services/pad/internal/handoff"
	"gamepad-go/services/pad/internal/hidsink"
	"gamepad-go/services/pad/internal/scanner"
	"gamepad-go/types"
	"gamepad-go/x/jsonx"
	"gamepad-go/x/logx"
	"gamepad-go/x/timex"
)

const (
	// DefaultSubmitWait bounds how long a transport waits on a full queue.
	DefaultSubmitWait = 50 * time.Millisecond
	// DefaultStatusPeriod is how often link state is checked.
	DefaultStatusPeriod = 250 * time.Millisecond
)

// Deps are the hardware collaborators.
type Deps struct {
	Input    halcore.DigitalInput
	HID      halcore.HidDevice
	Throttle halcore.AnalogSource
	Brake    halcore.AnalogSource
}

type Options struct {
	QueueLen     int
	ChipSeries   string
	SubmitWait   time.Duration
	ScanPeriod   time.Duration
	AnalogPeriod time.Duration
	StatusPeriod time.Duration
	Timing       debounce.Timing
	Throttle     analog.Calibration
	Brake        analog.Calibration
}

type Service struct {
	conn *bus.Connection
	opts Options

	queue   *cfgchan.Channel
	pub     *handoff.Handle
	sink    *hidsink.Sink
	applier *applier.Applier
	scanner *scanner.Scanner
	analog  *analog.Reporter

	linkMu    sync.Mutex
	connected bool
}

func New(conn *bus.Connection, deps Deps, opts Options) *Service {
	if opts.SubmitWait <= 0 {
		opts.SubmitWait = DefaultSubmitWait
	}
	if opts.StatusPeriod <= 0 {
		opts.StatusPeriod = DefaultStatusPeriod
	}

	s := &Service{conn: conn, opts: opts}
	s.queue = cfgchan.New(opts.QueueLen)
	s.pub = handoff.New(func(old *handoff.Snapshot) {
		logx.Debug(logx.ComponentPad, "snapshot retired", "gen", old.Gen, "pins", old.Pins.String())
	})
	s.sink = hidsink.New(deps.HID, 0)
	s.applier = applier.New(s.queue, s.pub, deps.Input, applier.Config{
		ChipSeries: opts.ChipSeries,
		OnResult:   s.onResult,
	})
	s.scanner = scanner.New(s.pub, deps.Input, s.sink, scanner.Config{
		Period:  opts.ScanPeriod,
		Timing:  opts.Timing,
		OnEvent: s.onButton,
	})
	s.analog = analog.New(deps.Throttle, deps.Brake, s.sink, analog.Config{
		Period:   opts.AnalogPeriod,
		Throttle: opts.Throttle,
		Brake:    opts.Brake,
	})
	return s
}

// Submit queues a configuration update. It is what every transport (HTTP,
// console, bus) calls. A full queue is logged as a dropped update.
func (s *Service) Submit(ctx context.Context, key, value string) error {
	err := s.queue.Send(ctx, cfgchan.Message{Key: key, Value: value}, s.opts.SubmitWait)
	switch {
	case err == nil:
	case errors.Is(err, errcode.Timeout):
		logx.Warn(logx.ComponentPad, "config update dropped, queue full",
			"key", key, "dropped", s.queue.Dropped())
	default:
		logx.Warn(logx.ComponentPad, "config update refused", "key", key, "err", err)
	}
	return err
}

// Run starts the workers and serves the bus until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, run := range []func(context.Context){s.sink.Run, s.applier.Run, s.scanner.Run, s.analog.Run} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}
	s.serve(ctx)
	wg.Wait()
	return nil
}

// Start runs the service in the background.
func (s *Service) Start(ctx context.Context) {
	go func() { _ = s.Run(ctx) }()
}

func (s *Service) serve(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfigPad)
	setSub := s.conn.Subscribe(topicConfigSet)
	getSub := s.conn.Subscribe(topicStateGet)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(setSub)
	defer s.conn.Unsubscribe(getSub)

	tick := time.NewTicker(s.opts.StatusPeriod)
	defer tick.Stop()

	s.publishLink(s.sink.IsConnected())
	s.publishState()
	logx.Info(logx.ComponentPad, "pad service started")

	for {
		select {
		case <-ctx.Done():
			logx.Info(logx.ComponentPad, "pad service stopping")
			return
		case m := <-cfgSub.Channel():
			s.handleBootConfig(ctx, m)
		case m := <-setSub.Channel():
			s.handleSet(ctx, m)
		case m := <-getSub.Channel():
			s.conn.Reply(m, s.Status(), false)
		case <-tick.C:
			if c := s.sink.IsConnected(); c != s.linkState() {
				s.publishLink(c)
				s.publishState()
			}
		}
	}
}

// handleBootConfig turns a retained config/pad document into queue messages.
// The chip goes first so the pin list is validated against it.
func (s *Service) handleBootConfig(ctx context.Context, m *bus.Message) {
	var pc types.PadConfig
	if err := jsonx.Decode(m.Payload, &pc); err != nil {
		logx.Error(logx.ComponentPad, "bad pad config", "err", err)
		return
	}
	for _, kv := range BootMessages(pc) {
		_ = s.Submit(ctx, kv.Key, kv.Value)
	}
}

// BootMessages orders a PadConfig into the updates that apply it.
func BootMessages(pc types.PadConfig) []types.ConfigSet {
	var out []types.ConfigSet
	if pc.Chip != "" {
		out = append(out, types.ConfigSet{Key: applier.KeyChipSeries, Value: pc.Chip})
	}
	if pc.ButtonMap != "" {
		out = append(out, types.ConfigSet{Key: applier.KeyButtonMap, Value: pc.ButtonMap})
	}
	if pc.ScanMode != "" {
		out = append(out, types.ConfigSet{Key: applier.KeyScanMode, Value: pc.ScanMode})
	}
	return append(out, types.ConfigSet{Key: applier.KeyApply, Value: pc.Pins})
}

func (s *Service) handleSet(ctx context.Context, m *bus.Message) {
	var cs types.ConfigSet
	err := jsonx.Decode(m.Payload, &cs)
	if err != nil {
		err = errcode.Wrap(errcode.InvalidPayload, "pad.set", "", err)
	} else {
		err = s.Submit(ctx, cs.Key, cs.Value)
	}
	s.conn.Reply(m, string(errcode.Of(err)), false)
}

func (s *Service) onResult(r applier.Result) {
	res := types.ConfigResult{Key: r.Key, Value: r.Value, OK: r.Err == nil, Gen: r.Gen}
	if r.Err != nil {
		res.Error = r.Err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicResult, res, false))
	s.publishState()
}

func (s *Service) onButton(ev scanner.Event) {
	s.conn.Publish(s.conn.NewMessage(TopicButtonEvent(int(ev.Pin)), types.ButtonEvent{
		Pin:     int(ev.Pin),
		Pair:    pairOf(ev),
		Code:    int(ev.Code),
		Pressed: ev.Edge == debounce.Pressed,
		Gen:     ev.Gen,
		TS:      ev.At.UnixMilli(),
	}, false))
}

func pairOf(ev scanner.Event) int {
	if ev.Pair == ev.Pin {
		return 0
	}
	return int(ev.Pair)
}

func (s *Service) linkState() bool {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	return s.connected
}

func (s *Service) publishLink(c bool) {
	s.linkMu.Lock()
	s.connected = c
	s.linkMu.Unlock()
	if c {
		logx.Info(logx.ComponentHID, "hid link up")
	} else {
		logx.Info(logx.ComponentHID, "hid link down")
	}
	s.conn.Publish(s.conn.NewMessage(topicLink, types.LinkState{Connected: c, TS: timex.NowMs()}, true))
}

func (s *Service) publishState() {
	s.conn.Publish(s.conn.NewMessage(topicState, s.Status(), true))
}

// Status assembles the current status document.
func (s *Service) Status() types.PadStatus {
	a := s.applier.Status()
	sc := s.scanner.Stats()
	hs := s.sink.Stats()
	th, br := s.analog.Axes()
	return types.PadStatus{
		State:        a.State.String(),
		ChipSeries:   a.ChipSeries,
		Pins:         a.Pins,
		ButtonMap:    a.ButtonMap,
		ScanMode:     a.Mode.String(),
		Gen:          s.pub.Generation(),
		Connected:    s.sink.IsConnected(),
		Throttle:     th,
		Brake:        br,
		LastError:    a.LastError,
		Applied:      a.Applied,
		Rejected:     a.Rejected,
		UnknownKeys:  a.Unknown,
		QueueDropped: s.queue.Dropped(),
		Events:       sc.Events,
		ScanPanics:   sc.Panics,
		ReportsSent:  hs.Sent,
		SendFailures: hs.Failed,
		HIDCoalesced: hs.Coalesced,
	}
}
