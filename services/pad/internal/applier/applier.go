// Package applier consumes configuration messages and publishes new scan
// snapshots for the button scanner.
package applier

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gamepad-go/errcode"
	"gamepad-go/services/pad/internal/cfgchan"
	"gamepad-go/services/pad/internal/chips"
	"gamepad-go/services/pad/internal/halcore"
	"gamepad-go/services/pad/internal/handoff"
	"gamepad-go/services/pad/internal/pinset"
	"gamepad-go/x/logx"
	"gamepad-go/x/mathx"
)

// Recognised configuration keys.
const (
	KeyApply      = "apply"
	KeyChipSeries = "esp32_chip_series"
	KeyButtonMap  = "button_map"
	KeyScanMode   = "scan_mode"
)

// MaxButtonCode is the highest HID button number a pin may map to.
const MaxButtonCode = 32

const DefaultRecvWait = 100 * time.Millisecond

type State uint32

const (
	Idle State = iota
	Parsing
	Publishing
)

func (s State) String() string {
	switch s {
	case Parsing:
		return "parsing"
	case Publishing:
		return "publishing"
	}
	return "idle"
}

// Result describes how one message was handled.
type Result struct {
	Key   string
	Value string
	Err   error  // nil when accepted
	Gen   uint32 // generation published, 0 if none
	// LongValue is Value read as a decimal integer, when it is one.
	LongValue int64
	HasLong   bool
}

type Config struct {
	// ChipSeries selects the initial pin validator; empty means chips.Default.
	ChipSeries string
	RecvWait   time.Duration
	// OnResult, if set, is called after every handled message.
	OnResult func(Result)
	Now      func() time.Time
}

// Status is a point-in-time view for status pages.
type Status struct {
	State      State
	ChipSeries string
	Pins       string
	ButtonMap  string
	Mode       handoff.Mode
	Applied    uint32
	Rejected   uint32
	Unknown    uint32
	LastError  string
}

type Applier struct {
	ch  *cfgchan.Channel
	pub *handoff.Handle
	in  halcore.DigitalInput
	cfg Config

	state atomic.Uint32

	mu         sync.RWMutex
	chipSeries string
	chip       chips.Chip
	pins       *pinset.PinSet
	buttonMap  map[pinset.PinID]uint8
	mapText    string
	mode       handoff.Mode
	lastErr    string

	applied, rejected, unknown atomic.Uint32
}

func New(ch *cfgchan.Channel, pub *handoff.Handle, in halcore.DigitalInput, cfg Config) *Applier {
	if cfg.RecvWait <= 0 {
		cfg.RecvWait = DefaultRecvWait
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	a := &Applier{ch: ch, pub: pub, in: in, cfg: cfg, chip: chips.Default, chipSeries: chips.Default.Series, pins: pinset.Empty}
	if cfg.ChipSeries != "" {
		a.setChip(cfg.ChipSeries)
	}
	return a
}

// Run handles messages until ctx is cancelled.
func (a *Applier) Run(ctx context.Context) {
	logx.Info(logx.ComponentApplier, "applier started", "chip", a.ChipSeries())
	for {
		msg, err := a.ch.Recv(ctx, a.cfg.RecvWait)
		if err != nil {
			if ctx.Err() != nil {
				logx.Info(logx.ComponentApplier, "applier stopping")
				return
			}
			continue // receive timeout; idle poll
		}
		a.Handle(msg)
	}
}

// Handle applies one message synchronously.
func (a *Applier) Handle(msg cfgchan.Message) Result {
	res := Result{Key: msg.Key, Value: msg.Value}
	if n, err := strconv.ParseInt(strings.TrimSpace(msg.Value), 10, 64); err == nil {
		res.LongValue, res.HasLong = n, true
	}
	logx.Debug(logx.ComponentApplier, "config message", "key", msg.Key, "value", msg.Value,
		"long_value", res.LongValue)

	switch msg.Key {
	case KeyApply:
		res.Gen, res.Err = a.apply(msg.Value)
	case KeyChipSeries:
		a.setChip(msg.Value)
	case KeyButtonMap:
		res.Gen, res.Err = a.setButtonMap(msg.Value)
	case KeyScanMode:
		res.Gen, res.Err = a.setMode(msg.Value)
	default:
		a.unknown.Add(1)
		res.Err = errcode.Wrap(errcode.UnknownKey, "applier", msg.Key, nil)
		logx.Warn(logx.ComponentApplier, "unknown config key ignored", "key", msg.Key)
	}
	a.state.Store(uint32(Idle))

	if res.Err != nil && !errors.Is(res.Err, errcode.UnknownKey) {
		a.rejected.Add(1)
		a.mu.Lock()
		a.lastErr = res.Err.Error()
		a.mu.Unlock()
		logx.Warn(logx.ComponentApplier, "config rejected", "key", msg.Key, "value", msg.Value, "err", res.Err)
	}
	if a.cfg.OnResult != nil {
		a.cfg.OnResult(res)
	}
	return res
}

func (a *Applier) apply(text string) (uint32, error) {
	a.state.Store(uint32(Parsing))
	a.mu.RLock()
	chip := a.chip
	a.mu.RUnlock()

	ps, err := pinset.Parse(text, chip.Valid)
	if err != nil {
		return 0, err
	}
	return a.publish(ps)
}

// publish configures the pins, captures their levels and swaps in a new
// snapshot. The snapshot is a pure function of the levels read, the pins,
// the button map and the mode.
func (a *Applier) publish(ps *pinset.PinSet) (uint32, error) {
	a.state.Store(uint32(Publishing))

	pins := ps.Pins()
	if pc, ok := a.in.(halcore.PinConfigurer); ok {
		for _, p := range pins {
			if err := pc.ConfigureInput(p); err != nil {
				return 0, errcode.Wrap(errcode.InvalidPinList, "applier.configure",
					"gpio "+strconv.Itoa(int(p)), err)
			}
		}
	}

	a.mu.RLock()
	mode := a.mode
	codes := make([]uint8, len(pins))
	for i, p := range pins {
		codes[i] = 1
		if c, ok := a.buttonMap[p]; ok {
			codes[i] = c
		}
	}
	a.mu.RUnlock()

	seeds := make([]bool, len(pins))
	for i, p := range pins {
		seeds[i] = a.in.Level(p)
	}

	if mode == handoff.ModePairs && len(pins)%2 == 1 {
		logx.Warn(logx.ComponentApplier, "odd pin count in pairs mode, last pin ignored",
			"pin", pins[len(pins)-1])
	}

	gen := a.pub.Publish(&handoff.Snapshot{
		Pins:  ps,
		Seeds: seeds,
		Codes: codes,
		Mode:  mode,
		At:    a.cfg.Now(),
	})

	a.mu.Lock()
	a.pins = ps
	a.lastErr = ""
	a.mu.Unlock()
	a.applied.Add(1)
	logx.Info(logx.ComponentApplier, "pin set published", "gen", gen, "pins", ps.String(), "mode", mode.String())
	return gen, nil
}

// republish rebuilds the snapshot for the current pins, resetting debounce.
func (a *Applier) republish() (uint32, error) {
	a.mu.RLock()
	ps := a.pins
	a.mu.RUnlock()
	return a.publish(ps)
}

func (a *Applier) setChip(series string) {
	series = strings.TrimSpace(series)
	c, known := chips.Lookup(series)

	a.mu.Lock()
	a.chipSeries = series
	if known {
		a.chip = c
	}
	pins := a.pins
	a.mu.Unlock()

	if !known {
		logx.Warn(logx.ComponentApplier, "unknown chip series stored, pin validation unchanged", "series", series)
		return
	}
	logx.Info(logx.ComponentApplier, "chip series set", "series", c.Series)
	for _, p := range pins.Pins() {
		if !c.Valid(p) {
			logx.Warn(logx.ComponentApplier, "active pin not valid on new chip", "pin", p, "series", c.Series)
		}
	}
}

func (a *Applier) setButtonMap(text string) (uint32, error) {
	m, err := ParseButtonMap(text)
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	a.buttonMap = m
	a.mapText = FormatButtonMap(m)
	a.mu.Unlock()
	return a.republish()
}

func (a *Applier) setMode(text string) (uint32, error) {
	m, ok := handoff.ParseMode(strings.ToLower(strings.TrimSpace(text)))
	if !ok {
		return 0, errcode.Wrap(errcode.InvalidParams, "applier.scan_mode", strconv.Quote(text), nil)
	}
	a.mu.Lock()
	a.mode = m
	a.mu.Unlock()
	return a.republish()
}

// ParseButtonMap parses "pin:code,pin:code". Blank text yields nil, which maps
// every pin to button 1.
func ParseButtonMap(text string) (map[pinset.PinID]uint8, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	const op = "applier.button_map"
	m := map[pinset.PinID]uint8{}
	for _, tok := range strings.Split(text, ",") {
		ps, cs, ok := strings.Cut(strings.TrimSpace(tok), ":")
		if !ok {
			return nil, errcode.Wrap(errcode.InvalidParams, op, strconv.Quote(tok), nil)
		}
		p, err := strconv.ParseUint(strings.TrimSpace(ps), 10, 8)
		if err != nil {
			return nil, errcode.Wrap(errcode.InvalidParams, op, "pin "+strconv.Quote(ps), err)
		}
		c, err := strconv.ParseUint(strings.TrimSpace(cs), 10, 8)
		if err != nil || !mathx.Between(c, 1, MaxButtonCode) {
			return nil, errcode.Wrap(errcode.InvalidParams, op, "code "+strconv.Quote(cs), err)
		}
		if _, dup := m[pinset.PinID(p)]; dup {
			return nil, errcode.Wrap(errcode.InvalidParams, op, "pin "+ps+" mapped twice", errcode.DuplicatePin)
		}
		m[pinset.PinID(p)] = uint8(c)
	}
	return m, nil
}

// FormatButtonMap renders m in pin order.
func FormatButtonMap(m map[pinset.PinID]uint8) string {
	keys := make([]int, 0, len(m))
	for p := range m {
		keys = append(keys, int(p))
	}
	sort.Ints(keys)
	var b strings.Builder
	for i, p := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(p))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(m[pinset.PinID(p)])))
	}
	return b.String()
}

func (a *Applier) State() State { return State(a.state.Load()) }

func (a *Applier) ChipSeries() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.chipSeries
}

// Validator returns the pin validator of the current chip.
func (a *Applier) Validator() pinset.Validator {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.chip.Valid
}

func (a *Applier) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Status{
		State:      a.State(),
		ChipSeries: a.chipSeries,
		Pins:       a.pins.String(),
		ButtonMap:  a.mapText,
		Mode:       a.mode,
		Applied:    a.applied.Load(),
		Rejected:   a.rejected.Load(),
		Unknown:    a.unknown.Load(),
		LastError:  a.lastErr,
	}
}
