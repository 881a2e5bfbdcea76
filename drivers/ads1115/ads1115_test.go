package ads1115

import (
	"errors"
	"sync"
	"testing"
	"time"

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*fakeI2C)(nil)

// Scripted ADS1115-like fake.
type fakeI2C struct {
	mu        sync.Mutex
	addr      uint16
	config    uint16
	readyAt   time.Time
	values    [4]int16
	convTime  time.Duration
	lastWrite []byte
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addr = addr
	now := time.Now()

	switch {
	case len(w) == 3 && w[0] == regConfig:
		f.lastWrite = append([]byte(nil), w...)
		f.config = uint16(w[1])<<8 | uint16(w[2])
		f.readyAt = now.Add(f.convTime)
		return nil
	case len(w) == 1 && w[0] == regConfig && len(r) == 2:
		c := f.config &^ cfgOS
		if !now.Before(f.readyAt) {
			c |= cfgOS
		}
		r[0], r[1] = byte(c>>8), byte(c)
		return nil
	case len(w) == 1 && w[0] == regConversion && len(r) == 2:
		ch := (f.config >> 12) & 0x3
		v := uint16(f.values[ch])
		r[0], r[1] = byte(v>>8), byte(v)
		return nil
	}
	return errors.New("fake: unexpected transaction")
}

func TestConfigWord(t *testing.T) {
	d := New(&fakeI2C{}, Config{Gain: Gain4V096})
	// OS | AIN2 single-ended | ±4.096 V | single-shot | 860 SPS | comparator off
	if got := d.configWord(2); got != 0xE3E3 {
		t.Fatalf("configWord(2) = %#04x, want 0xe3e3", got)
	}
}

func TestReadPerChannel(t *testing.T) {
	bus := &fakeI2C{values: [4]int16{100, 20000, -5, 32767}, convTime: time.Millisecond}
	d := New(bus, Config{})
	for ch, want := range []int16{100, 20000, -5, 32767} {
		got, err := d.Read(ch)
		if err != nil {
			t.Fatalf("ch %d: %v", ch, err)
		}
		if got != want {
			t.Fatalf("ch %d = %d, want %d", ch, got, want)
		}
	}
	if bus.addr != Address {
		t.Fatalf("addr = %#x", bus.addr)
	}
}

func TestCollectNotReady(t *testing.T) {
	bus := &fakeI2C{convTime: time.Hour}
	d := New(bus, Config{Address: 0x49})
	if err := d.Trigger(0); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Collect(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v", err)
	}
	if bus.addr != 0x49 {
		t.Fatalf("addr = %#x", bus.addr)
	}
	d.cfg.CollectTimeout = 2 * time.Millisecond
	if _, err := d.Read(0); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v", err)
	}
}

func TestChannelSourceClampsNegative(t *testing.T) {
	bus := &fakeI2C{values: [4]int16{-40, 1234}}
	d := New(bus, Config{})
	if v, err := d.Channel(0).Read(); err != nil || v != 0 {
		t.Fatalf("Read = %d, %v", v, err)
	}
	if v, err := d.Channel(1).Read(); err != nil || v != 1234 {
		t.Fatalf("Read = %d, %v", v, err)
	}
	if _, err := d.Channel(4).Read(); !errors.Is(err, ErrChannel) {
		t.Fatalf("err = %v", err)
	}
}

func TestDefaultGainIsWidest(t *testing.T) {
	d := New(&fakeI2C{}, Config{})
	if got := d.configWord(0); got != 0xC1E3 {
		t.Fatalf("configWord(0) = %#04x, want 0xc1e3", got)
	}
}
