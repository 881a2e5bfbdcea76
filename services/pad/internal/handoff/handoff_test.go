package handoff

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gamepad-go/services/pad/internal/pinset"
)

type retireLog struct {
	mu   sync.Mutex
	gens map[uint32]bool
}

func newRetireLog() *retireLog { return &retireLog{gens: map[uint32]bool{}} }

func (r *retireLog) hook(s *Snapshot) {
	r.mu.Lock()
	r.gens[s.Gen] = true
	r.mu.Unlock()
}

func (r *retireLog) retired(gen uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[gen]
}

func mustPins(t testing.TB, s string) *pinset.PinSet {
	t.Helper()
	p, err := pinset.Parse(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestInitialSnapshotIsEmpty(t *testing.T) {
	h := New(nil)
	s := h.Acquire()
	if s.Pins.Len() != 0 || s.Gen != 1 {
		t.Fatalf("initial = gen %d len %d", s.Gen, s.Pins.Len())
	}
}

func TestUnobservedSnapshotRetiredOnNextPublish(t *testing.T) {
	log := newRetireLog()
	h := New(log.hook)

	g2 := h.Publish(&Snapshot{Pins: mustPins(t, "4,5")})
	if !log.retired(1) {
		t.Fatal("never-acquired initial snapshot should retire at once")
	}
	h.Publish(&Snapshot{Pins: mustPins(t, "6")})
	if !log.retired(g2) {
		t.Fatal("never-acquired snapshot should retire at next publish")
	}
	if h.Pending() != 0 {
		t.Fatalf("Pending() = %d", h.Pending())
	}
}

func TestHeldSnapshotRetiredAfterReaderMovesOn(t *testing.T) {
	log := newRetireLog()
	h := New(log.hook)

	g := h.Publish(&Snapshot{Pins: mustPins(t, "4,5")})
	held := h.Acquire()
	if held.Gen != g {
		t.Fatalf("acquired gen %d, want %d", held.Gen, g)
	}

	g2 := h.Publish(&Snapshot{Pins: mustPins(t, "7")})
	if log.retired(g) {
		t.Fatal("snapshot retired while the reader still holds it")
	}
	if h.Pending() != 1 {
		t.Fatalf("Pending() = %d", h.Pending())
	}
	if again := h.Load(); again.Gen != g2 {
		t.Fatal("Load must see the newest snapshot")
	}
	if log.retired(g) {
		t.Fatal("Load must not count as the reader moving on")
	}

	next := h.Acquire()
	if next.Gen != g2 || next.Pins.String() != "7" {
		t.Fatalf("next = gen %d pins %s", next.Gen, next.Pins)
	}
	if !log.retired(g) {
		t.Fatal("old snapshot not retired after reader acquired a newer one")
	}
	if h.Pending() != 0 {
		t.Fatalf("Pending() = %d", h.Pending())
	}
}

func TestSnapshotDefaults(t *testing.T) {
	s := &Snapshot{Codes: []uint8{3, 0}, Seeds: []bool{false}}
	if s.Code(0) != 3 || s.Code(1) != 1 || s.Code(5) != 1 {
		t.Fatal("Code defaults")
	}
	if s.Seed(0) || !s.Seed(1) {
		t.Fatal("Seed defaults")
	}
	if m, ok := ParseMode("pairs"); !ok || m != ModePairs || m.String() != "pairs" {
		t.Fatal("ParseMode pairs")
	}
	if _, ok := ParseMode("diagonal"); ok {
		t.Fatal("ParseMode accepted junk")
	}
}

// A publisher and a reader race; the reader must never observe its held
// snapshot being retired, and must always see a consistent snapshot.
func TestConcurrentPublishAndAcquire(t *testing.T) {
	log := newRetireLog()
	h := New(log.hook)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var sets []*pinset.PinSet
	for _, txt := range []string{"", "4", "4,5", "12,5,8", "1,2,3,4,5,6"} {
		sets = append(sets, mustPins(t, txt))
	}
	var published atomic.Uint32
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; ctx.Err() == nil; i++ {
			p := sets[i%len(sets)]
			seeds := make([]bool, p.Len())
			h.Publish(&Snapshot{Pins: p, Seeds: seeds})
			published.Add(1)
		}
	}()

	var failure atomic.Value
	go func() {
		defer wg.Done()
		var last uint32
		for ctx.Err() == nil {
			s := h.Acquire()
			if s.Gen < last {
				failure.Store("generation went backwards")
				return
			}
			last = s.Gen
			if len(s.Seeds) != s.Pins.Len() {
				failure.Store("torn snapshot")
				return
			}
			for i := 0; i < s.Pins.Len(); i++ {
				if _, err := s.Pins.At(i); err != nil {
					failure.Store(err.Error())
					return
				}
			}
			if log.retired(s.Gen) {
				failure.Store("held snapshot retired")
				return
			}
		}
	}()
	wg.Wait()

	if f := failure.Load(); f != nil {
		t.Fatal(f)
	}
	if published.Load() == 0 {
		t.Fatal("publisher made no progress")
	}
	if h.Pending() > 1 {
		t.Fatalf("Pending() = %d, want at most one held snapshot", h.Pending())
	}
}
