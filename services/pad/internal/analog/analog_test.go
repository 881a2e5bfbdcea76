package analog

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"gamepad-go/services/pad/internal/fakes"
	"gamepad-go/services/pad/internal/hidsink"
)

func TestCalibrationScale(t *testing.T) {
	cases := []struct {
		cal  Calibration
		raw  int
		want uint16
	}{
		{DefaultCalibration, 0, 0},
		{DefaultCalibration, 4095, AxisMax},
		{DefaultCalibration, 2048, 16387},
		{DefaultCalibration, -20, 0},
		{DefaultCalibration, 5000, AxisMax},
		{Calibration{RawMin: 4095, RawMax: 0}, 4095, 0}, // inverted pedal
		{Calibration{RawMin: 4095, RawMax: 0}, 0, AxisMax},
		{Calibration{RawMin: 100, RawMax: 100}, 100, 0},
	}
	for _, c := range cases {
		if got := c.cal.Scale(c.raw); got != c.want {
			t.Errorf("%+v.Scale(%d) = %d, want %d", c.cal, c.raw, got, c.want)
		}
	}
}

func newRig() (*fakes.ADC, *fakes.ADC, *fakes.HID, *hidsink.Sink, *Reporter) {
	thr, brk := &fakes.ADC{}, &fakes.ADC{}
	dev := fakes.NewHID()
	sink := hidsink.New(dev, 0)
	return thr, brk, dev, sink, New(thr, brk, sink, Config{})
}

func TestTickForwardsBothAxes(t *testing.T) {
	thr, brk, dev, sink, r := newRig()
	thr.Set(4095)
	brk.Set(0)
	if !r.Tick() {
		t.Fatal("Tick should report while connected")
	}
	sink.Flush(context.Background())
	want := []fakes.Call{{Op: "throttle", Value: int(AxisMax)}, {Op: "brake", Value: 0}, {Op: "report"}}
	if got := dev.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %v", got)
	}
	if th, br := r.Axes(); th != AxisMax || br != 0 {
		t.Fatalf("Axes() = %d, %d", th, br)
	}
}

func TestTickIdleWhileDisconnected(t *testing.T) {
	thr, _, dev, sink, r := newRig()
	dev.SetConnected(false)
	thr.Set(1000)
	if r.Tick() {
		t.Fatal("Tick reported while disconnected")
	}
	sink.Flush(context.Background())
	if c := dev.Calls(); len(c) != 0 {
		t.Fatalf("calls = %v", c)
	}
}

func TestReadErrorSkipsAxisButStillReports(t *testing.T) {
	thr, brk, dev, sink, r := newRig()
	thr.Fail(errors.New("adc timeout"))
	brk.Set(4095)
	r.Tick()
	sink.Flush(context.Background())
	want := []fakes.Call{{Op: "brake", Value: int(AxisMax)}, {Op: "report"}}
	if got := dev.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %v", got)
	}
	if r.ReadErrors() != 1 {
		t.Fatalf("ReadErrors = %d", r.ReadErrors())
	}
}

func TestSendFailureDoesNotBlockTick(t *testing.T) {
	_, _, dev, sink, r := newRig()
	dev.FailSend(true)
	for i := 0; i < 3; i++ {
		r.Tick()
		sink.Flush(context.Background())
	}
	if st := sink.Stats(); st.Failed != 3 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestRunStops(t *testing.T) {
	_, _, _, sink, _ := newRig()
	r := New(&fakes.ADC{}, nil, sink, Config{Period: time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() { r.Run(ctx); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	if sink.Pending() == 0 {
		t.Fatal("Run queued nothing")
	}
}
