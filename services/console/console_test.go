package console

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"gamepad-go/errcode"
	"gamepad-go/types"
	"gamepad-go/x/logx"
)

type fakePad struct {
	got [][2]string
	err error
}

func (f *fakePad) Submit(_ context.Context, key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, [2]string{key, value})
	return nil
}

func (f *fakePad) Status() types.PadStatus { return types.PadStatus{Pins: "4,5"} }

func TestExec(t *testing.T) {
	tests := []struct {
		line    string
		reply   string
		wantKey string
		wantVal string
	}{
		{"apply 4,5,6", "ok", "apply", "4,5,6"},
		{"apply 4 5 6", "ok", "apply", "4,5,6"},
		{"apply", "ok", "apply", ""},
		{"chip ESP32_C3", "ok", "esp32_chip_series", "ESP32_C3"},
		{`set button_map "4:1, 5:2"`, "ok", "button_map", "4:1, 5:2"},
		{"set scan_mode pairs", "ok", "scan_mode", "pairs"},
		{"status", `ok {"state":`, "", ""},
		{"frobnicate", "error unsupported", "", ""},
		{"set", "error invalid_params", "", ""},
		{`set apply "4,5`, "error invalid_params", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			pad := &fakePad{}
			got := New(pad).Exec(context.Background(), tt.line)
			if !strings.HasPrefix(got, tt.reply) {
				t.Fatalf("reply = %q, want prefix %q", got, tt.reply)
			}
			if tt.wantKey == "" {
				if len(pad.got) != 0 {
					t.Fatalf("unexpected submit %v", pad.got)
				}
				return
			}
			if len(pad.got) != 1 || pad.got[0] != [2]string{tt.wantKey, tt.wantVal} {
				t.Fatalf("submitted %v", pad.got)
			}
		})
	}
}

func TestSubmitErrorReported(t *testing.T) {
	pad := &fakePad{err: errcode.Timeout}
	if got := New(pad).Exec(context.Background(), "apply 1"); !strings.HasPrefix(got, "error timeout") {
		t.Fatalf("reply = %q", got)
	}
}

func TestServeOneReplyPerCommand(t *testing.T) {
	pad := &fakePad{}
	in := strings.NewReader("# comment\napply 1,2\n\nchip ESP32\nstatus\n")
	var out bytes.Buffer
	if err := New(pad).Serve(context.Background(), in, &out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("replies = %q", lines)
	}
	if len(pad.got) != 2 {
		t.Fatalf("submitted %v", pad.got)
	}
}

func TestLogLevel(t *testing.T) {
	old := logx.Level()
	t.Cleanup(func() { logx.SetLevel(old) })
	if got := New(&fakePad{}).Exec(context.Background(), "log debug"); got != "ok DEBUG" {
		t.Fatalf("reply = %q", got)
	}
	if logx.Level() != slog.LevelDebug {
		t.Fatal("level not applied")
	}
}
