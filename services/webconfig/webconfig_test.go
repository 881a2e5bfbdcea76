package webconfig

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gamepad-go/errcode"
	"gamepad-go/types"
)

type fakePad struct {
	got    [][2]string
	err    error
	status types.PadStatus
}

func (f *fakePad) Submit(_ context.Context, key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, [2]string{key, value})
	return nil
}

func (f *fakePad) Status() types.PadStatus { return f.status }

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestPostQueuesAndRedirects(t *testing.T) {
	pad := &fakePad{}
	h := New(pad).Handler()

	rec := do(h, http.MethodPost, "/post?variable_id=apply&value=4%2C5%2C6")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(pad.got) != 1 || pad.got[0] != [2]string{"apply", "4,5,6"} {
		t.Fatalf("submitted %v", pad.got)
	}
}

func TestPostFormBody(t *testing.T) {
	pad := &fakePad{}
	h := New(pad).Handler()
	req := httptest.NewRequest(http.MethodPost, "/post", strings.NewReader("variable_id=esp32_chip_series&value=ESP32_C3"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status %d", rec.Code)
	}
	if pad.got[0] != [2]string{"esp32_chip_series", "ESP32_C3"} {
		t.Fatalf("submitted %v", pad.got)
	}
}

func TestPostErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		target string
		status int
		code   errcode.Code
	}{
		{"missing-key", nil, "/post?value=1", http.StatusBadRequest, errcode.InvalidParams},
		{"queue-full", errcode.Timeout, "/post?variable_id=apply&value=1", http.StatusServiceUnavailable, errcode.QueueFull},
		{"too-long", errcode.Wrap(errcode.FieldTooLong, "cfgchan", "value", nil), "/post?variable_id=apply&value=1", http.StatusBadRequest, errcode.FieldTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(&fakePad{err: tc.err}).Handler()
			rec := do(h, http.MethodPost, tc.target)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var body response
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Code != string(tc.code) {
				t.Fatalf("code = %q", body.Code)
			}
		})
	}
}

func TestStateJSON(t *testing.T) {
	pad := &fakePad{status: types.PadStatus{Pins: "12,5,8", ChipSeries: "ESP32_S3", Connected: true}}
	rec := do(New(pad).Handler(), http.MethodGet, "/state")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var st types.PadStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Pins != "12,5,8" || !st.Connected {
		t.Fatalf("state = %+v", st)
	}
}

func TestIndexShowsCurrentConfig(t *testing.T) {
	pad := &fakePad{status: types.PadStatus{Pins: "4,5", ChipSeries: "ESP32_C3", LastError: "bad <pin>"}}
	rec := do(New(pad).Handler(), http.MethodGet, "/")
	body := rec.Body.String()
	for _, want := range []string{"4,5", "ESP32_C3", "all pins: button 1", "bad &lt;pin&gt;", `action="/post"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
	if rec := do(New(pad).Handler(), http.MethodGet, "/favicon.ico"); rec.Code != http.StatusNoContent {
		t.Fatalf("favicon status %d", rec.Code)
	}
}
