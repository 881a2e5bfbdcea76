package pinset

import (
	"errors"
	"testing"

	"gamepad-go/errcode"
)

func below48(p PinID) bool { return p <= 48 }

func TestParseValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []PinID
	}{
		{"ordered", "4,5,6", []PinID{4, 5, 6}},
		{"order-kept", "12,5,8", []PinID{12, 5, 8}},
		{"spaces", " 4 , 5,6 ", []PinID{4, 5, 6}},
		{"single", "0", []PinID{0}},
		{"empty", "", nil},
		{"blank", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.in, below48)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if s.Len() != len(tt.want) {
				t.Fatalf("Len() = %d, want %d", s.Len(), len(tt.want))
			}
			for i, w := range tt.want {
				got, err := s.At(i)
				if err != nil || got != w {
					t.Fatalf("At(%d) = %d, %v; want %d", i, got, err, w)
				}
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		cause errcode.Code
	}{
		{"duplicate", "4,4", errcode.DuplicatePin},
		{"malformed", "4,abc", errcode.MalformedPin},
		{"negative", "-1", errcode.MalformedPin},
		{"empty-token", "4,,5", errcode.MalformedPin},
		{"trailing-comma", "4,5,", errcode.MalformedPin},
		{"beyond-platform", "999", errcode.PinOutOfRange},
		{"beyond-chip", "49", errcode.PinOutOfRange},
		{"beyond-uint16", "70000", errcode.PinOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.in, below48)
			if err == nil {
				t.Fatalf("Parse(%q) = %v, want error", tt.in, s)
			}
			if s != nil {
				t.Fatal("no partial PinSet may be returned on error")
			}
			if !errors.Is(err, errcode.InvalidPinList) {
				t.Fatalf("error %v is not invalid_pin_list", err)
			}
			if !errors.Is(err, tt.cause) {
				t.Fatalf("error %v does not carry %s", err, tt.cause)
			}
		})
	}
}

func TestAtOutOfRange(t *testing.T) {
	if strictIndex {
		t.Skip("paddebug build panics instead")
	}
	s, _ := Parse("1,2", nil)
	for _, i := range []int{-1, 2, 100} {
		if _, err := s.At(i); !errors.Is(err, errcode.IndexOutOfRange) {
			t.Fatalf("At(%d) err = %v", i, err)
		}
	}
	if _, err := Empty.At(0); !errors.Is(err, errcode.IndexOutOfRange) {
		t.Fatalf("Empty.At(0) err = %v", err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	s, err := Parse(" 12, 5,8", nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.String() != "12,5,8" {
		t.Fatalf("String() = %q", s.String())
	}
	again, err := Parse(s.String(), nil)
	if err != nil || again.String() != s.String() {
		t.Fatalf("re-parse mismatch: %v %v", again, err)
	}
}

func TestPinsIsACopy(t *testing.T) {
	s, _ := Parse("1,2,3", nil)
	p := s.Pins()
	p[0] = 9
	if got, _ := s.At(0); got != 1 {
		t.Fatal("Pins() exposed internal storage")
	}
}

func TestNewChecksLikeParse(t *testing.T) {
	if _, err := New([]PinID{3, 3}, nil); !errors.Is(err, errcode.DuplicatePin) {
		t.Fatalf("New duplicate err = %v", err)
	}
	s, err := New([]PinID{7, 2}, nil)
	if err != nil || s.String() != "7,2" {
		t.Fatalf("New = %v, %v", s, err)
	}
}
