package errcode

import (
	"errors"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"invalid_pin_list":   InvalidPinList,
		"malformed_pin":      MalformedPin,
		"pin_out_of_range":   PinOutOfRange,
		"duplicate_pin":      DuplicatePin,
		"timeout":            Timeout,
		"index_out_of_range": IndexOutOfRange,
		"transport_failure":  TransportFailure,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestWrappedErrorMatching(t *testing.T) {
	err := Wrap(InvalidPinList, "pinset.parse", `token "abc"`, MalformedPin)

	if !errors.Is(err, InvalidPinList) {
		t.Fatal("errors.Is should match the outer code")
	}
	if !errors.Is(err, MalformedPin) {
		t.Fatal("errors.Is should match the wrapped cause")
	}
	if errors.Is(err, DuplicatePin) {
		t.Fatal("errors.Is matched an unrelated code")
	}
	if got := Of(err); got != InvalidPinList {
		t.Fatalf("Of() = %q", got)
	}
	if got := err.Error(); got != `pinset.parse: invalid_pin_list: token "abc"` {
		t.Fatalf("Error() = %q", got)
	}
}

func TestOf(t *testing.T) {
	if Of(nil) != OK {
		t.Fatal("nil should map to OK")
	}
	if Of(Timeout) != Timeout {
		t.Fatal("bare code should map to itself")
	}
	if Of(errors.New("boom")) != Error {
		t.Fatal("foreign error should map to Error")
	}
}
