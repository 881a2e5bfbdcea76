// Package pinset holds the immutable list of GPIO lines scanned as buttons.
//
// A PinSet is built once by Parse and never modified afterwards; a new
// configuration always produces a new PinSet which replaces the old one
// wholesale.
package pinset

import (
	"errors"
	"strconv"
	"strings"

	"gamepad-go/errcode"
)

// PinID identifies a digital input line.
type PinID uint8

// Validator reports whether a PinID is usable on the current platform.
type Validator func(PinID) bool

// AnyPin accepts every PinID.
func AnyPin(PinID) bool { return true }

// PinSet is an ordered list of distinct PinIDs.
type PinSet struct {
	items []PinID
}

// Empty is the PinSet with no pins ("no buttons configured").
var Empty = &PinSet{}

const opParse = "pinset.parse"

// Parse builds a PinSet from a comma-separated list of decimal pin numbers.
// The whole input is rejected if any token is malformed, out of range or
// repeated. Blank input yields an empty PinSet.
func Parse(text string, valid Validator) (*PinSet, error) {
	if valid == nil {
		valid = AnyPin
	}
	if strings.TrimSpace(text) == "" {
		return Empty, nil
	}

	toks := strings.Split(text, ",")
	items := make([]PinID, 0, len(toks))
	seen := make(map[PinID]struct{}, len(toks))

	for i, tok := range toks {
		tok = strings.TrimSpace(tok)
		n, err := strconv.ParseUint(tok, 10, 16)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return nil, parseErr(errcode.PinOutOfRange, i, tok)
			}
			return nil, parseErr(errcode.MalformedPin, i, tok)
		}
		if n > 255 || !valid(PinID(n)) {
			return nil, parseErr(errcode.PinOutOfRange, i, tok)
		}
		p := PinID(n)
		if _, dup := seen[p]; dup {
			return nil, parseErr(errcode.DuplicatePin, i, tok)
		}
		seen[p] = struct{}{}
		items = append(items, p)
	}
	return &PinSet{items: items}, nil
}

func parseErr(cause errcode.Code, pos int, tok string) error {
	return errcode.Wrap(errcode.InvalidPinList, opParse,
		"token "+strconv.Itoa(pos)+" "+strconv.Quote(tok)+": "+string(cause), cause)
}

// New builds a PinSet from pins, applying the same checks as Parse.
func New(pins []PinID, valid Validator) (*PinSet, error) {
	parts := make([]string, len(pins))
	for i, p := range pins {
		parts[i] = strconv.Itoa(int(p))
	}
	return Parse(strings.Join(parts, ","), valid)
}

// Len returns the number of pins.
func (s *PinSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// At returns the pin at index i. Out-of-range access is a caller bug: it
// panics in builds tagged paddebug and returns index_out_of_range otherwise.
func (s *PinSet) At(i int) (PinID, error) {
	if i < 0 || i >= s.Len() {
		err := errcode.Wrap(errcode.IndexOutOfRange, "pinset.at",
			strconv.Itoa(i)+" not in [0,"+strconv.Itoa(s.Len())+")", nil)
		if strictIndex {
			panic(err)
		}
		return 0, err
	}
	return s.items[i], nil
}

// Pins returns a copy of the pins in order.
func (s *PinSet) Pins() []PinID {
	if s == nil {
		return nil
	}
	return append([]PinID(nil), s.items...)
}

// String renders the canonical "4,5,6" form accepted by Parse.
func (s *PinSet) String() string {
	var b []byte
	for i, p := range s.Pins() {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendUint(b, uint64(p), 10)
	}
	return string(b)
}
