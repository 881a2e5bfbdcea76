package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	NotReady       Code = "not_ready"
	Timeout        Code = "timeout"

	// Configuration.
	InvalidPinList Code = "invalid_pin_list"
	MalformedPin   Code = "malformed_pin"
	PinOutOfRange  Code = "pin_out_of_range"
	DuplicatePin   Code = "duplicate_pin"
	UnknownKey     Code = "unknown_key"
	FieldTooLong   Code = "field_too_long"

	// Runtime.
	IndexOutOfRange  Code = "index_out_of_range"
	TransportFailure Code = "transport_failure"
	NotConnected     Code = "not_connected"
	QueueFull        Code = "queue_full"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is match an *E against its own Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap builds an *E.
func Wrap(c Code, op, msg string, cause error) *E {
	return &E{C: c, Op: op, Msg: msg, Err: cause}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
