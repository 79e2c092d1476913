package errcode

import "errors"

// Code is a stable, short error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"

	// Ownership. These are fatal: they panic rather than return.
	BusInUse Code = "bus_in_use"
	PinInUse Code = "pin_in_use"
	StalePin Code = "stale_pin"
	WrongPin Code = "wrong_pin"

	// Clock tree.
	ClockNotReady    Code = "clock_not_ready"
	ClockNotFrozen   Code = "clock_not_frozen"
	ClockFrozen      Code = "clock_frozen"
	FrequencyTooHigh Code = "frequency_too_high"
	NoDivider        Code = "no_divider"

	// Buses.
	Timeout Code = "timeout"
	NACK    Code = "nack"
	Overrun Code = "overrun"
	Framing Code = "framing"
	Parity  Code = "parity"

	Halted Code = "halted"
	Error  Code = "error" // generic fallback
)

// E wraps a Code with the operation and an optional message and cause.
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

// Is lets errors.Is(err, code) match a wrapped Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New builds an *E for op.
func New(c Code, op, msg string) *E { return &E{C: c, Op: op, Msg: msg} }

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

// MapDriverErr maps an error returned through a third-party driver to a
// Code. Drivers often wrap the bus error, so the chain is searched.
func MapDriverErr(err error) Code {
	if err == nil {
		return OK
	}
	var e *E
	if errors.As(err, &e) {
		return e.C
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// Fatal panics with an *E. Used for ownership violations, which have no
// recovery path on the target.
func Fatal(c Code, op, msg string) {
	panic(New(c, op, msg))
}
