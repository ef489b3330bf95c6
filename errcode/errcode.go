package errcode

// Code is a stable error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Resource contention
	Busy      Code = "busy"
	PinInUse  Code = "pin_in_use"
	ChipInUse Code = "chip_in_use"

	// Configuration
	UnknownPin      Code = "unknown_pin"
	PinCannotOutput Code = "pin_cannot_output"
	TooManyPins     Code = "too_many_pins"
	Unconfigured    Code = "unconfigured"

	// Validity
	InvalidChip   Code = "invalid_chip"
	InvalidAccess Code = "invalid_access"
	InvalidParams Code = "invalid_params"

	// Conversation misuse
	AppendToInput     Code = "append_to_input"
	NotVariableLength Code = "not_variable_length"
	ReadPastEnd       Code = "read_past_end"
	ExtractorUnbound  Code = "extractor_unbound"

	Error Code = "error" // generic fallback
)

// NoPin/NoChip mark an E whose Pin/Chip field carries no information.
const (
	NoPin  = -1
	NoChip = -1
)

// E carries a code plus the context the failure happened in.
// Pin and Chip are NoPin/NoChip when not applicable.
type E struct {
	C    Code
	Op   string // e.g. "chipselect.mux.access"
	Pin  int
	Chip int
	Msg  string
	Err  error
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

// New builds an E with no pin/chip context.
func New(c Code, op, msg string) *E {
	return &E{C: c, Op: op, Pin: NoPin, Chip: NoChip, Msg: msg}
}

// Pin builds an E naming the affected pin.
func Pin(c Code, op string, pin int) *E {
	return &E{C: c, Op: op, Pin: pin, Chip: NoChip}
}

// Chip builds an E naming the affected chip.
func Chip(c Code, op string, chip int) *E {
	return &E{C: c, Op: op, Pin: NoPin, Chip: chip}
}

// Wrap attaches a code and op to a cause.
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Pin: NoPin, Chip: NoChip, Err: err}
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
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok && u.Unwrap() != nil {
		return Of(u.Unwrap())
	}
	return Error
}

// Is reports whether err carries code c.
func Is(err error, c Code) bool { return Of(err) == c }
