// Package hal defines the seam between pin-owning ports and the code that
// drives pins: pin identity, pin configuration, the Port contract, and the
// exclusive access tokens minted by ports.
//
// Tokens are capabilities: holding a *PinAccess is the right to drive that
// pin, and the owning port guarantees at most one live token per pin.
package hal

// PinID names a physical pin within a port's fixed address space.
type PinID uint32

// Level is a logic level. High is true.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Inverted returns the opposite level.
func (l Level) Inverted() Level { return !l }

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Mode selects the electrical configuration of a pin.
type Mode uint8

const (
	ModeInput Mode = iota
	ModeInputPullUp
	ModeInputPullDown
	ModeOutput
)

func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "input"
	case ModeInputPullUp:
		return "input_pullup"
	case ModeInputPullDown:
		return "input_pulldown"
	case ModeOutput:
		return "output"
	default:
		return "invalid"
	}
}

// PinConfig is one pin's requested configuration. Initial is only meaningful
// for ModeOutput.
type PinConfig struct {
	Mode    Mode
	Initial Level
}

// Output returns an output configuration driving initial at configure time.
func Output(initial Level) PinConfig { return PinConfig{Mode: ModeOutput, Initial: initial} }

// Input returns a plain (no pull) input configuration.
func Input() PinConfig { return PinConfig{Mode: ModeInput} }
