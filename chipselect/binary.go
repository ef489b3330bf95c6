package chipselect

import (
	"pinhal-go/hal"
)

// Binary drives one select line shared by exactly two chips: chip 0 is logic
// low, chip 1 is logic high. There is no third "nothing selected" state on
// the wire; deselecting only clears the manager's arbitration state.
type Binary struct {
	arbiter
	pin *hal.PinAccess
}

// NewBinary returns an unconfigured binary-pin manager.
func NewBinary() *Binary {
	return &Binary{arbiter: newArbiter()}
}

// SetSelectPin takes ownership of the pin token and configures it as an
// output. The line starts low, i.e. addressing chip 0.
func (b *Binary) SetSelectPin(pin *hal.PinAccess) error {
	const op = "chipselect.binary.setselectpin"
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.guardReconfigLocked(op); err != nil {
		return err
	}
	if err := takePin(op, pin, hal.Low); err != nil {
		return err
	}
	if b.pin != nil {
		b.pin.Retire()
	}
	b.pin = pin
	return nil
}

// ValidChip: chips 0 and 1, once configured.
func (b *Binary) ValidChip(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.configuredLocked() && b.validLocked(id)
}

// Access mints the capability for chip 0 or 1.
func (b *Binary) Access(id int) (*ChipAccess, error) { return access(b, id) }

// Shutdown releases the select pin and invalidates live accesses.
func (b *Binary) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return shutdownLocked(b)
}

func (b *Binary) configuredLocked() bool { return b.pin != nil }
func (b *Binary) validLocked(id int) bool {
	return b.pin != nil && (id == 0 || id == 1)
}

// driveLocked: selecting drives the chip id as the line level. Deselecting
// is a no-op on the wire; the line simply keeps its last state.
func (b *Binary) driveLocked(id int, selected bool) error {
	if !selected {
		return nil
	}
	return b.pin.Set(id == 1)
}

func (b *Binary) releasePinsLocked() {
	if b.pin != nil {
		b.pin.Retire()
		b.pin = nil
	}
}

func (b *Binary) opName() string { return "chipselect.binary" }
