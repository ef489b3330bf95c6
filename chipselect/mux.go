package chipselect

import (
	"pinhal-go/errcode"
	"pinhal-go/hal"
)

// Mux drives a binary-coded address across its pin set into an external
// multiplexer: selecting chip id writes id across the pins (position i gets
// bit i), deselecting writes zero. Address 0 therefore means "nothing
// selected" and chip id 0 is reserved; valid ids start at 1.
type Mux struct {
	arbiter
	set *hal.PinSetAccess
}

// NewMux returns an unconfigured multiplexer manager.
func NewMux() *Mux {
	return &Mux{arbiter: newArbiter()}
}

// SetSelectPins takes ownership of the address pin set and configures every
// pin as an output driving low (address 0).
func (m *Mux) SetSelectPins(set *hal.PinSetAccess) error {
	const op = "chipselect.mux.setselectpins"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guardReconfigLocked(op); err != nil {
		return err
	}
	if set == nil || !set.Valid() {
		return errcode.New(errcode.InvalidAccess, op, "pin set empty or retired")
	}
	n := set.Len()
	if n == 0 {
		return errcode.New(errcode.InvalidParams, op, "empty pin set")
	}
	if n > 31 {
		return errcode.New(errcode.TooManyPins, op, "mux address wider than 31 bits")
	}
	if err := set.ConfigureAll(hal.Output(hal.Low)); err != nil {
		return err
	}
	if m.set != nil {
		m.set.Retire()
	}
	m.set = set
	return nil
}

// ValidChip: ids 1..2^N-1, once configured. Id 0 is the reserved idle address.
func (m *Mux) ValidChip(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configuredLocked() && m.validLocked(id)
}

// Access mints the capability for one multiplexed chip.
func (m *Mux) Access(id int) (*ChipAccess, error) { return access(m, id) }

// Shutdown writes address 0, releases the pin set and invalidates accesses.
func (m *Mux) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return shutdownLocked(m)
}

func (m *Mux) configuredLocked() bool { return m.set != nil }
func (m *Mux) validLocked(id int) bool {
	return m.set != nil && id >= 1 && id < 1<<uint(m.set.Len())
}

func (m *Mux) driveLocked(id int, selected bool) error {
	if !selected {
		return m.set.WriteMask(0)
	}
	return m.set.WriteMask(uint32(id))
}

func (m *Mux) releasePinsLocked() {
	if m.set != nil {
		m.set.Retire()
		m.set = nil
	}
}

func (m *Mux) opName() string { return "chipselect.mux" }
