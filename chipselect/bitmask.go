package chipselect

import (
	"pinhal-go/errcode"
	"pinhal-go/hal"
)

// Bitmask drives N dedicated select lines, one chip per line: chip id i is
// the pin at position i of the set. Select and deselect toggle only that one
// pin; the rest of the set is never written.
type Bitmask struct {
	arbiter
	set    *hal.PinSetAccess
	active uint32 // bit i set => position i selects with a high level
}

// NewBitmask returns an unconfigured bitmask manager.
func NewBitmask() *Bitmask {
	return &Bitmask{arbiter: newArbiter()}
}

// SetSelectPins takes ownership of the pin set and configures every pin as
// an output at its inactive level. activeMask bit i gives the active level
// of position i. At most MaxBitmaskPins pins.
func (m *Bitmask) SetSelectPins(set *hal.PinSetAccess, activeMask uint32) error {
	const op = "chipselect.bitmask.setselectpins"
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
	if n > MaxBitmaskPins {
		return errcode.New(errcode.TooManyPins, op, "bitmask supports at most 32 pins")
	}
	cfgs := make([]hal.PinConfig, n)
	for i := range cfgs {
		cfgs[i] = hal.Output(m.levelFor(activeMask, i, false))
	}
	if err := set.Configure(cfgs); err != nil {
		return err
	}
	if m.set != nil {
		m.set.Retire()
	}
	m.set, m.active = set, activeMask
	return nil
}

// ValidChip: ids 0..N-1, once configured.
func (m *Bitmask) ValidChip(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configuredLocked() && m.validLocked(id)
}

// Access mints the capability for one chip/pin position.
func (m *Bitmask) Access(id int) (*ChipAccess, error) { return access(m, id) }

// Shutdown releases the pin set and invalidates live accesses.
func (m *Bitmask) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return shutdownLocked(m)
}

func (m *Bitmask) configuredLocked() bool { return m.set != nil }
func (m *Bitmask) validLocked(id int) bool {
	return m.set != nil && id >= 0 && id < m.set.Len()
}

// levelFor resolves the wire level for position pos in the given state.
func (m *Bitmask) levelFor(activeMask uint32, pos int, selected bool) hal.Level {
	active := hal.Level(activeMask&(1<<uint(pos)) != 0)
	if selected {
		return active
	}
	return active.Inverted()
}

func (m *Bitmask) driveLocked(id int, selected bool) error {
	return m.set.Set(id, m.levelFor(m.active, id, selected))
}

func (m *Bitmask) releasePinsLocked() {
	if m.set != nil {
		m.set.Retire()
		m.set = nil
	}
}

func (m *Bitmask) opName() string { return "chipselect.bitmask" }
