package chipselect

import (
	"pinhal-go/hal"
)

// Dedicated drives one select line for one chip, with configurable polarity.
// The single chip is addressed as id 1.
type Dedicated struct {
	arbiter
	pin *hal.PinAccess
	pol Polarity
}

// NewDedicated returns an unconfigured dedicated-pin manager.
func NewDedicated() *Dedicated {
	return &Dedicated{arbiter: newArbiter()}
}

// SetSelectPin takes ownership of the pin token and configures it as an
// output driving the inactive level. Fails with errcode.ChipInUse while any
// access is live, leaving the previous configuration untouched.
func (d *Dedicated) SetSelectPin(pin *hal.PinAccess, pol Polarity) error {
	const op = "chipselect.dedicated.setselectpin"
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guardReconfigLocked(op); err != nil {
		return err
	}
	if err := takePin(op, pin, pol.activeLevel().Inverted()); err != nil {
		return err
	}
	if d.pin != nil {
		d.pin.Retire()
	}
	d.pin, d.pol = pin, pol
	return nil
}

// ValidChip: only chip 1 exists, and only once configured.
func (d *Dedicated) ValidChip(id int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configuredLocked() && d.validLocked(id)
}

// Access mints the capability for the single chip.
func (d *Dedicated) Access(id int) (*ChipAccess, error) { return access(d, id) }

// Shutdown releases the select pin and invalidates live accesses.
func (d *Dedicated) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return shutdownLocked(d)
}

func (d *Dedicated) configuredLocked() bool { return d.pin != nil }
func (d *Dedicated) validLocked(id int) bool {
	return d.pin != nil && id == 1
}

func (d *Dedicated) driveLocked(id int, selected bool) error {
	lvl := d.pol.activeLevel()
	if !selected {
		lvl = lvl.Inverted()
	}
	return d.pin.Set(lvl)
}

func (d *Dedicated) releasePinsLocked() {
	if d.pin != nil {
		d.pin.Retire()
		d.pin = nil
	}
}

func (d *Dedicated) opName() string { return "chipselect.dedicated" }
