package chipselect

import (
	"pinhal-go/errcode"
)

// ChipAccess is the exclusive capability for one chip under one manager. It
// is minted by Manager.Access and retired explicitly; a retired access fails
// every operation with errcode.InvalidAccess.
type ChipAccess struct {
	mgr   Manager
	chip  int
	valid bool // guarded by mgr.arb().mu
}

// Chip returns the bound chip id, or NoChip for an empty access.
func (c *ChipAccess) Chip() int {
	if c == nil || c.mgr == nil {
		return NoChip
	}
	a := c.mgr.arb()
	a.mu.Lock()
	defer a.mu.Unlock()
	return c.chip
}

// Valid reports whether the access still holds its chip.
func (c *ChipAccess) Valid() bool {
	if c == nil || c.mgr == nil {
		return false
	}
	a := c.mgr.arb()
	a.mu.Lock()
	defer a.mu.Unlock()
	return c.valid
}

func (c *ChipAccess) useLocked(op string) error {
	if !c.valid {
		return errcode.Chip(errcode.InvalidAccess, op, c.chip)
	}
	return nil
}

// Select drives the chip's selection onto the wire. Fails with errcode.Busy
// while a different chip is selected on the same manager. Selecting an
// already selected chip is a no-op.
func (c *ChipAccess) Select() error {
	if c == nil || c.mgr == nil {
		return errcode.New(errcode.InvalidAccess, "chipselect.select", "empty access")
	}
	a := c.mgr.arb()
	a.mu.Lock()
	defer a.mu.Unlock()
	op := c.mgr.opName() + ".select"
	if err := c.useLocked(op); err != nil {
		return err
	}
	if a.selected == c.chip {
		return nil
	}
	if a.selected != NoChip {
		return errcode.Chip(errcode.Busy, op, c.chip)
	}
	if err := c.mgr.driveLocked(c.chip, true); err != nil {
		return err
	}
	a.selected = c.chip
	return nil
}

// Deselect undoes the chip's selection. A no-op when the chip is not the one
// currently selected.
func (c *ChipAccess) Deselect() error {
	if c == nil || c.mgr == nil {
		return errcode.New(errcode.InvalidAccess, "chipselect.deselect", "empty access")
	}
	a := c.mgr.arb()
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := c.useLocked(c.mgr.opName() + ".deselect"); err != nil {
		return err
	}
	if a.selected != c.chip {
		return nil
	}
	if err := c.mgr.driveLocked(c.chip, false); err != nil {
		return err
	}
	a.selected = NoChip
	return nil
}

// ChangeChip rebinds the access to another chip in the same manager. When the
// old chip is currently selected it is fully deselected before the new one is
// selected; there is no state in which both are selected. An unselected
// access stays unselected. Fails with errcode.InvalidChip for ids the
// manager does not know and errcode.ChipInUse when another access holds the
// target chip, leaving the binding unchanged in both cases.
func (c *ChipAccess) ChangeChip(newID int) error {
	if c == nil || c.mgr == nil {
		return errcode.New(errcode.InvalidAccess, "chipselect.changechip", "empty access")
	}
	a := c.mgr.arb()
	a.mu.Lock()
	defer a.mu.Unlock()
	op := c.mgr.opName() + ".changechip"
	if err := c.useLocked(op); err != nil {
		return err
	}
	if newID == c.chip {
		return nil
	}
	if !c.mgr.validLocked(newID) {
		return errcode.Chip(errcode.InvalidChip, op, newID)
	}
	if _, used := a.live[newID]; used {
		return errcode.Chip(errcode.ChipInUse, op, newID)
	}
	reselect := a.selected == c.chip
	if reselect {
		if err := c.mgr.driveLocked(c.chip, false); err != nil {
			return err
		}
		a.selected = NoChip
	}
	delete(a.live, c.chip)
	c.chip = newID
	a.live[newID] = c
	if reselect {
		if err := c.mgr.driveLocked(newID, true); err != nil {
			return err
		}
		a.selected = newID
	}
	return nil
}

// Retire deselects the chip if this access selected it and returns the chip
// to the manager. Idempotent.
func (c *ChipAccess) Retire() {
	if c == nil || c.mgr == nil {
		return
	}
	a := c.mgr.arb()
	a.mu.Lock()
	defer a.mu.Unlock()
	if !c.valid {
		return
	}
	if a.selected == c.chip {
		// Best effort; the chip must not stay selected past its access.
		_ = c.mgr.driveLocked(c.chip, false)
		a.selected = NoChip
	}
	delete(a.live, c.chip)
	c.valid = false
}
