package chipselect

import (
	"pinhal-go/errcode"
)

// ChipSelect is a copyable value naming one chip under one manager. The zero
// value is unbound. It is the factory for ChipAccess capabilities: device
// drivers are handed a ChipSelect telling them which chip to address, and
// mint an access when they actually need the wire.
type ChipSelect struct {
	mgr Manager
	id  int
}

// Select builds a bound ChipSelect, validating the id against the manager.
func Select(m Manager, id int) (ChipSelect, error) {
	var s ChipSelect
	if err := s.Modify(m, id); err != nil {
		return ChipSelect{}, err
	}
	return s, nil
}

// Bound reports whether the value names a chip.
func (s ChipSelect) Bound() bool { return s.mgr != nil }

// Chip returns the bound chip id, or NoChip when unbound.
func (s ChipSelect) Chip() int {
	if s.mgr == nil {
		return NoChip
	}
	return s.id
}

// Manager returns the bound manager, or nil.
func (s ChipSelect) Manager() Manager { return s.mgr }

// Modify rebinds the value. The id is validated against the manager before
// anything is committed; on failure the prior binding is unchanged.
func (s *ChipSelect) Modify(m Manager, id int) error {
	const op = "chipselect.modify"
	if m == nil {
		return errcode.New(errcode.InvalidParams, op, "nil manager")
	}
	if !m.ValidChip(id) {
		return errcode.Chip(errcode.InvalidChip, op, id)
	}
	s.mgr, s.id = m, id
	return nil
}

// Access mints the exclusive capability for the named chip.
func (s ChipSelect) Access() (*ChipAccess, error) {
	if s.mgr == nil {
		return nil, errcode.New(errcode.InvalidAccess, "chipselect.access", "unbound")
	}
	return s.mgr.Access(s.id)
}
