package hal

import (
	"pinhal-go/errcode"
)

// PinSetAccess is the exclusive capability for an ordered pin set. Positions
// are indices into the order the set was acquired with; position i is "pin i"
// for every vectorized operation, including WriteMask (bit i drives pin i).
type PinSetAccess struct {
	_     noCopy
	reg   *Registry
	ids   []PinID
	valid bool
}

// Len returns the number of pins in the set.
func (s *PinSetAccess) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Pins returns a copy of the owned ids in order.
func (s *PinSetAccess) Pins() []PinID {
	if s == nil {
		return nil
	}
	return append([]PinID(nil), s.ids...)
}

// Valid reports whether the token currently holds its pins.
func (s *PinSetAccess) Valid() bool {
	if s == nil || s.reg == nil {
		return false
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	return s.valid
}

func (s *PinSetAccess) use(op string) (Backend, error) {
	if s == nil || s.reg == nil {
		return nil, errcode.New(errcode.InvalidAccess, op, "empty token")
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	if !s.valid {
		return nil, errcode.New(errcode.InvalidAccess, op, "retired token")
	}
	return s.reg.backend, nil
}

// Configure applies cfgs[i] to the pin at position i. len(cfgs) must match.
func (s *PinSetAccess) Configure(cfgs []PinConfig) error {
	const op = "hal.pinset.configure"
	b, err := s.use(op)
	if err != nil {
		return err
	}
	if len(cfgs) != len(s.ids) {
		return errcode.New(errcode.InvalidParams, op, "config count mismatch")
	}
	return b.ConfigurePins(s.ids, cfgs)
}

// ConfigureAll applies one configuration to every pin in the set.
func (s *PinSetAccess) ConfigureAll(cfg PinConfig) error {
	b, err := s.use("hal.pinset.configure")
	if err != nil {
		return err
	}
	cfgs := make([]PinConfig, len(s.ids))
	for i := range cfgs {
		cfgs[i] = cfg
	}
	return b.ConfigurePins(s.ids, cfgs)
}

// Set drives the pin at one position, leaving the rest of the set untouched.
func (s *PinSetAccess) Set(pos int, l Level) error {
	const op = "hal.pinset.set"
	b, err := s.use(op)
	if err != nil {
		return err
	}
	if pos < 0 || pos >= len(s.ids) {
		return errcode.New(errcode.InvalidParams, op, "position out of range")
	}
	return b.WritePins([]PinID{s.ids[pos]}, []Level{l})
}

// Write drives levels[i] on position i. len(levels) must match.
func (s *PinSetAccess) Write(levels []Level) error {
	const op = "hal.pinset.write"
	b, err := s.use(op)
	if err != nil {
		return err
	}
	if len(levels) != len(s.ids) {
		return errcode.New(errcode.InvalidParams, op, "level count mismatch")
	}
	return b.WritePins(s.ids, levels)
}

// WriteMask drives the whole set from a bitmask: bit i of v drives position i.
func (s *PinSetAccess) WriteMask(v uint32) error {
	b, err := s.use("hal.pinset.writemask")
	if err != nil {
		return err
	}
	levels := make([]Level, len(s.ids))
	for i := range levels {
		levels[i] = v&(1<<uint(i)) != 0
	}
	return b.WritePins(s.ids, levels)
}

// Split derives a token owning the pins at the given positions, in the given
// order. The pins move out of s; remaining pins keep their relative order.
// Any out-of-range or duplicate position fails and leaves s untouched.
func (s *PinSetAccess) Split(positions ...int) (*PinSetAccess, error) {
	const op = "hal.pinset.split"
	if s == nil || s.reg == nil {
		return nil, errcode.New(errcode.InvalidAccess, op, "empty token")
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	if !s.valid {
		return nil, errcode.New(errcode.InvalidAccess, op, "retired token")
	}
	if len(positions) == 0 {
		return nil, errcode.New(errcode.InvalidParams, op, "no positions")
	}
	taken := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(s.ids) {
			return nil, errcode.New(errcode.InvalidParams, op, "position out of range")
		}
		if _, dup := taken[p]; dup {
			return nil, errcode.New(errcode.InvalidParams, op, "duplicate position")
		}
		taken[p] = struct{}{}
	}
	moved := make([]PinID, 0, len(positions))
	for _, p := range positions {
		moved = append(moved, s.ids[p])
	}
	kept := make([]PinID, 0, len(s.ids)-len(positions))
	for i, id := range s.ids {
		if _, m := taken[i]; !m {
			kept = append(kept, id)
		}
	}
	sub := &PinSetAccess{reg: s.reg, ids: moved, valid: true}
	for _, id := range moved {
		s.reg.owners[id] = sub
	}
	s.ids = kept
	if len(s.ids) == 0 {
		s.valid = false
	}
	return sub, nil
}

// Retire releases every pin in the set back to the port. Idempotent.
func (s *PinSetAccess) Retire() {
	if s == nil || s.reg == nil {
		return
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	if !s.valid {
		return
	}
	s.reg.releaseLocked(s, s.ids)
	s.valid = false
}

// MoveTo transfers the whole set into dst; see PinAccess.MoveTo.
func (s *PinSetAccess) MoveTo(dst *PinSetAccess) {
	if s == nil || dst == nil || s == dst {
		return
	}
	dst.Retire()
	if s.reg == nil {
		dst.reg, dst.valid = nil, false
		return
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	dst.reg, dst.ids = s.reg, s.ids
	if !s.valid {
		dst.valid = false
		return
	}
	for _, id := range s.ids {
		s.reg.owners[id] = dst
	}
	dst.valid = true
	s.valid = false
	s.ids = nil
}

// invalidate implements token. Caller holds the registry lock.
func (s *PinSetAccess) invalidate() { s.valid = false }
