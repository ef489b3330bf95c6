package hal

import (
	"pinhal-go/errcode"
)

// noCopy makes accidental value copies of tokens visible to `go vet`.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// PinAccess is the exclusive capability for one pin. It is minted by a port's
// Acquire, handled by pointer, and must not be copied; ownership changes hands
// only through MoveTo. The zero value is an empty token.
type PinAccess struct {
	_     noCopy
	reg   *Registry
	id    PinID
	valid bool

	// Scratch for single-pin backend calls; avoids a heap allocation per
	// Set/Get on the hot path.
	idbuf  [1]PinID
	cfgbuf [1]PinConfig
	lvlbuf [1]Level
}

// Pin returns the owned pin id. Only meaningful while Valid.
func (a *PinAccess) Pin() PinID {
	if a == nil {
		return 0
	}
	return a.id
}

// Valid reports whether the token currently holds its pin.
func (a *PinAccess) Valid() bool {
	if a == nil || a.reg == nil {
		return false
	}
	a.reg.mu.Lock()
	defer a.reg.mu.Unlock()
	return a.valid
}

// use checks liveness under the registry lock and hands back the backend.
func (a *PinAccess) use(op string) (Backend, error) {
	if a == nil || a.reg == nil {
		return nil, errcode.New(errcode.InvalidAccess, op, "empty token")
	}
	a.reg.mu.Lock()
	defer a.reg.mu.Unlock()
	if !a.valid {
		return nil, errcode.Pin(errcode.InvalidAccess, op, int(a.id))
	}
	return a.reg.backend, nil
}

// Configure applies an electrical configuration to the owned pin.
func (a *PinAccess) Configure(cfg PinConfig) error {
	b, err := a.use("hal.pin.configure")
	if err != nil {
		return err
	}
	a.idbuf[0], a.cfgbuf[0] = a.id, cfg
	return b.ConfigurePins(a.idbuf[:], a.cfgbuf[:])
}

// Set drives the pin to the given level.
func (a *PinAccess) Set(l Level) error {
	b, err := a.use("hal.pin.set")
	if err != nil {
		return err
	}
	a.idbuf[0], a.lvlbuf[0] = a.id, l
	return b.WritePins(a.idbuf[:], a.lvlbuf[:])
}

// Get samples the pin's current level.
func (a *PinAccess) Get() (Level, error) {
	b, err := a.use("hal.pin.get")
	if err != nil {
		return Low, err
	}
	a.idbuf[0] = a.id
	lv, err := b.ReadPins(a.idbuf[:])
	if err != nil {
		return Low, err
	}
	return lv[0], nil
}

// Toggle inverts the pin's current level.
func (a *PinAccess) Toggle() error {
	l, err := a.Get()
	if err != nil {
		return err
	}
	return a.Set(l.Inverted())
}

// Retire releases the pin back to the port. Safe to call on an empty or
// already-retired token.
func (a *PinAccess) Retire() {
	if a == nil || a.reg == nil {
		return
	}
	a.reg.mu.Lock()
	defer a.reg.mu.Unlock()
	if !a.valid {
		return
	}
	a.reg.releaseLocked(a, []PinID{a.id})
	a.valid = false
}

// MoveTo transfers the capability into dst: dst releases anything it held,
// takes over the pin (the port's back-reference is retargeted), and a becomes
// empty. Moving an empty token just empties dst.
func (a *PinAccess) MoveTo(dst *PinAccess) {
	if a == nil || dst == nil || a == dst {
		return
	}
	dst.Retire()
	if a.reg == nil {
		dst.reg, dst.valid = nil, false
		return
	}
	a.reg.mu.Lock()
	defer a.reg.mu.Unlock()
	dst.reg, dst.id = a.reg, a.id
	if !a.valid {
		dst.valid = false
		return
	}
	a.reg.owners[a.id] = dst
	dst.valid = true
	a.valid = false
}

// invalidate implements token. Caller holds the registry lock.
func (a *PinAccess) invalidate() { a.valid = false }
