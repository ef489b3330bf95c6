// Package chipselect arbitrates which device among several sharing a bus is
// electrically selected. Four interchangeable strategies cover the usual
// wirings: a dedicated select line per chip, one line shared by two chips, a
// bitmask of dedicated lines, and a binary-coded address into an external
// multiplexer.
//
// All strategies mint ChipAccess capabilities; holding one is the exclusive
// right to select/deselect that chip, and managers refuse reconfiguration
// while any access is live.
package chipselect

import (
	"sync"

	"pinhal-go/errcode"
	"pinhal-go/hal"
)

// NoChip is the manager's "nothing selected" id.
const NoChip = -1

// MaxBitmaskPins caps the bitmask strategy's pin set.
const MaxBitmaskPins = 32

// Manager is the uniform capability interface over the selection strategies.
type Manager interface {
	// ValidChip reports whether id addresses a chip under this manager.
	// Always false before configuration.
	ValidChip(id int) bool
	// InUse reports whether any ChipAccess minted here is still live.
	InUse() bool
	// Access mints the exclusive capability for one chip. Fails with
	// errcode.Unconfigured, errcode.InvalidChip or errcode.ChipInUse.
	Access(id int) (*ChipAccess, error)
	// Shutdown forces the manager back to unconfigured: live accesses are
	// invalidated, the wire is deselected best-effort, and the underlying
	// pin tokens are retired.
	Shutdown() error

	// Strategy internals. All are called with the arbiter mutex held.
	arb() *arbiter
	configuredLocked() bool
	validLocked(id int) bool
	driveLocked(id int, selected bool) error
	releasePinsLocked()
	opName() string
}

// arbiter is the base arbitration state every strategy composes: the mutex
// guarding configuration and in-use queries, the currently selected chip,
// and the set of live accesses.
type arbiter struct {
	mu       sync.Mutex
	selected int
	live     map[int]*ChipAccess
}

func newArbiter() arbiter {
	return arbiter{selected: NoChip, live: make(map[int]*ChipAccess)}
}

func (a *arbiter) arb() *arbiter { return a }

func (a *arbiter) inUseLocked() bool { return len(a.live) > 0 }

// InUse implements the Manager query for every strategy.
func (a *arbiter) InUse() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUseLocked()
}

// Selected returns the currently selected chip id, or NoChip.
func (a *arbiter) Selected() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected
}

// mintLocked issues the access for id, enforcing one live access per chip.
func (a *arbiter) mintLocked(m Manager, id int) (*ChipAccess, error) {
	if _, used := a.live[id]; used {
		return nil, errcode.Chip(errcode.ChipInUse, m.opName()+".access", id)
	}
	acc := &ChipAccess{mgr: m, chip: id, valid: true}
	a.live[id] = acc
	return acc, nil
}

// guardReconfigLocked rejects configuration changes while accesses are live.
func (a *arbiter) guardReconfigLocked(op string) error {
	if a.inUseLocked() {
		return errcode.New(errcode.ChipInUse, op, "accesses still live")
	}
	return nil
}

// shutdownLocked is the shared part of Shutdown: deselect the wire if
// anything is selected, kill live accesses, release pins.
func shutdownLocked(m Manager) error {
	a := m.arb()
	var err error
	if a.selected != NoChip {
		err = m.driveLocked(a.selected, false)
		a.selected = NoChip
	}
	for id, acc := range a.live {
		acc.valid = false
		delete(a.live, id)
	}
	m.releasePinsLocked()
	return err
}

// access is the shared Access path: configuration check is the strategy's
// validLocked, arbitration is the arbiter's.
func access(m Manager, id int) (*ChipAccess, error) {
	a := m.arb()
	a.mu.Lock()
	defer a.mu.Unlock()
	if !m.configuredLocked() {
		return nil, errcode.Chip(errcode.Unconfigured, m.opName()+".access", id)
	}
	if !m.validLocked(id) {
		return nil, errcode.Chip(errcode.InvalidChip, m.opName()+".access", id)
	}
	return a.mintLocked(m, id)
}

// Polarity names which level means "selected" on a select line.
type Polarity uint8

const (
	ActiveLow Polarity = iota
	ActiveHigh
)

func (p Polarity) activeLevel() hal.Level { return p == ActiveHigh }

func (p Polarity) String() string {
	if p == ActiveHigh {
		return "active_high"
	}
	return "active_low"
}

// takePin validates and output-configures a caller-supplied pin token before
// a strategy commits to it.
func takePin(op string, pin *hal.PinAccess, inactive hal.Level) error {
	if pin == nil || !pin.Valid() {
		return errcode.New(errcode.InvalidAccess, op, "pin token empty or retired")
	}
	return pin.Configure(hal.Output(inactive))
}
