// Package simport is an in-memory hal.Port: it records pin configuration and
// levels instead of touching hardware. It backs the package tests and
// cmd/halshell, and is useful as a stand-in port in driver tests.
package simport

import (
	"sync"

	"pinhal-go/errcode"
	"pinhal-go/hal"
)

type pinState struct {
	cfg        hal.PinConfig
	level      hal.Level
	configured bool
}

// Write is one journal entry: a single pin driven to a level.
type Write struct {
	Pin   hal.PinID
	Level hal.Level
}

// Port simulates a fixed-size pin bank.
type Port struct {
	*hal.Registry

	name  string
	count int

	mu        sync.Mutex
	pins      []pinState
	inputOnly map[hal.PinID]bool
	journal   []Write
}

// Option tweaks a simulated port.
type Option func(*Port)

// WithInputOnly marks pins that refuse ModeOutput, to exercise
// errcode.PinCannotOutput paths.
func WithInputOnly(ids ...hal.PinID) Option {
	return func(p *Port) {
		for _, id := range ids {
			p.inputOnly[id] = true
		}
	}
}

// New builds a port with pins 0..count-1.
func New(name string, count int, opts ...Option) *Port {
	p := &Port{
		name:      name,
		count:     count,
		pins:      make([]pinState, count),
		inputOnly: make(map[hal.PinID]bool),
	}
	for _, o := range opts {
		o(p)
	}
	p.Registry = hal.NewRegistry(p)
	return p
}

func (p *Port) Name() string { return p.name }

func (p *Port) HasPin(id hal.PinID) bool { return int(id) < p.count }

func (p *Port) GlobalID(id hal.PinID) (int, bool) {
	if !p.HasPin(id) {
		return 0, false
	}
	return int(id), true
}

func (p *Port) ConfigurePins(ids []hal.PinID, cfgs []hal.PinConfig) error {
	const op = "simport.configure"
	if len(ids) != len(cfgs) {
		return errcode.New(errcode.InvalidParams, op, "length mismatch")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, id := range ids {
		if !p.HasPin(id) {
			return errcode.Pin(errcode.UnknownPin, op, int(id))
		}
		if cfgs[i].Mode == hal.ModeOutput && p.inputOnly[id] {
			return errcode.Pin(errcode.PinCannotOutput, op, int(id))
		}
	}
	for i, id := range ids {
		st := &p.pins[id]
		st.cfg = cfgs[i]
		st.configured = true
		if cfgs[i].Mode == hal.ModeOutput {
			st.level = cfgs[i].Initial
		}
	}
	return nil
}

func (p *Port) WritePins(ids []hal.PinID, levels []hal.Level) error {
	const op = "simport.write"
	if len(ids) != len(levels) {
		return errcode.New(errcode.InvalidParams, op, "length mismatch")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		if !p.HasPin(id) {
			return errcode.Pin(errcode.UnknownPin, op, int(id))
		}
	}
	for i, id := range ids {
		p.pins[id].level = levels[i]
		p.journal = append(p.journal, Write{Pin: id, Level: levels[i]})
	}
	return nil
}

func (p *Port) ReadPins(ids []hal.PinID) ([]hal.Level, error) {
	const op = "simport.read"
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]hal.Level, len(ids))
	for i, id := range ids {
		if !p.HasPin(id) {
			return nil, errcode.Pin(errcode.UnknownPin, op, int(id))
		}
		out[i] = p.pins[id].level
	}
	return out, nil
}

// ---------- Simulation hooks ----------

// Drive forces an input pin's sampled level (as if driven externally).
func (p *Port) Drive(id hal.PinID, l hal.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.HasPin(id) {
		p.pins[id].level = l
	}
}

// TakeOver simulates an external reconfiguration of the pin: any live token
// for it is invalidated through the registry back-reference.
func (p *Port) TakeOver(id hal.PinID) {
	p.Registry.Invalidate(id)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.HasPin(id) {
		p.pins[id].configured = false
	}
}

// ---------- Test accessors ----------

// LevelOf returns the last driven/forced level of a pin.
func (p *Port) LevelOf(id hal.PinID) hal.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pins[id].level
}

// ConfigOf returns the pin's configuration and whether one was applied.
func (p *Port) ConfigOf(id hal.PinID) (hal.PinConfig, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pins[id].cfg, p.pins[id].configured
}

// Writes returns a copy of the write journal in order.
func (p *Port) Writes() []Write {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Write(nil), p.journal...)
}

// ClearWrites resets the journal.
func (p *Port) ClearWrites() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.journal = nil
}
