//go:build linux

// Package linuxport implements hal.Port over the Linux GPIO character
// device, by way of mkch's gpio package. Lines are opened lazily and kept
// open so they hold their state until the port is closed.
package linuxport

import (
	"sync"

	"github.com/mkch/gpio"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pinhal-go/errcode"
	"pinhal-go/hal"
)

const consumer = "pinhal"

type line struct {
	l      *gpio.Line
	output bool
}

// Port drives one gpiochip device. Pin ids are line offsets.
type Port struct {
	*hal.Registry

	name       string
	devicePath string
	count      int
	logger     *zap.Logger

	mu    sync.Mutex
	lines map[hal.PinID]*line
}

// Option tweaks a port.
type Option func(*Port)

// WithLogger attaches a logger; the default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Port) { p.logger = l }
}

// New builds a port over a gpiochip device exposing lines 0..pinCount-1.
// No file descriptors are opened until a pin is first configured or driven.
func New(name, devicePath string, pinCount int, opts ...Option) *Port {
	p := &Port{
		name:       name,
		devicePath: devicePath,
		count:      pinCount,
		logger:     zap.NewNop(),
		lines:      make(map[hal.PinID]*line),
	}
	for _, o := range opts {
		o(p)
	}
	p.Registry = hal.NewRegistry(p)
	return p
}

func (p *Port) Name() string { return p.name }

func (p *Port) HasPin(id hal.PinID) bool { return int(id) < p.count }

// GlobalID: line offsets are already the chip-global numbering.
func (p *Port) GlobalID(id hal.PinID) (int, bool) {
	if !p.HasPin(id) {
		return 0, false
	}
	return int(id), true
}

// openLocked (re)opens the line for id in the requested direction.
// Caller holds p.mu.
func (p *Port) openLocked(id hal.PinID, output bool, initial hal.Level) error {
	if ln, ok := p.lines[id]; ok {
		if ln.output == output {
			return nil
		}
		err := ln.l.Close()
		delete(p.lines, id)
		if err != nil {
			return err
		}
	}

	chip, err := gpio.OpenChip(p.devicePath)
	if err != nil {
		return err
	}
	defer chip.Close()

	flag := gpio.Input
	var def byte
	if output {
		flag = gpio.Output
		if initial == hal.High {
			def = 1
		}
	}
	l, err := chip.OpenLine(uint32(id), def, flag, consumer)
	if err != nil {
		return err
	}
	p.lines[id] = &line{l: l, output: output}
	return nil
}

// ConfigurePins opens each line in the requested direction. The character
// device has no pull control on this kernel interface; pull-up/down inputs
// are opened as plain inputs.
func (p *Port) ConfigurePins(ids []hal.PinID, cfgs []hal.PinConfig) error {
	const op = "linuxport.configure"
	if len(ids) != len(cfgs) {
		return errcode.New(errcode.InvalidParams, op, "length mismatch")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, id := range ids {
		if !p.HasPin(id) {
			return errcode.Pin(errcode.UnknownPin, op, int(id))
		}
		cfg := cfgs[i]
		if err := p.openLocked(id, cfg.Mode == hal.ModeOutput, cfg.Initial); err != nil {
			return errcode.Wrap(errcode.Error, op, err)
		}
		p.logger.Debug("configured line",
			zap.Uint32("pin", uint32(id)), zap.String("mode", cfg.Mode.String()))
	}
	return nil
}

func (p *Port) WritePins(ids []hal.PinID, levels []hal.Level) error {
	const op = "linuxport.write"
	if len(ids) != len(levels) {
		return errcode.New(errcode.InvalidParams, op, "length mismatch")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, id := range ids {
		if !p.HasPin(id) {
			return errcode.Pin(errcode.UnknownPin, op, int(id))
		}
		if err := p.openLocked(id, true, levels[i]); err != nil {
			return errcode.Wrap(errcode.Error, op, err)
		}
		var v byte
		if levels[i] == hal.High {
			v = 1
		}
		if err := p.lines[id].l.SetValue(v); err != nil {
			return errcode.Wrap(errcode.Error, op, err)
		}
	}
	return nil
}

func (p *Port) ReadPins(ids []hal.PinID) ([]hal.Level, error) {
	const op = "linuxport.read"
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]hal.Level, len(ids))
	for i, id := range ids {
		if !p.HasPin(id) {
			return nil, errcode.Pin(errcode.UnknownPin, op, int(id))
		}
		ln, ok := p.lines[id]
		if !ok {
			if err := p.openLocked(id, false, hal.Low); err != nil {
				return nil, errcode.Wrap(errcode.Error, op, err)
			}
			ln = p.lines[id]
		}
		v, err := ln.l.Value()
		if err != nil {
			return nil, errcode.Wrap(errcode.Error, op, err)
		}
		out[i] = v != 0
	}
	return out, nil
}

// Close releases every open line. The port must not be used afterwards.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	for id, ln := range p.lines {
		err = multierr.Append(err, ln.l.Close())
		delete(p.lines, id)
	}
	return err
}
