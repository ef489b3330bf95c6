//go:build linux

// Package rpiport implements hal.Port over the Raspberry Pi's memory-mapped
// BCM283x GPIO registers via go-rpio. Pin ids are BCM numbers.
package rpiport

import (
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
	"go.uber.org/zap"

	"pinhal-go/errcode"
	"pinhal-go/hal"
)

// Port drives the Pi's GPIO bank. One Port per process; rpio maps the
// register page globally.
type Port struct {
	*hal.Registry

	name   string
	count  int
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Option tweaks a port.
type Option func(*Port)

// WithLogger attaches a logger; the default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Port) { p.logger = l }
}

// New maps the GPIO registers and exposes BCM pins 0..pinCount-1
// (28 covers the 40-pin header).
func New(name string, pinCount int, opts ...Option) (*Port, error) {
	if err := rpio.Open(); err != nil {
		return nil, errcode.Wrap(errcode.Error, "rpiport.new", err)
	}
	p := &Port{name: name, count: pinCount, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	p.Registry = hal.NewRegistry(p)
	return p, nil
}

func (p *Port) Name() string { return p.name }

func (p *Port) HasPin(id hal.PinID) bool { return int(id) < p.count }

// GlobalID: ids are already BCM numbers.
func (p *Port) GlobalID(id hal.PinID) (int, bool) {
	if !p.HasPin(id) {
		return 0, false
	}
	return int(id), true
}

func (p *Port) ConfigurePins(ids []hal.PinID, cfgs []hal.PinConfig) error {
	const op = "rpiport.configure"
	if len(ids) != len(cfgs) {
		return errcode.New(errcode.InvalidParams, op, "length mismatch")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errcode.New(errcode.InvalidAccess, op, "port closed")
	}
	for i, id := range ids {
		if !p.HasPin(id) {
			return errcode.Pin(errcode.UnknownPin, op, int(id))
		}
		pin := rpio.Pin(id)
		switch cfgs[i].Mode {
		case hal.ModeOutput:
			pin.Output()
			if cfgs[i].Initial == hal.High {
				pin.High()
			} else {
				pin.Low()
			}
		case hal.ModeInputPullUp:
			pin.Input()
			pin.PullUp()
		case hal.ModeInputPullDown:
			pin.Input()
			pin.PullDown()
		default:
			pin.Input()
			pin.PullOff()
		}
		p.logger.Debug("configured pin",
			zap.Uint32("pin", uint32(id)), zap.String("mode", cfgs[i].Mode.String()))
	}
	return nil
}

func (p *Port) WritePins(ids []hal.PinID, levels []hal.Level) error {
	const op = "rpiport.write"
	if len(ids) != len(levels) {
		return errcode.New(errcode.InvalidParams, op, "length mismatch")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errcode.New(errcode.InvalidAccess, op, "port closed")
	}
	for i, id := range ids {
		if !p.HasPin(id) {
			return errcode.Pin(errcode.UnknownPin, op, int(id))
		}
		if levels[i] == hal.High {
			rpio.Pin(id).High()
		} else {
			rpio.Pin(id).Low()
		}
	}
	return nil
}

func (p *Port) ReadPins(ids []hal.PinID) ([]hal.Level, error) {
	const op = "rpiport.read"
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errcode.New(errcode.InvalidAccess, op, "port closed")
	}
	out := make([]hal.Level, len(ids))
	for i, id := range ids {
		if !p.HasPin(id) {
			return nil, errcode.Pin(errcode.UnknownPin, op, int(id))
		}
		out[i] = rpio.Pin(id).Read() == rpio.High
	}
	return out, nil
}

// Close unmaps the GPIO registers. The port must not be used afterwards.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return rpio.Close()
}
