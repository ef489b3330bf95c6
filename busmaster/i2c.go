// Package busmaster provides Conversationalist implementations over the
// tinygo driver bus interfaces: an I2C/SMBus master performing a single
// write-then-read exchange, and an SPI master shifting the whole script
// under one chip-select assertion.
package busmaster

import (
	"context"

	"tinygo.org/x/drivers"

	"pinhal-go/conversation"
	"pinhal-go/errcode"
)

// I2C executes conversations against one device address on an I2C bus. The
// bus's Tx must perform the write followed by a repeated-start read without
// releasing the bus, which is what the tinygo drivers contract specifies.
//
// Not safe for concurrent Converse calls with the same Conversation; callers
// serialize through the access token guarding the device.
type I2C struct {
	bus  drivers.I2C
	addr uint16

	// Scratch reused across calls to keep the hot path allocation-free
	// once warmed up.
	w, r []byte
}

// NewI2C binds a bus and a device address.
func NewI2C(bus drivers.I2C, addr uint16) *I2C {
	return &I2C{bus: bus, addr: addr}
}

// Converse gathers all output parts into one write, sizes the read from the
// input parts, performs the exchange, and scatters the received bytes back
// into the input parts in script order.
func (m *I2C) Converse(ctx context.Context, c *conversation.Conversation) error {
	const op = "busmaster.i2c.converse"
	if c == nil || c.NumParts() == 0 {
		return errcode.New(errcode.InvalidParams, op, "empty conversation")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.w = m.w[:0]
	rlen := 0
	for i := 0; i < c.NumParts(); i++ {
		v := c.View(i)
		if v.Dir == conversation.Out {
			m.w = append(m.w, v.Bytes...)
		} else {
			rlen += len(v.Bytes)
		}
	}
	if cap(m.r) < rlen {
		m.r = make([]byte, rlen)
	}
	m.r = m.r[:rlen]

	if err := m.bus.Tx(m.addr, m.w, m.r); err != nil {
		return err
	}

	off := 0
	for i := 0; i < c.NumParts(); i++ {
		v := c.View(i)
		if v.Dir != conversation.In {
			continue
		}
		off += copy(v.Bytes, m.r[off:])
	}
	return nil
}
