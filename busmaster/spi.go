package busmaster

import (
	"context"

	"tinygo.org/x/drivers"

	"pinhal-go/chipselect"
	"pinhal-go/conversation"
	"pinhal-go/errcode"
)

// SPI executes conversations as one full-duplex shift: output parts are
// clocked out in order, then zero padding is clocked for the input phase
// while the returned bytes are captured into the input parts.
//
// When bound to a chip, the whole shift happens under one select/deselect
// pair minted from the ChipSelect; the chip is deselected even when the
// transfer fails.
type SPI struct {
	bus drivers.SPI
	cs  chipselect.ChipSelect

	tx, rx []byte
}

// NewSPI binds a bus and an optional chip binding. An unbound ChipSelect
// means selection is handled outside this master (e.g. by the controller's
// hardware CS).
func NewSPI(bus drivers.SPI, cs chipselect.ChipSelect) *SPI {
	return &SPI{bus: bus, cs: cs}
}

// Converse shifts the whole script. SPI is full duplex on the wire, so tx
// and rx always have the combined length of all parts; only the segments at
// input positions are copied back.
func (m *SPI) Converse(ctx context.Context, c *conversation.Conversation) error {
	const op = "busmaster.spi.converse"
	if c == nil || c.NumParts() == 0 {
		return errcode.New(errcode.InvalidParams, op, "empty conversation")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	total := 0
	for i := 0; i < c.NumParts(); i++ {
		total += len(c.View(i).Bytes)
	}
	if cap(m.tx) < total {
		m.tx = make([]byte, total)
		m.rx = make([]byte, total)
	}
	m.tx, m.rx = m.tx[:total], m.rx[:total]

	off := 0
	for i := 0; i < c.NumParts(); i++ {
		v := c.View(i)
		if v.Dir == conversation.Out {
			copy(m.tx[off:], v.Bytes)
		} else {
			clear(m.tx[off : off+len(v.Bytes)])
		}
		off += len(v.Bytes)
	}

	if err := m.shift(); err != nil {
		return err
	}

	off = 0
	for i := 0; i < c.NumParts(); i++ {
		v := c.View(i)
		if v.Dir == conversation.In {
			copy(v.Bytes, m.rx[off:off+len(v.Bytes)])
		}
		off += len(v.Bytes)
	}
	return nil
}

// shift performs the transfer under the chip-select assertion, if bound.
func (m *SPI) shift() error {
	if !m.cs.Bound() {
		return m.bus.Tx(m.tx, m.rx)
	}
	acc, err := m.cs.Access()
	if err != nil {
		return err
	}
	defer acc.Retire()
	if err := acc.Select(); err != nil {
		return err
	}
	txErr := m.bus.Tx(m.tx, m.rx)
	if dsErr := acc.Deselect(); txErr == nil {
		return dsErr
	}
	return txErr
}
