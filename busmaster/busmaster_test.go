package busmaster_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"pinhal-go/busmaster"
	"pinhal-go/chipselect"
	"pinhal-go/conversation"
	"pinhal-go/errcode"
	"pinhal-go/hal"
	"pinhal-go/ports/simport"
)

// fakeI2C records the single write-then-read exchange and answers with a
// canned response.
type fakeI2C struct {
	addr     uint16
	wrote    []byte
	response []byte
	err      error
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.addr = addr
	f.wrote = append(f.wrote[:0], w...)
	if f.err != nil {
		return f.err
	}
	copy(r, f.response)
	return nil
}

// fakeSPI records the shifted bytes and echoes a canned pattern back.
type fakeSPI struct {
	shifted  []byte
	response []byte
	err      error
}

func (f *fakeSPI) Tx(w, r []byte) error {
	f.shifted = append(f.shifted[:0], w...)
	if f.err != nil {
		return f.err
	}
	copy(r, f.response)
	return nil
}

func (f *fakeSPI) Transfer(b byte) (byte, error) { return b, f.err }

func TestI2CGatherScatter(t *testing.T) {
	bus := &fakeI2C{response: []byte{0xA1, 0xA2, 0xB1, 0xB2, 0xB3}}
	m := busmaster.NewI2C(bus, 0x38)

	c := conversation.New()
	out1 := c.AddOutputVector()
	if err := out1.AppendBytes([]byte{0x01, 0x02}); err != nil {
		t.Fatalf("append: %v", err)
	}
	in1 := c.AddInputVector(2)
	out2 := c.AddOutputVector()
	if err := out2.AppendByte(0x03); err != nil {
		t.Fatalf("append: %v", err)
	}
	in2 := c.AddInputVector(3)

	if err := m.Converse(context.Background(), c); err != nil {
		t.Fatalf("converse: %v", err)
	}
	if bus.addr != 0x38 {
		t.Fatalf("addr = %#x", bus.addr)
	}
	// All outputs concatenate into one write regardless of interleaving.
	if !bytes.Equal(bus.wrote, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("write = %x", bus.wrote)
	}
	// The read scatters back into the input parts in script order.
	if !bytes.Equal(in1.Bytes(), []byte{0xA1, 0xA2}) {
		t.Fatalf("in1 = %x", in1.Bytes())
	}
	if !bytes.Equal(in2.Bytes(), []byte{0xB1, 0xB2, 0xB3}) {
		t.Fatalf("in2 = %x", in2.Bytes())
	}
}

func TestI2CEmptyConversation(t *testing.T) {
	m := busmaster.NewI2C(&fakeI2C{}, 0x38)
	if err := m.Converse(context.Background(), conversation.New()); !errcode.Is(err, errcode.InvalidParams) {
		t.Fatalf("got %v, want invalid_params", err)
	}
}

func TestI2CContextCancelled(t *testing.T) {
	bus := &fakeI2C{}
	m := busmaster.NewI2C(bus, 0x38)
	c := conversation.New()
	c.AddInputVector(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Converse(ctx, c); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if bus.wrote != nil {
		t.Fatal("cancelled converse touched the bus")
	}
}

func TestSPIFullDuplexPadding(t *testing.T) {
	bus := &fakeSPI{response: []byte{0, 0, 0xC1, 0xC2}}
	m := busmaster.NewSPI(bus, chipselect.ChipSelect{})

	c := conversation.New()
	out := c.AddOutputVector()
	if err := out.AppendBytes([]byte{0x0B, 0x00}); err != nil {
		t.Fatalf("append: %v", err)
	}
	in := c.AddInputVector(2)

	if err := m.Converse(context.Background(), c); err != nil {
		t.Fatalf("converse: %v", err)
	}
	// Inputs clock out as zero padding; the shift covers the whole script.
	if !bytes.Equal(bus.shifted, []byte{0x0B, 0x00, 0x00, 0x00}) {
		t.Fatalf("shifted = %x", bus.shifted)
	}
	if !bytes.Equal(in.Bytes(), []byte{0xC1, 0xC2}) {
		t.Fatalf("in = %x", in.Bytes())
	}
}

func TestSPISelectsAroundShift(t *testing.T) {
	p := simport.New("sim", 2)
	mgr := chipselect.NewDedicated()
	tok, err := p.Acquire(0)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := mgr.SetSelectPin(tok, chipselect.ActiveLow); err != nil {
		t.Fatalf("setselectpin: %v", err)
	}

	cs, err := chipselect.Select(mgr, 1)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	bus := &fakeSPI{response: []byte{0x55}}
	m := busmaster.NewSPI(bus, cs)

	c := conversation.New()
	in := c.AddInputVector(1)
	if err := m.Converse(context.Background(), c); err != nil {
		t.Fatalf("converse: %v", err)
	}
	if in.Bytes()[0] != 0x55 {
		t.Fatalf("in = %x", in.Bytes())
	}
	// Deselected and released afterwards.
	if p.LevelOf(0) != hal.High {
		t.Fatal("chip still selected after converse")
	}
	if mgr.InUse() {
		t.Fatal("chip access leaked after converse")
	}
}

func TestSPIDeselectsOnTransferError(t *testing.T) {
	p := simport.New("sim", 2)
	mgr := chipselect.NewDedicated()
	tok, _ := p.Acquire(0)
	if err := mgr.SetSelectPin(tok, chipselect.ActiveLow); err != nil {
		t.Fatalf("setselectpin: %v", err)
	}

	cs, err := chipselect.Select(mgr, 1)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	busErr := errors.New("shift failed")
	bus := &fakeSPI{err: busErr}
	m := busmaster.NewSPI(bus, cs)

	c := conversation.New()
	c.AddInputVector(1)
	if err := m.Converse(context.Background(), c); !errors.Is(err, busErr) {
		t.Fatalf("got %v, want the transfer error", err)
	}
	if p.LevelOf(0) != hal.High {
		t.Fatal("chip left selected after failed transfer")
	}
	if mgr.InUse() {
		t.Fatal("chip access leaked after failed transfer")
	}
}
