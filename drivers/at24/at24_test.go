package at24_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"pinhal-go/conversation"
	"pinhal-go/drivers/at24"
)

// fakeEEPROM backs the driver with an in-memory array and decodes the wire
// shapes the templates produce: an output header followed by an input part
// is a random read; a single output part is a page write with the address
// leading the payload.
type fakeEEPROM struct {
	mem       []byte
	addrBytes int

	writes []write // one entry per page-write transaction
}

type write struct {
	addr int
	n    int
}

func (f *fakeEEPROM) addr(b []byte) int {
	if f.addrBytes == 2 {
		return int(b[0])<<8 | int(b[1])
	}
	return int(b[0])
}

func (f *fakeEEPROM) Converse(_ context.Context, c *conversation.Conversation) error {
	out := c.View(0)
	if c.NumParts() == 2 {
		in := c.View(1)
		copy(in.Bytes, f.mem[f.addr(out.Bytes):])
		return nil
	}
	a := f.addr(out.Bytes[:f.addrBytes])
	payload := out.Bytes[f.addrBytes:]
	copy(f.mem[a:], payload)
	f.writes = append(f.writes, write{addr: a, n: len(payload)})
	return nil
}

func newDevice(t *testing.T) (*at24.Device, *fakeEEPROM) {
	t.Helper()
	f := &fakeEEPROM{mem: make([]byte, 256), addrBytes: 1}
	d, err := at24.New(f, at24.Config{
		Size: 256, PageSize: 16, AddrBytes: 1,
		WriteCycle: time.Nanosecond,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return d, f
}

func TestWriteSplitsOnPageBoundaries(t *testing.T) {
	d, f := newDevice(t)

	src := make([]byte, 20)
	for i := range src {
		src[i] = byte(i + 1)
	}
	// Starting mid-page: the first chunk stops at the page edge.
	if err := d.WriteAt(context.Background(), src, 10); err != nil {
		t.Fatalf("writeat: %v", err)
	}
	want := []write{{addr: 10, n: 6}, {addr: 16, n: 14}}
	if len(f.writes) != len(want) || f.writes[0] != want[0] || f.writes[1] != want[1] {
		t.Fatalf("writes = %v, want %v", f.writes, want)
	}
	if !bytes.Equal(f.mem[10:30], src) {
		t.Fatalf("mem = %x", f.mem[10:30])
	}
}

func TestReadChunksWithShortTail(t *testing.T) {
	d, f := newDevice(t)
	for i := range f.mem {
		f.mem[i] = byte(i)
	}

	dst := make([]byte, 20) // one full page plus a 4-byte tail
	if err := d.ReadAt(context.Background(), dst, 100); err != nil {
		t.Fatalf("readat: %v", err)
	}
	if !bytes.Equal(dst, f.mem[100:120]) {
		t.Fatalf("dst = %x", dst)
	}
}

func TestRoundTripAcrossTemplateReuse(t *testing.T) {
	d, _ := newDevice(t)
	ctx := context.Background()

	// Two writes of different sizes through the same template; the second
	// must not carry bytes from the first.
	if err := d.WriteAt(ctx, []byte{0xDE, 0xAD, 0xBE, 0xEF}, 0); err != nil {
		t.Fatalf("writeat: %v", err)
	}
	if err := d.WriteAt(ctx, []byte{0x01}, 32); err != nil {
		t.Fatalf("writeat: %v", err)
	}

	got := make([]byte, 4)
	if err := d.ReadAt(ctx, got, 0); err != nil {
		t.Fatalf("readat: %v", err)
	}
	if !bytes.Equal(got, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("got %x", got)
	}
	if err := d.ReadAt(ctx, got[:2], 32); err != nil {
		t.Fatalf("readat: %v", err)
	}
	if got[0] != 0x01 || got[1] != 0x00 {
		t.Fatalf("second region = %x", got[:2])
	}
}

func TestBoundsChecked(t *testing.T) {
	d, _ := newDevice(t)
	ctx := context.Background()
	if err := d.WriteAt(ctx, make([]byte, 2), 255); !errors.Is(err, at24.ErrOutOfRange) {
		t.Fatalf("write past end: got %v, want ErrOutOfRange", err)
	}
	if err := d.ReadAt(ctx, make([]byte, 1), -1); !errors.Is(err, at24.ErrOutOfRange) {
		t.Fatalf("negative addr: got %v, want ErrOutOfRange", err)
	}
}

func TestConfigValidation(t *testing.T) {
	bad := []at24.Config{
		{Size: 0, PageSize: 16, AddrBytes: 1},
		{Size: 100, PageSize: 16, AddrBytes: 1}, // not page-aligned
		{Size: 256, PageSize: 16, AddrBytes: 3},
	}
	for _, cfg := range bad {
		if err := cfg.Validate(); !errors.Is(err, at24.ErrConfig) {
			t.Fatalf("%+v: got %v, want ErrConfig", cfg, err)
		}
	}
	if err := (at24.Config{Size: 4096, PageSize: 32, AddrBytes: 2}).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
