// Package at24 drives AT24-style I2C EEPROMs. Reads and page writes are
// built as reusable conversation templates: the write template keeps the
// memory address in a reserved prefix and rebuilds only the payload, the
// read template resizes its input part for tail reads shorter than a page.
package at24

import (
	"context"
	"errors"
	"time"

	"pinhal-go/conversation"
	"pinhal-go/x/mathx"
)

// Errors returned by the driver.
var (
	ErrOutOfRange = errors.New("at24: address out of range")
	ErrConfig     = errors.New("at24: invalid config")
)

// Config describes the EEPROM geometry. Integer-only, like the part labels:
// an AT24C32 is Size 4096, PageSize 32, AddrBytes 2.
type Config struct {
	Size      int // total bytes
	PageSize  int // write page, bytes
	AddrBytes int // memory address width on the wire: 1 or 2
	// WriteCycle is the post-write settle time. Default 5 ms.
	WriteCycle time.Duration
}

// Validate checks the geometry before a Device is built on it.
func (c Config) Validate() error {
	if c.Size <= 0 || c.PageSize <= 0 || c.Size%c.PageSize != 0 {
		return ErrConfig
	}
	if c.AddrBytes != 1 && c.AddrBytes != 2 {
		return ErrConfig
	}
	return nil
}

// Device holds the templates for one EEPROM. Not safe for concurrent use;
// callers serialize through whatever token guards the bus.
type Device struct {
	talk conversation.Conversationalist
	cfg  Config

	read    *conversation.Conversation
	readIn  *conversation.Vector
	readHdr *conversation.Vector

	write    *conversation.Conversation
	writeOut *conversation.Vector
}

// New builds the device. The Conversationalist must be bound to the chip's
// bus address.
func New(talk conversation.Conversationalist, cfg Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.WriteCycle <= 0 {
		cfg.WriteCycle = 5 * time.Millisecond
	}
	d := &Device{talk: talk, cfg: cfg}

	// Random read: address header out, up to one page in.
	d.read = conversation.New()
	d.readHdr = d.read.AddOutputVector()
	for i := 0; i < cfg.AddrBytes; i++ {
		if err := d.readHdr.AppendByte(0); err != nil {
			return nil, err
		}
	}
	d.readIn = d.read.AddInputVector(cfg.PageSize)

	// Page write: one output vector, address kept in the hidden prefix so
	// per-call rebuilds touch only the payload.
	d.write = conversation.New()
	d.writeOut = d.write.AddOutputVector(conversation.WithStartOffset(cfg.AddrBytes))

	return d, nil
}

// putAddr encodes a memory address big-endian into dst (the EEPROM's wire
// order regardless of host endianness).
func (d *Device) putAddr(dst []byte, addr int) {
	if d.cfg.AddrBytes == 2 {
		dst[0] = byte(addr >> 8)
		dst[1] = byte(addr)
		return
	}
	dst[0] = byte(addr)
}

// ReadAt fills dst from the EEPROM starting at addr, chunked by page size.
func (d *Device) ReadAt(ctx context.Context, dst []byte, addr int) error {
	if addr < 0 || addr+len(dst) > d.cfg.Size {
		return ErrOutOfRange
	}
	for len(dst) > 0 {
		n := mathx.Min(len(dst), d.cfg.PageSize)
		d.read.Reset()
		if err := d.readIn.SetLength(n); err != nil {
			return err
		}
		d.putAddr(d.readHdr.Bytes(), addr)
		if err := d.talk.Converse(ctx, d.read); err != nil {
			return err
		}
		if err := conversation.NewExtractor(d.read).Read(dst[:n]); err != nil {
			return err
		}
		dst = dst[n:]
		addr += n
	}
	return nil
}

// WriteAt writes src starting at addr, split on page boundaries. Each page
// reuses the same template: address in the prefix, payload re-appended.
func (d *Device) WriteAt(ctx context.Context, src []byte, addr int) error {
	if addr < 0 || addr+len(src) > d.cfg.Size {
		return ErrOutOfRange
	}
	for len(src) > 0 {
		// Stay inside the current page.
		room := d.cfg.PageSize - addr%d.cfg.PageSize
		n := mathx.Min(len(src), room)

		if err := d.writeOut.SetLength(0); err != nil {
			return err
		}
		d.putAddr(d.writeOut.Prefix(), addr)
		if err := d.writeOut.AppendBytes(src[:n]); err != nil {
			return err
		}
		if err := d.talk.Converse(ctx, d.write); err != nil {
			return err
		}
		time.Sleep(d.cfg.WriteCycle)
		src = src[n:]
		addr += n
	}
	return nil
}
