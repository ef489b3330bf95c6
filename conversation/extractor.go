package conversation

import (
	"encoding/binary"

	"pinhal-go/errcode"
)

// Extractor is a sequential cursor over a conversation's extraction-flagged
// parts, in declared order. Reads never cross a part boundary implicitly:
// a read larger than what remains in the current part fails, and an
// exact-fit read advances the cursor to the next extractable part.
//
// The zero value is unbound and fails every read.
type Extractor struct {
	c    *Conversation
	part int
	off  int
}

// NewExtractor positions a cursor at the first extractable part.
func NewExtractor(c *Conversation) *Extractor {
	e := &Extractor{c: c}
	e.part = e.nextExtractable(0)
	return e
}

// nextExtractable returns the index of the first extraction-flagged part at
// or after i, or len(parts).
func (e *Extractor) nextExtractable(i int) int {
	for ; i < len(e.c.parts); i++ {
		if e.c.parts[i].extract {
			return i
		}
	}
	return i
}

// current returns the active part, or an error when unbound or exhausted.
func (e *Extractor) current(op string) (*part, error) {
	if e == nil || e.c == nil {
		return nil, errPart(errcode.ExtractorUnbound, op, "no conversation bound")
	}
	if e.part >= len(e.c.parts) {
		return nil, errPart(errcode.ReadPastEnd, op, "no extractable parts remain")
	}
	return &e.c.parts[e.part], nil
}

// Remaining returns the unread bytes left in the current part, 0 when done.
func (e *Extractor) Remaining() int {
	p, err := e.current("conversation.remaining")
	if err != nil {
		return 0
	}
	return p.length - e.off
}

// NextPart force-skips the rest of the current part. It reports whether
// another extractable part is available.
func (e *Extractor) NextPart() bool {
	if e == nil || e.c == nil || e.part >= len(e.c.parts) {
		return false
	}
	e.part = e.nextExtractable(e.part + 1)
	e.off = 0
	return e.part < len(e.c.parts)
}

// Read copies len(dst) bytes from the current position. It fails with
// errcode.ReadPastEnd if dst is larger than the bytes remaining in the
// current part; nothing is copied on failure.
func (e *Extractor) Read(dst []byte) error {
	const op = "conversation.read"
	p, err := e.current(op)
	if err != nil {
		return err
	}
	if len(dst) > p.length-e.off {
		return errPart(errcode.ReadPastEnd, op, "read exceeds current part")
	}
	copy(dst, p.view()[e.off:e.off+len(dst)])
	e.advance(len(dst), p)
	return nil
}

// advance moves the cursor, hopping to the next extractable part when the
// current one is exhausted.
func (e *Extractor) advance(n int, p *part) {
	e.off += n
	if e.off >= p.length {
		e.part = e.nextExtractable(e.part + 1)
		e.off = 0
	}
}

// ReadByte extracts one byte.
func (e *Extractor) ReadByte() (byte, error) {
	var b [1]byte
	if err := e.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 extracts a 16-bit value in the current part's byte order.
func (e *Extractor) ReadUint16() (uint16, error) {
	p, err := e.current("conversation.readuint16")
	if err != nil {
		return 0, err
	}
	var b [2]byte
	if err := e.Read(b[:]); err != nil {
		return 0, err
	}
	if p.order == BigEndian {
		return binary.BigEndian.Uint16(b[:]), nil
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// ReadUint32 extracts a 32-bit value in the current part's byte order.
func (e *Extractor) ReadUint32() (uint32, error) {
	p, err := e.current("conversation.readuint32")
	if err != nil {
		return 0, err
	}
	var b [4]byte
	if err := e.Read(b[:]); err != nil {
		return 0, err
	}
	if p.order == BigEndian {
		return binary.BigEndian.Uint32(b[:]), nil
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
