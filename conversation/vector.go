package conversation

import (
	"encoding/binary"

	"pinhal-go/errcode"
)

// Vector is the handle for one part of a Conversation. Appends are only
// valid on owned output vectors; length and offset adjustments only on
// owned (variable-length) parts.
type Vector struct {
	c   *Conversation
	idx int
}

func (v *Vector) part() *part { return &v.c.parts[v.idx] }

// Direction returns the part's direction.
func (v *Vector) Direction() Direction { return v.part().dir }

// Order returns the part's declared byte order.
func (v *Vector) Order() Order { return v.part().order }

// Length returns the logical length, excluding any reserved prefix.
func (v *Vector) Length() int { return v.part().length }

// Bytes returns the caller-visible region past the start offset. For input
// parts this is the received data after execution.
func (v *Vector) Bytes() []byte { return v.part().view() }

// Prefix returns the reserved prefix region for one-time writes, e.g. an
// address header that stays fixed while the payload is rebuilt.
func (v *Vector) Prefix() []byte {
	p := v.part()
	return p.data[:p.start]
}

// appendable rejects appends on anything but an owned output vector.
func (v *Vector) appendable(op string) (*part, error) {
	p := v.part()
	if p.dir == In {
		return nil, errPart(errcode.AppendToInput, op, "part is an input")
	}
	if !p.variable {
		return nil, errPart(errcode.NotVariableLength, op, "external buffer is fixed")
	}
	return p, nil
}

// AppendByte appends one byte to an output vector.
func (v *Vector) AppendByte(b byte) error {
	p, err := v.appendable("conversation.appendbyte")
	if err != nil {
		return err
	}
	p.data = append(p.data, b)
	p.length++
	return nil
}

// AppendBytes appends a raw buffer to an output vector.
func (v *Vector) AppendBytes(buf []byte) error {
	p, err := v.appendable("conversation.appendbytes")
	if err != nil {
		return err
	}
	p.data = append(p.data, buf...)
	p.length += len(buf)
	return nil
}

// AppendString appends the raw bytes of s to an output vector.
func (v *Vector) AppendString(s string) error {
	p, err := v.appendable("conversation.appendstring")
	if err != nil {
		return err
	}
	p.data = append(p.data, s...)
	p.length += len(s)
	return nil
}

// AppendUint16 appends a 16-bit value in the part's byte order.
func (v *Vector) AppendUint16(x uint16) error {
	p, err := v.appendable("conversation.appenduint16")
	if err != nil {
		return err
	}
	var b [2]byte
	v.put(p, b[:], uint64(x))
	p.data = append(p.data, b[:]...)
	p.length += 2
	return nil
}

// AppendUint32 appends a 32-bit value in the part's byte order.
func (v *Vector) AppendUint32(x uint32) error {
	p, err := v.appendable("conversation.appenduint32")
	if err != nil {
		return err
	}
	var b [4]byte
	v.put(p, b[:], uint64(x))
	p.data = append(p.data, b[:]...)
	p.length += 4
	return nil
}

func (v *Vector) put(p *part, dst []byte, x uint64) {
	switch p.order {
	case BigEndian:
		switch len(dst) {
		case 2:
			binary.BigEndian.PutUint16(dst, uint16(x))
		case 4:
			binary.BigEndian.PutUint32(dst, uint32(x))
		}
	default:
		switch len(dst) {
		case 2:
			binary.LittleEndian.PutUint16(dst, uint16(x))
		case 4:
			binary.LittleEndian.PutUint32(dst, uint32(x))
		}
	}
}

// SetLength resizes a variable-length part between executions. Growing is
// bounded by the part's allocated capacity for input vectors; output vectors
// may only shrink below what has been appended. Fails with
// errcode.NotVariableLength on external-buffer parts.
func (v *Vector) SetLength(n int) error {
	const op = "conversation.setlength"
	p := v.part()
	if !p.variable {
		return errPart(errcode.NotVariableLength, op, "external buffer is fixed")
	}
	if n < 0 {
		return errPart(errcode.InvalidParams, op, "negative length")
	}
	max := cap(p.data) - p.start
	if p.dir == Out {
		// Outputs only shrink; growing would expose bytes never appended.
		max = len(p.data) - p.start
	}
	if n > max {
		return errPart(errcode.InvalidParams, op, "length exceeds part capacity")
	}
	p.length = n
	p.data = p.data[:p.start+n]
	return nil
}

// SetStartOffset moves the hidden-prefix boundary of an owned output vector.
// The offset must lie within the bytes already present.
func (v *Vector) SetStartOffset(n int) error {
	const op = "conversation.setstartoffset"
	p := v.part()
	if !p.variable || p.dir != Out {
		return errPart(errcode.NotVariableLength, op, "part has no adjustable prefix")
	}
	if n < 0 || n > len(p.data) {
		return errPart(errcode.InvalidParams, op, "offset out of range")
	}
	p.start = n
	p.length = len(p.data) - n
	return nil
}
