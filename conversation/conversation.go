// Package conversation describes half-duplex bus transactions independently
// of the transport that executes them. A Conversation is an ordered script
// of parts (outputs the master sends, inputs the device fills), built once
// and re-executed; an Extractor then reads the received bytes back out in
// declared order.
//
// The package performs no I/O. Execution belongs to a Conversationalist —
// a bus master for I2C, SMBus or SPI — which walks the parts in order and
// fills input parts in place.
package conversation

import (
	"context"

	"pinhal-go/errcode"
)

// Direction of one part, seen from the bus master.
type Direction uint8

const (
	Out Direction = iota // master -> device
	In                   // device -> master
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// Order is the byte order multi-byte values use within one part.
type Order uint8

const (
	LittleEndian Order = iota
	BigEndian
)

// part is one contiguous region of the script. Owned parts (vectors) carry
// their storage in data; external parts alias caller memory. For owned
// parts, len(data) is always start+length.
type part struct {
	dir      Direction
	extract  bool
	variable bool // owned vectors accept SetLength/SetStartOffset
	order    Order

	data   []byte
	start  int // hidden prefix boundary
	length int // logical length past start

	declLen int // input vectors: length to restore on Reset
}

// wire returns the full on-wire region, prefix included.
func (p *part) wire() []byte { return p.data[:p.start+p.length] }

// view returns the caller-visible region past the start offset.
func (p *part) view() []byte { return p.data[p.start : p.start+p.length] }

// Conversation is an ordered transaction script. It is reusable as a
// template: part count and order are fixed once built, while variable-length
// parts may be resized between executions. A Conversation must not be
// executed concurrently with itself.
type Conversation struct {
	parts []part
}

// New returns an empty conversation.
func New() *Conversation { return &Conversation{} }

// VectorOption tweaks a part at construction.
type VectorOption func(*part)

// WithOrder sets the byte order typed appends and extraction use for the
// part. The default is LittleEndian.
func WithOrder(o Order) VectorOption {
	return func(p *part) { p.order = o }
}

// WithStartOffset reserves n prefix bytes on an owned output vector. The
// prefix is sent on the wire but hidden from Length, Bytes and appends; use
// Prefix to write it once.
func WithStartOffset(n int) VectorOption {
	return func(p *part) {
		if n < 0 {
			n = 0
		}
		p.start = n
	}
}

// NoExtract excludes an input part from extraction.
func NoExtract() VectorOption {
	return func(p *part) { p.extract = false }
}

// AddOutputVector appends a new, empty, growable owned output region. The
// caller appends bytes to the returned handle before execution.
func (c *Conversation) AddOutputVector(opts ...VectorOption) *Vector {
	p := part{dir: Out, variable: true}
	for _, o := range opts {
		o(&p)
	}
	p.data = make([]byte, p.start)
	c.parts = append(c.parts, p)
	return &Vector{c: c, idx: len(c.parts) - 1}
}

// AddInputVector appends an owned fixed-size input region the bus master
// fills. Input vectors are extraction targets unless opted out.
func (c *Conversation) AddInputVector(n int, opts ...VectorOption) *Vector {
	if n < 0 {
		n = 0
	}
	p := part{dir: In, extract: true, variable: true, length: n, declLen: n}
	for _, o := range opts {
		o(&p)
	}
	p.start = 0 // input vectors have no prefix
	p.data = make([]byte, n)
	c.parts = append(c.parts, p)
	return &Vector{c: c, idx: len(c.parts) - 1}
}

// AddOutputBuffer appends a part aliasing caller-owned memory, sent as-is.
// Zero-copy: the caller may rewrite buf between executions, but the part's
// shape is fixed.
func (c *Conversation) AddOutputBuffer(buf []byte) *Vector {
	c.parts = append(c.parts, part{dir: Out, data: buf, length: len(buf)})
	return &Vector{c: c, idx: len(c.parts) - 1}
}

// AddInputBuffer appends an input part aliasing caller-owned memory; the bus
// master fills buf in place. Extraction target unless opted out.
func (c *Conversation) AddInputBuffer(buf []byte, opts ...VectorOption) *Vector {
	p := part{dir: In, extract: true, data: buf, length: len(buf), declLen: len(buf)}
	for _, o := range opts {
		o(&p)
	}
	p.start = 0
	c.parts = append(c.parts, p)
	return &Vector{c: c, idx: len(c.parts) - 1}
}

// NumParts returns the number of parts in script order.
func (c *Conversation) NumParts() int { return len(c.parts) }

// View is one part as a bus master sees it: the full wire region, prefix
// included. Input parts are filled through Bytes in place.
type View struct {
	Dir   Direction
	Bytes []byte
}

// View returns the wire view of part i.
func (c *Conversation) View(i int) View {
	p := &c.parts[i]
	return View{Dir: p.dir, Bytes: p.wire()}
}

// Reset prepares a template for re-execution: input parts are zeroed and
// restored to their declared length. Output parts are left alone.
func (c *Conversation) Reset() {
	for i := range c.parts {
		p := &c.parts[i]
		if p.dir != In {
			continue
		}
		p.length = p.declLen
		p.data = p.data[:p.start+p.length]
		clear(p.data)
	}
}

// Conversationalist executes a whole conversation as one half-duplex
// exchange, filling input parts in place. Implementations block for the
// duration of the transfer; transport errors originate there.
type Conversationalist interface {
	Converse(ctx context.Context, c *Conversation) error
}

// errPart builds a conversation-misuse error.
func errPart(c errcode.Code, op, msg string) error {
	return errcode.New(c, op, msg)
}
