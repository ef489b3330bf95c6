package conversation_test

import (
	"bytes"
	"context"
	"testing"

	"pinhal-go/conversation"
	"pinhal-go/errcode"
)

// fill is a Conversationalist that writes a fixed pattern into every input
// part, in script order.
type fill struct{ pattern []byte }

func (f fill) Converse(_ context.Context, c *conversation.Conversation) error {
	n := 0
	for i := 0; i < c.NumParts(); i++ {
		v := c.View(i)
		if v.Dir != conversation.In {
			continue
		}
		for j := range v.Bytes {
			v.Bytes[j] = f.pattern[n%len(f.pattern)]
			n++
		}
	}
	return nil
}

func TestRegisterReadShape(t *testing.T) {
	// The classic register read: one command byte out, six bytes in.
	c := conversation.New()
	out := c.AddOutputVector()
	if err := out.AppendByte(0x09); err != nil {
		t.Fatalf("append: %v", err)
	}
	c.AddInputVector(6)

	if c.NumParts() != 2 {
		t.Fatalf("numparts = %d, want 2", c.NumParts())
	}
	if v := c.View(0); v.Dir != conversation.Out || !bytes.Equal(v.Bytes, []byte{0x09}) {
		t.Fatalf("output view = %v", v)
	}

	if err := (fill{pattern: []byte{1, 2, 3, 4, 5, 6}}).Converse(context.Background(), c); err != nil {
		t.Fatalf("converse: %v", err)
	}

	e := conversation.NewExtractor(c)
	got := make([]byte, 6)
	if err := e.Read(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("extracted %v", got)
	}
	// Exact fit consumed the part; a seventh byte has nowhere to come from.
	if _, err := e.ReadByte(); !errcode.Is(err, errcode.ReadPastEnd) {
		t.Fatalf("read past end: got %v, want read_past_end", err)
	}
}

func TestReadNeverCrossesParts(t *testing.T) {
	c := conversation.New()
	c.AddInputVector(2)
	c.AddInputVector(4)
	if err := (fill{pattern: []byte{0xAA}}).Converse(context.Background(), c); err != nil {
		t.Fatalf("converse: %v", err)
	}

	e := conversation.NewExtractor(c)
	if e.Remaining() != 2 {
		t.Fatalf("remaining = %d, want 2", e.Remaining())
	}
	// A 3-byte read would have to span both parts; it must fail and copy
	// nothing.
	buf := make([]byte, 3)
	if err := e.Read(buf); !errcode.Is(err, errcode.ReadPastEnd) {
		t.Fatalf("spanning read: got %v, want read_past_end", err)
	}
	if e.Remaining() != 2 {
		t.Fatal("failed read moved the cursor")
	}
	if err := e.Read(buf[:2]); err != nil {
		t.Fatalf("read: %v", err)
	}
	// Exact fit advanced into the second part.
	if e.Remaining() != 4 {
		t.Fatalf("remaining = %d, want 4", e.Remaining())
	}
}

func TestNextPartSkipsAndNoExtract(t *testing.T) {
	c := conversation.New()
	c.AddInputVector(3)
	c.AddInputVector(2, conversation.NoExtract())
	c.AddInputVector(1)
	if err := (fill{pattern: []byte{7}}).Converse(context.Background(), c); err != nil {
		t.Fatalf("converse: %v", err)
	}

	e := conversation.NewExtractor(c)
	if _, err := e.ReadByte(); err != nil {
		t.Fatalf("readbyte: %v", err)
	}
	// Skip the rest of part 0; the NoExtract part is invisible.
	if !e.NextPart() {
		t.Fatal("nextpart reported no further parts")
	}
	if e.Remaining() != 1 {
		t.Fatalf("remaining = %d, want 1 (last part)", e.Remaining())
	}
	if e.NextPart() {
		t.Fatal("nextpart past the last extractable part")
	}
}

func TestZeroExtractorUnbound(t *testing.T) {
	var e conversation.Extractor
	if err := e.Read(make([]byte, 1)); !errcode.Is(err, errcode.ExtractorUnbound) {
		t.Fatalf("got %v, want extractor_unbound", err)
	}
	if e.Remaining() != 0 {
		t.Fatal("unbound extractor reported bytes remaining")
	}
}

func TestByteOrderPerPart(t *testing.T) {
	c := conversation.New()
	le := c.AddOutputVector()
	be := c.AddOutputVector(conversation.WithOrder(conversation.BigEndian))
	if err := le.AppendUint16(0x1234); err != nil {
		t.Fatalf("append le: %v", err)
	}
	if err := be.AppendUint32(0xDEADBEEF); err != nil {
		t.Fatalf("append be: %v", err)
	}
	if !bytes.Equal(le.Bytes(), []byte{0x34, 0x12}) {
		t.Fatalf("le bytes = %x", le.Bytes())
	}
	if !bytes.Equal(be.Bytes(), []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("be bytes = %x", be.Bytes())
	}

	// Extraction honours the part's declared order.
	c2 := conversation.New()
	c2.AddInputVector(2, conversation.WithOrder(conversation.BigEndian))
	v := c2.View(0)
	v.Bytes[0], v.Bytes[1] = 0x12, 0x34
	got, err := conversation.NewExtractor(c2).ReadUint16()
	if err != nil {
		t.Fatalf("readuint16: %v", err)
	}
	if got != 0x1234 {
		t.Fatalf("got %#x, want 0x1234", got)
	}
}

func TestAppendToInputFails(t *testing.T) {
	c := conversation.New()
	in := c.AddInputVector(4)
	if err := in.AppendByte(0); !errcode.Is(err, errcode.AppendToInput) {
		t.Fatalf("append to input vector: got %v, want append_to_input", err)
	}
	inb := c.AddInputBuffer(make([]byte, 2))
	if err := inb.AppendBytes([]byte{1}); !errcode.Is(err, errcode.AppendToInput) {
		t.Fatalf("append to input buffer: got %v, want append_to_input", err)
	}
}

func TestExternalBuffersAreFixed(t *testing.T) {
	c := conversation.New()
	out := c.AddOutputBuffer([]byte{1, 2, 3})
	if err := out.AppendByte(4); !errcode.Is(err, errcode.NotVariableLength) {
		t.Fatalf("append to external: got %v, want not_variable_length", err)
	}
	if err := out.SetLength(2); !errcode.Is(err, errcode.NotVariableLength) {
		t.Fatalf("setlength on external: got %v, want not_variable_length", err)
	}
	// The script still sends the aliased memory as-is.
	buf := []byte{9, 9}
	c.AddInputBuffer(buf)
	if v := c.View(1); &v.Bytes[0] != &buf[0] {
		t.Fatal("input buffer part does not alias caller memory")
	}
}

func TestStartOffsetHidesPrefix(t *testing.T) {
	c := conversation.New()
	out := c.AddOutputVector(conversation.WithStartOffset(2))
	if err := out.AppendBytes([]byte{0xA0, 0xA1, 0xA2}); err != nil {
		t.Fatalf("append: %v", err)
	}
	copy(out.Prefix(), []byte{0x10, 0x20})

	// Logical view excludes the prefix.
	if out.Length() != 3 {
		t.Fatalf("length = %d, want 3", out.Length())
	}
	if !bytes.Equal(out.Bytes(), []byte{0xA0, 0xA1, 0xA2}) {
		t.Fatalf("bytes = %x", out.Bytes())
	}
	// The wire view includes it.
	if v := c.View(0); !bytes.Equal(v.Bytes, []byte{0x10, 0x20, 0xA0, 0xA1, 0xA2}) {
		t.Fatalf("wire view = %x", v.Bytes)
	}
}

func TestSetLengthBounds(t *testing.T) {
	c := conversation.New()
	in := c.AddInputVector(8)
	if err := in.SetLength(3); err != nil {
		t.Fatalf("shrink input: %v", err)
	}
	if in.Length() != 3 || len(c.View(0).Bytes) != 3 {
		t.Fatal("input length not applied to wire view")
	}
	// Inputs may grow back up to the declared capacity, not beyond.
	if err := in.SetLength(8); err != nil {
		t.Fatalf("regrow input: %v", err)
	}
	if err := in.SetLength(9); !errcode.Is(err, errcode.InvalidParams) {
		t.Fatalf("grow past capacity: got %v, want invalid_params", err)
	}

	out := c.AddOutputVector()
	if err := out.AppendBytes([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := out.SetLength(2); err != nil {
		t.Fatalf("shrink output: %v", err)
	}
	// Outputs only shrink: growing would send bytes never appended.
	if err := out.SetLength(3); !errcode.Is(err, errcode.InvalidParams) {
		t.Fatalf("grow output: got %v, want invalid_params", err)
	}
	if err := out.SetLength(-1); !errcode.Is(err, errcode.InvalidParams) {
		t.Fatalf("negative length: got %v, want invalid_params", err)
	}
}

func TestResetRestoresInputs(t *testing.T) {
	c := conversation.New()
	out := c.AddOutputVector()
	if err := out.AppendByte(0x42); err != nil {
		t.Fatalf("append: %v", err)
	}
	in := c.AddInputVector(4)
	if err := in.SetLength(2); err != nil {
		t.Fatalf("setlength: %v", err)
	}
	if err := (fill{pattern: []byte{0xFF}}).Converse(context.Background(), c); err != nil {
		t.Fatalf("converse: %v", err)
	}

	c.Reset()
	if in.Length() != 4 {
		t.Fatalf("input length after reset = %d, want declared 4", in.Length())
	}
	for _, b := range in.Bytes() {
		if b != 0 {
			t.Fatal("input not zeroed by reset")
		}
	}
	// Outputs are template state and survive.
	if !bytes.Equal(out.Bytes(), []byte{0x42}) {
		t.Fatal("reset disturbed an output part")
	}
}
