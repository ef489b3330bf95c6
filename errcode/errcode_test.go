package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	if Of(nil) != OK {
		t.Fatal("nil must map to OK")
	}
	if Of(PinInUse) != PinInUse {
		t.Fatal("bare Code must pass through")
	}
	if Of(New(Busy, "op", "msg")) != Busy {
		t.Fatal("E must surface its code")
	}
	// Wrapped causes: the outermost code wins.
	inner := Pin(UnknownPin, "inner", 3)
	outer := Wrap(InvalidParams, "outer", inner)
	if Of(outer) != InvalidParams {
		t.Fatal("outer code must win")
	}
	// Foreign wrapping still reaches the code.
	if Of(fmt.Errorf("ctx: %w", inner)) != UnknownPin {
		t.Fatal("code lost through fmt.Errorf wrapping")
	}
	if Of(errors.New("plain")) != Error {
		t.Fatal("unknown errors map to the generic code")
	}
}

func TestErrorString(t *testing.T) {
	e := New(InvalidChip, "chipselect.mux.access", "id 0 reserved")
	want := "chipselect.mux.access: invalid_chip: id 0 reserved"
	if e.Error() != want {
		t.Fatalf("got %q, want %q", e.Error(), want)
	}
}

func TestContextFields(t *testing.T) {
	if e := Pin(PinInUse, "op", 7); e.Pin != 7 || e.Chip != NoChip {
		t.Fatalf("pin context wrong: %+v", e)
	}
	if e := Chip(ChipInUse, "op", 2); e.Chip != 2 || e.Pin != NoPin {
		t.Fatalf("chip context wrong: %+v", e)
	}
}
