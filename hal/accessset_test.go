package hal_test

import (
	"testing"

	"pinhal-go/errcode"
	"pinhal-go/hal"
)

func TestAcquireSetAtomic(t *testing.T) {
	p := newPort(t)

	held, _ := p.Acquire(2)
	defer held.Retire()

	// One held pin poisons the whole set; nothing must be claimed.
	if _, err := p.AcquireSet(0, 1, 2); !errcode.Is(err, errcode.PinInUse) {
		t.Fatalf("got %v, want pin_in_use", err)
	}
	if p.Held(0) || p.Held(1) {
		t.Fatal("partial claim after failed AcquireSet")
	}

	if _, err := p.AcquireSet(0, 1, 1); !errcode.Is(err, errcode.InvalidParams) {
		t.Fatalf("duplicate ids: got %v, want invalid_params", err)
	}
	if _, err := p.AcquireSet(); !errcode.Is(err, errcode.InvalidParams) {
		t.Fatalf("empty set: got %v, want invalid_params", err)
	}
}

func TestSetWriteMaskOrder(t *testing.T) {
	p := newPort(t)
	// Deliberately not in numeric order: bit i must drive position i.
	set, err := p.AcquireSet(5, 1, 3)
	if err != nil {
		t.Fatalf("acquireset: %v", err)
	}
	if err := set.ConfigureAll(hal.Output(hal.Low)); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := set.WriteMask(0b101); err != nil {
		t.Fatalf("writemask: %v", err)
	}
	if p.LevelOf(5) != hal.High || p.LevelOf(1) != hal.Low || p.LevelOf(3) != hal.High {
		t.Fatalf("mask misapplied: 5=%v 1=%v 3=%v", p.LevelOf(5), p.LevelOf(1), p.LevelOf(3))
	}
}

func TestSetSinglepositionWrite(t *testing.T) {
	p := newPort(t)
	set, _ := p.AcquireSet(0, 1)
	if err := set.ConfigureAll(hal.Output(hal.Low)); err != nil {
		t.Fatalf("configure: %v", err)
	}
	p.ClearWrites()
	if err := set.Set(1, hal.High); err != nil {
		t.Fatalf("set: %v", err)
	}
	writes := p.Writes()
	if len(writes) != 1 || writes[0].Pin != 1 {
		t.Fatalf("expected exactly one write to pin 1, got %v", writes)
	}
	if err := set.Set(2, hal.High); !errcode.Is(err, errcode.InvalidParams) {
		t.Fatalf("out-of-range position: got %v, want invalid_params", err)
	}
}

func TestSplitMovesOwnership(t *testing.T) {
	p := newPort(t)
	set, _ := p.AcquireSet(0, 1, 2, 3)

	sub, err := set.Split(1, 3)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if got := sub.Pins(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("subset pins = %v, want [1 3]", got)
	}
	if got := set.Pins(); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("remaining pins = %v, want [0 2]", got)
	}

	// Ownership followed the pins.
	sub.Retire()
	if _, err := p.Acquire(1); err != nil {
		t.Fatalf("pin 1 not released with subset: %v", err)
	}
	if _, err := p.Acquire(0); !errcode.Is(err, errcode.PinInUse) {
		t.Fatalf("pin 0 should still be owned by the source set")
	}
}

func TestSplitRejectsBadPositions(t *testing.T) {
	p := newPort(t)
	set, _ := p.AcquireSet(0, 1, 2)

	if _, err := set.Split(3); !errcode.Is(err, errcode.InvalidParams) {
		t.Fatalf("out of range: got %v, want invalid_params", err)
	}
	if _, err := set.Split(1, 1); !errcode.Is(err, errcode.InvalidParams) {
		t.Fatalf("duplicate: got %v, want invalid_params", err)
	}
	// Source untouched by the failures.
	if got := set.Pins(); len(got) != 3 {
		t.Fatalf("source mutated by failed split: %v", got)
	}
}

func TestSetMoveTo(t *testing.T) {
	p := newPort(t)
	src, _ := p.AcquireSet(0, 1)
	var dst hal.PinSetAccess
	src.MoveTo(&dst)
	if src.Valid() {
		t.Fatal("source valid after move")
	}
	if !dst.Valid() || dst.Len() != 2 {
		t.Fatal("destination did not take over the set")
	}
	dst.Retire()
	if p.Held(0) || p.Held(1) {
		t.Fatal("pins still owned after retire of moved set")
	}
}

func TestSetInvalidateThroughRegistry(t *testing.T) {
	p := newPort(t)
	set, _ := p.AcquireSet(0, 1, 2)
	p.TakeOver(1)
	if set.Valid() {
		t.Fatal("set survived takeover of a member pin")
	}
	// Every member returns to "no owner", not just the taken pin.
	for _, id := range []hal.PinID{0, 1, 2} {
		if p.Held(id) {
			t.Fatalf("pin %d still owned after set invalidation", id)
		}
	}
}
