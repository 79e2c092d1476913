package reg

import (
	"errors"
	"testing"

	"nucleo-go/errcode"
)

func TestBlockBitHelpers(t *testing.T) {
	s := NewSim()
	b := Block{Base: 0x4000_0000, IO: s}

	b.Set(0x04, 0xF0)
	b.SetBits(0x04, 0x01)
	b.ClearBits(0x04, 0x10)
	if got := b.Get(0x04); got != 0xE1 {
		t.Fatalf("got %#x", got)
	}
	if !b.HasBits(0x04, 0x81) || b.HasBits(0x04, 0x11) {
		t.Fatal("HasBits incorrect")
	}
	b.ReplaceBits(0x04, 0x5, 0x7, 8)
	if got := b.Field(0x04, 0x7, 8); got != 0x5 {
		t.Fatalf("field got %#x", got)
	}
	if got := b.Get(0x04); got != 0x5E1 {
		t.Fatalf("ReplaceBits clobbered other bits: %#x", got)
	}
	if n := len(s.WritesTo(0x4000_0004)); n != 4 {
		t.Fatalf("expected 4 traced stores, got %d", n)
	}
}

func TestSimHooksAndTrace(t *testing.T) {
	s := NewSim()
	// write-1-to-clear status register
	s.Preset(0x10, 0xFF)
	s.OnStore(0x10, func(m Mem, old, v uint32) uint32 { return old &^ v })
	s.OnLoad(0x20, func(m Mem, v uint32) uint32 { return m.Peek(0x10) | 0x100 })

	s.Store(0x10, 0x0F)
	if got := s.Load(0x10); got != 0xF0 {
		t.Fatalf("w1c got %#x", got)
	}
	if got := s.Load(0x20); got != 0x1F0 {
		t.Fatalf("load hook got %#x", got)
	}
	tr := s.Trace()
	if len(tr) != 1 || tr[0].Old != 0xFF || tr[0].Val != 0x0F || tr[0].Seq != 1 {
		t.Fatalf("trace %+v", tr)
	}
	if s.Changed(0x10) != 0xF0 {
		t.Fatalf("changed %#x", s.Changed(0x10))
	}
	s.ClearTrace()
	if len(s.Trace()) != 0 || len(s.Touched()) != 0 {
		t.Fatal("trace not cleared")
	}
}

func TestWaitTimesOut(t *testing.T) {
	s := NewSim()
	b := Block{Base: 0, IO: s}
	if err := b.Wait(0, 1, 1, 10); !errors.Is(err, errcode.Timeout) {
		t.Fatalf("want timeout, got %v", err)
	}
	s.Preset(0, 1)
	if err := b.Wait(0, 1, 1, 10); err != nil {
		t.Fatalf("unexpected %v", err)
	}
}
