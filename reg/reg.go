// Package reg is the register-block capability layer. Every controller and
// peripheral driver in this module touches hardware only through a Block,
// which pairs a base address with an IO backend: MMIO on the target, an
// in-memory register file on the host.
package reg

import "nucleo-go/errcode"

// IO is the raw 32-bit register access backend.
type IO interface {
	Load(addr uint32) uint32
	Store(addr, v uint32)
}

// Block is one peripheral's register window.
type Block struct {
	Base uint32
	IO   IO
}

func (b Block) Get(off uint32) uint32    { return b.IO.Load(b.Base + off) }
func (b Block) Set(off uint32, v uint32) { b.IO.Store(b.Base+off, v) }

func (b Block) SetBits(off, mask uint32) {
	b.Set(off, b.Get(off)|mask)
}

func (b Block) ClearBits(off, mask uint32) {
	b.Set(off, b.Get(off)&^mask)
}

// HasBits reports whether every bit in mask is set.
func (b Block) HasBits(off, mask uint32) bool {
	return b.Get(off)&mask == mask
}

// ReplaceBits writes value into the field (mask << pos), leaving other bits.
func (b Block) ReplaceBits(off, value, mask uint32, pos uint8) {
	b.Set(off, b.Get(off)&^(mask<<pos)|(value&mask)<<pos)
}

// Field reads the field (mask << pos).
func (b Block) Field(off, mask uint32, pos uint8) uint32 {
	return (b.Get(off) >> pos) & mask
}

// DefaultSpins bounds ready-flag polling. At 2 MHz this is a few tens of ms.
const DefaultSpins = 0x5000

// Wait polls until (reg & mask) == want, for at most spins reads.
func (b Block) Wait(off, mask, want uint32, spins int) error {
	if spins <= 0 {
		spins = DefaultSpins
	}
	for i := 0; i < spins; i++ {
		if b.Get(off)&mask == want {
			return nil
		}
	}
	return errcode.Timeout
}
