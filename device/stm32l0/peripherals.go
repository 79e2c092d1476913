package stm32l0

import (
	"sync/atomic"

	"nucleo-go/errcode"
	"nucleo-go/reg"
)

// Periph is a claimable register block. Claim hands out the block exactly
// once; a second claim is a programming error and panics.
type Periph struct {
	name    string
	blk     reg.Block
	claimed atomic.Bool
}

func (p *Periph) Name() string { return p.name }

// Claimed reports whether the block has an owner.
func (p *Periph) Claimed() bool { return p.claimed.Load() }

// Claim transfers ownership of the block to the caller.
func (p *Periph) Claim(op string) reg.Block {
	if p == nil {
		errcode.Fatal(errcode.InvalidParams, op, "nil peripheral")
	}
	if !p.claimed.CompareAndSwap(false, true) {
		errcode.Fatal(errcode.BusInUse, op, p.name)
	}
	return p.blk
}

// Unclaim returns the block to the ledger. Only its owner may call it, when
// it is done with the block.
func (p *Periph) Unclaim() { p.claimed.Store(false) }

// Typed blocks, so constructors only accept the peripheral they drive.
type (
	PWR   struct{ Periph }
	FLASH struct{ Periph }
	RCC   struct{ Periph }
	USART struct{ Periph }
	I2C   struct{ Periph }
	SYST  struct{ Periph }

	GPIO struct {
		Periph
		Port uint8 // 0 = A, 1 = B, 2 = C
	}
)

// Peripherals is the full set of blocks this module drives.
type Peripherals struct {
	PWR    *PWR
	FLASH  *FLASH
	RCC    *RCC
	GPIOA  *GPIO
	GPIOB  *GPIO
	GPIOC  *GPIO
	USART2 *USART
	I2C1   *I2C
	SYST   *SYST
}

func (p *Periph) init(name string, base uint32, io reg.IO) {
	p.name = name
	p.blk = reg.Block{Base: base, IO: io}
}

// New builds an independent peripheral set over io. On the target use Take;
// New exists for host emulation where each test owns its register file.
func New(io reg.IO) *Peripherals {
	p := &Peripherals{
		PWR:    new(PWR),
		FLASH:  new(FLASH),
		RCC:    new(RCC),
		GPIOA:  &GPIO{Port: 0},
		GPIOB:  &GPIO{Port: 1},
		GPIOC:  &GPIO{Port: 2},
		USART2: new(USART),
		I2C1:   new(I2C),
		SYST:   new(SYST),
	}
	p.PWR.init("PWR", PWRBase, io)
	p.FLASH.init("FLASH", FLASHBase, io)
	p.RCC.init("RCC", RCCBase, io)
	p.GPIOA.init("GPIOA", GPIOABase, io)
	p.GPIOB.init("GPIOB", GPIOBBase, io)
	p.GPIOC.init("GPIOC", GPIOCBase, io)
	p.USART2.init("USART2", USART2Base, io)
	p.I2C1.init("I2C1", I2C1Base, io)
	p.SYST.init("SYST", SysTickBase, io)
	return p
}

var taken atomic.Bool

// Take returns the process-wide peripheral set. It succeeds once; later
// calls return nil, false.
func Take(io reg.IO) (*Peripherals, bool) {
	if !taken.CompareAndSwap(false, true) {
		return nil, false
	}
	return New(io), true
}
