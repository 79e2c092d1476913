// Package i2c binds I2C1 to a pair of alternate-function pins and runs
// polled master transfers on it.
//
// The timing register is taken as given. Computing TIMINGR from a bus speed
// depends on rise and fall times of the board's wiring; callers pass the
// value ST's timing tool produced, or ask ReferenceTiming for one of the
// reference-manual examples.
package i2c

import (
	pi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"

	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/hal/gpio"
	"nucleo-go/hal/rcc"
	"nucleo-go/reg"
	"nucleo-go/x/conv"
)

type route struct {
	id gpio.ID
	af uint8
}

var (
	i2c1SCL = []route{
		{gpio.ID{Port: gpio.PortA, N: 9}, 1},
		{gpio.ID{Port: gpio.PortB, N: 6}, 1},
		{gpio.ID{Port: gpio.PortB, N: 8}, 4},
	}
	i2c1SDA = []route{
		{gpio.ID{Port: gpio.PortA, N: 10}, 1},
		{gpio.ID{Port: gpio.PortB, N: 7}, 1},
		{gpio.ID{Port: gpio.PortB, N: 9}, 4},
	}
)

func routed(table []route, id gpio.ID, af uint8) bool {
	for _, r := range table {
		if r.id == id && r.af == af {
			return true
		}
	}
	return false
}

// Compile-time checks.
var (
	_ drivers.I2C = (*Bus[gpio.AF1, gpio.AF1])(nil)
	_ pi2c.Bus    = (*Bus[gpio.AF1, gpio.AF1])(nil)
)

// MaxTransfer is the longest read or write one Tx can carry (CR2.NBYTES).
const MaxTransfer = 255

// Bus is a bound I2C controller.
type Bus[SCL, SDA gpio.AltFunction] struct {
	per    *stm32l0.I2C
	blk    reg.Block
	scl    gpio.AltFuncPin[SCL]
	sda    gpio.AltFuncPin[SDA]
	fck    uint32
	timing uint32
}

// I2C1 binds I2C1 to scl and sda with the kernel clock src and writes
// timing to TIMINGR unchanged. Pins that cannot carry the signals panic with
// errcode.WrongPin; clock problems are returned and leave the block
// unclaimed.
func I2C1[SCL, SDA gpio.AltFunction](p *stm32l0.I2C, scl gpio.AltFuncPin[SCL], sda gpio.AltFuncPin[SDA], src rcc.PeriphClock, timing uint32, clocks rcc.Clocks, r *rcc.RCC) (*Bus[SCL, SDA], error) {
	const op = "i2c.i2c1"
	scl.Live(op)
	sda.Live(op)
	if !routed(i2c1SCL, scl.ID(), scl.AF()) {
		errcode.Fatal(errcode.WrongPin, op, "scl "+scl.ID().String())
	}
	if !routed(i2c1SDA, sda.ID(), sda.AF()) {
		errcode.Fatal(errcode.WrongPin, op, "sda "+sda.ID().String())
	}
	if src > rcc.ClockHSI16 {
		return nil, errcode.New(errcode.Unsupported, op, "clock source")
	}
	fck, err := clocks.KernelHz(src, 1)
	if err != nil {
		return nil, err
	}

	blk := p.Claim(op)
	r.APB1.EnableI2C1()
	r.CCIPR.SetI2C1(src)
	b := &Bus[SCL, SDA]{per: p, blk: blk, scl: scl, sda: sda, fck: fck}
	b.setTiming(timing)

	println("[i2c] i2c1 on", scl.ID().String(), sda.ID().String(), "kernel", fck)
	return b, nil
}

// TIMINGR is only writable with the peripheral disabled.
func (b *Bus[SCL, SDA]) setTiming(v uint32) {
	b.blk.ClearBits(stm32l0.I2C_CR1, stm32l0.I2C_CR1_PE)
	b.blk.Set(stm32l0.I2C_TIMINGR, v)
	b.blk.SetBits(stm32l0.I2C_CR1, stm32l0.I2C_CR1_PE)
	b.timing = v
}

func (b *Bus[SCL, SDA]) String() string { return "I2C1" }

// Timing returns the TIMINGR value in use.
func (b *Bus[SCL, SDA]) Timing() uint32 { return b.timing }

// SetSpeed switches to the reference timing for f. Kernel clocks other than
// 16 MHz and non-standard speeds are unsupported.
func (b *Bus[SCL, SDA]) SetSpeed(f physic.Frequency) error {
	t, err := ReferenceTiming(b.fck, f)
	if err != nil {
		return err
	}
	b.setTiming(t.Encode())
	return nil
}

func (b *Bus[SCL, SDA]) start(addr uint16, n int, read, autoend bool) {
	cr2 := uint32(addr&0x7F)<<1 | uint32(n)<<stm32l0.I2C_CR2_NBYTES_Pos | stm32l0.I2C_CR2_START
	if read {
		cr2 |= stm32l0.I2C_CR2_RD_WRN
	}
	if autoend {
		cr2 |= stm32l0.I2C_CR2_AUTOEND
	}
	b.blk.Set(stm32l0.I2C_CR2, cr2)
}

// await polls ISR for flag. A NACK ends the transfer: the controller sends
// STOP by itself, and both flags are cleared before returning.
func (b *Bus[SCL, SDA]) await(flag uint32, addr uint16) error {
	const op = "i2c.tx"
	for i := 0; i < reg.DefaultSpins; i++ {
		isr := b.blk.Get(stm32l0.I2C_ISR)
		if isr&stm32l0.I2C_ISR_NACKF != 0 {
			_ = b.blk.Wait(stm32l0.I2C_ISR, stm32l0.I2C_ISR_STOPF, stm32l0.I2C_ISR_STOPF, 0)
			b.blk.Set(stm32l0.I2C_ICR, stm32l0.I2C_ICR_NACKCF|stm32l0.I2C_ICR_STOPCF)
			return errcode.New(errcode.NACK, op, addrString(addr))
		}
		if isr&flag != 0 {
			return nil
		}
	}
	b.blk.SetBits(stm32l0.I2C_CR2, stm32l0.I2C_CR2_STOP)
	return errcode.New(errcode.Timeout, op, addrString(addr))
}

// Tx writes w to the 7-bit address addr and then reads len(r) bytes,
// with a repeated start between the two. Either may be empty; both empty
// probes the address.
func (b *Bus[SCL, SDA]) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F || len(w) > MaxTransfer || len(r) > MaxTransfer {
		return errcode.New(errcode.InvalidParams, "i2c.tx", addrString(addr))
	}
	if len(w) > 0 || len(r) == 0 {
		last := len(r) == 0
		b.start(addr, len(w), false, last)
		for _, c := range w {
			if err := b.await(stm32l0.I2C_ISR_TXIS, addr); err != nil {
				return err
			}
			b.blk.Set(stm32l0.I2C_TXDR, uint32(c))
		}
		if last {
			return b.stop(addr)
		}
		if err := b.await(stm32l0.I2C_ISR_TC, addr); err != nil {
			return err
		}
	}
	b.start(addr, len(r), true, true)
	for i := range r {
		if err := b.await(stm32l0.I2C_ISR_RXNE, addr); err != nil {
			return err
		}
		r[i] = byte(b.blk.Get(stm32l0.I2C_RXDR))
	}
	return b.stop(addr)
}

func (b *Bus[SCL, SDA]) stop(addr uint16) error {
	if err := b.await(stm32l0.I2C_ISR_STOPF, addr); err != nil {
		return err
	}
	b.blk.Set(stm32l0.I2C_ICR, stm32l0.I2C_ICR_STOPCF)
	return nil
}

// Release disables the controller, returns the block to the ledger and
// hands back the pins.
func (b *Bus[SCL, SDA]) Release() (gpio.AltFuncPin[SCL], gpio.AltFuncPin[SDA]) {
	b.blk.ClearBits(stm32l0.I2C_CR1, stm32l0.I2C_CR1_PE)
	b.per.Unclaim()
	scl, sda := b.scl, b.sda
	*b = Bus[SCL, SDA]{}
	return scl, sda
}

// addrString formats a for errors. Three digits keep rejected 10-bit
// addresses intact.
func addrString(a uint16) string {
	digits := 2
	if a > 0xFF {
		digits = 3
	}
	return string(conv.AppendHex([]byte("addr 0x"), uint32(a), digits))
}
