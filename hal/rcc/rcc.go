// Package rcc drives the reset and clock controller: oscillators, the
// system clock switch, bus prescalers and the peripheral clock gates.
//
// The controller is configured in two phases. Config is assembled field by
// field while nothing is written; Freeze then commits it to hardware in the
// one order that is safe for the flash interface and returns the Clocks the
// rest of the program uses.
package rcc

import (
	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/hal/power"
	"nucleo-go/reg"
)

// RCC is the constrained clock controller.
type RCC struct {
	blk reg.Block

	IOP   *IOP
	APB1  *APB1
	CCIPR *CCIPR

	cfg    Config
	clocks Clocks
	frozen bool
}

// Constrain claims the RCC block. The pending configuration starts as the
// reset state so Freeze with no changes is a no-op on the clock tree.
func Constrain(r *stm32l0.RCC) *RCC {
	blk := r.Claim("rcc.constrain")
	return &RCC{
		blk:   blk,
		IOP:   &IOP{blk: blk},
		APB1:  &APB1{blk: blk},
		CCIPR: &CCIPR{blk: blk},
		cfg:   ResetConfig(),
	}
}

// Config returns the pending configuration for editing. After Freeze it
// returns nil, false.
func (r *RCC) Config() (*Config, bool) {
	if r.frozen {
		return nil, false
	}
	return &r.cfg, true
}

// Clocks returns the frozen clock context. Before Freeze it returns
// the zero value, false.
func (r *RCC) Clocks() (Clocks, bool) {
	return r.clocks, r.frozen
}

// MustClocks is Clocks for callers that cannot run before Freeze.
func (r *RCC) MustClocks(op string) Clocks {
	if !r.frozen {
		errcode.Fatal(errcode.ClockNotFrozen, op, "")
	}
	return r.clocks
}

// PowerGate adapts the controller to power.ClockGate.
func (r *RCC) PowerGate() power.ClockGate { return pwrGate{r.blk} }

type pwrGate struct{ blk reg.Block }

func (g pwrGate) EnablePWR() { g.blk.SetBits(stm32l0.RCC_APB1ENR, stm32l0.RCC_APB1ENR_PWREN) }
func (g pwrGate) EnableRTC() { g.blk.SetBits(stm32l0.RCC_CSR, stm32l0.RCC_CSR_RTCEN) }

// IOP gates the GPIO port clocks.
type IOP struct{ blk reg.Block }

// Enable turns on the clock of GPIO port (0 = A).
func (i *IOP) Enable(port uint8) {
	i.blk.SetBits(stm32l0.RCC_IOPENR, 1<<port)
}

func (i *IOP) Enabled(port uint8) bool {
	return i.blk.HasBits(stm32l0.RCC_IOPENR, 1<<port)
}

// APB1 gates the APB1 peripheral clocks.
type APB1 struct{ blk reg.Block }

func (a *APB1) EnableUSART2() { a.blk.SetBits(stm32l0.RCC_APB1ENR, stm32l0.RCC_APB1ENR_USART2EN) }
func (a *APB1) EnableI2C1()   { a.blk.SetBits(stm32l0.RCC_APB1ENR, stm32l0.RCC_APB1ENR_I2C1EN) }

// CCIPR selects peripheral kernel clocks.
type CCIPR struct{ blk reg.Block }

func (c *CCIPR) SetUSART2(src PeriphClock) {
	c.blk.ReplaceBits(stm32l0.RCC_CCIPR, uint32(src), stm32l0.RCC_CCIPR_USART2SEL_Msk, stm32l0.RCC_CCIPR_USART2SEL_Pos)
}

func (c *CCIPR) SetI2C1(src PeriphClock) {
	c.blk.ReplaceBits(stm32l0.RCC_CCIPR, uint32(src), stm32l0.RCC_CCIPR_I2C1SEL_Msk, stm32l0.RCC_CCIPR_I2C1SEL_Pos)
}
