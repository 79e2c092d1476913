// Package systick programs the Cortex-M SysTick timer as a periodic tick.
package systick

import (
	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/reg"
)

// ClockSource selects the counter clock (CSR.CLKSOURCE).
type ClockSource uint8

const (
	External ClockSource = iota // HCLK/8
	Core                        // HCLK
)

// MaxReload is the largest reload value the 24-bit counter takes.
const MaxReload = stm32l0.SYST_RVR_Max

// Timer is a running SysTick.
type Timer struct {
	per    *stm32l0.SYST
	blk    reg.Block
	src    ClockSource
	reload uint32
}

// Start claims SysTick and runs it with the exception enabled. The counter
// wraps every reload+1 clocks. A reload outside 1..MaxReload panics.
func Start(s *stm32l0.SYST, src ClockSource, reload uint32) *Timer {
	const op = "systick.start"
	if reload == 0 || reload > MaxReload {
		errcode.Fatal(errcode.InvalidParams, op, "reload")
	}
	blk := s.Claim(op)
	blk.Set(stm32l0.SYST_CSR, 0)
	blk.Set(stm32l0.SYST_RVR, reload)
	blk.Set(stm32l0.SYST_CVR, 0)
	csr := uint32(stm32l0.SYST_CSR_ENABLE | stm32l0.SYST_CSR_TICKINT)
	if src == Core {
		csr |= stm32l0.SYST_CSR_CLKSOURCE
	}
	blk.Set(stm32l0.SYST_CSR, csr)
	return &Timer{per: s, blk: blk, src: src, reload: reload}
}

// Reload returns the programmed RVR value.
func (t *Timer) Reload() uint32 { return t.reload }

func (t *Timer) Source() ClockSource { return t.src }

// Stop disables the counter and its exception and returns the block.
func (t *Timer) Stop() {
	t.blk.Set(stm32l0.SYST_CSR, 0)
	t.per.Unclaim()
}
