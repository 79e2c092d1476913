// Package flash drives the flash interface's access-control register: the
// wait states the core needs to fetch instructions at a given HCLK.
package flash

import (
	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/hal/power"
	"nucleo-go/reg"
)

// MaxWaitStates is the largest LATENCY setting on the L0.
const MaxWaitStates = 1

// zeroWSMax is the highest HCLK that runs without a wait state, per range.
func zeroWSMax(r power.VCoreRange) uint32 {
	switch r {
	case power.Range1:
		return 16_000_000
	case power.Range2:
		return 8_000_000
	case power.Range3:
		return 4_200_000
	}
	return 0
}

// RequiredWaitStates returns the minimum wait states for hclk at range r.
// Frequencies above the range limit are an error.
func RequiredWaitStates(r power.VCoreRange, hclk uint32) (uint8, error) {
	limit := r.MaxHz()
	if limit == 0 {
		return 0, errcode.New(errcode.InvalidParams, "flash.wait_states", r.String())
	}
	if hclk > limit {
		return 0, errcode.New(errcode.FrequencyTooHigh, "flash.wait_states", r.String())
	}
	if hclk <= zeroWSMax(r) {
		return 0, nil
	}
	return 1, nil
}

// Flash is the constrained flash controller.
type Flash struct {
	blk reg.Block
}

// Constrain claims the FLASH block. It writes nothing.
func Constrain(f *stm32l0.FLASH) *Flash {
	return &Flash{blk: f.Claim("flash.constrain")}
}

// Latency reads the current wait-state count.
func (f *Flash) Latency() uint8 {
	if f.blk.HasBits(stm32l0.FLASH_ACR, stm32l0.FLASH_ACR_LATENCY) {
		return 1
	}
	return 0
}

// SetLatency writes LATENCY and reads it back, as the reference manual
// requires before the new clock is used.
func (f *Flash) SetLatency(ws uint8) error {
	if ws > MaxWaitStates {
		return errcode.New(errcode.InvalidParams, "flash.set_latency", "")
	}
	if ws == 1 {
		f.blk.SetBits(stm32l0.FLASH_ACR, stm32l0.FLASH_ACR_LATENCY)
	} else {
		f.blk.ClearBits(stm32l0.FLASH_ACR, stm32l0.FLASH_ACR_LATENCY)
	}
	if f.Latency() != ws {
		return errcode.New(errcode.Timeout, "flash.set_latency", "readback")
	}
	return nil
}

// EnablePrefetch turns on the prefetch buffer. Only useful with one wait state.
func (f *Flash) EnablePrefetch() {
	f.blk.SetBits(stm32l0.FLASH_ACR, stm32l0.FLASH_ACR_PRFTEN)
}
