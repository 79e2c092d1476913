package rcc

import (
	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/hal/flash"
	"nucleo-go/hal/power"
	"nucleo-go/x/mathx"
)

// Freeze applies the pending configuration and returns the resulting clock
// tree. The order is fixed:
//
//  1. oscillators on, wait for ready
//  2. flash latency raised for the worst case of the transition
//  3. MSI range, then SW, wait for SWS
//  4. AHB/APB prescalers
//  5. flash latency lowered to the final requirement, unused oscillators off
//
// The core range in pw must already be selected. Freeze can run once.
func (r *RCC) Freeze(fl *flash.Flash, pw *power.Power) (Clocks, error) {
	const op = "rcc.freeze"
	if r.frozen {
		return Clocks{}, errcode.New(errcode.ClockFrozen, op, "")
	}
	c := r.cfg
	vr := pw.VCore()
	if err := c.Validate(vr); err != nil {
		return Clocks{}, err
	}
	hpre, ppre1, ppre2, _ := c.dividers()
	sys := c.SysClkHz()

	ws, err := flash.RequiredWaitStates(vr, c.HCLK)
	if err != nil {
		return Clocks{}, err
	}

	b := r.blk

	// 1. Oscillators.
	if c.MSI.Enable {
		b.SetBits(stm32l0.RCC_CR, stm32l0.RCC_CR_MSION)
		if err := b.Wait(stm32l0.RCC_CR, stm32l0.RCC_CR_MSIRDY, stm32l0.RCC_CR_MSIRDY, 0); err != nil {
			return Clocks{}, &errcode.E{C: errcode.ClockNotReady, Op: op, Msg: "msi", Err: err}
		}
	}
	if c.HSI16.Enable {
		b.SetBits(stm32l0.RCC_CR, stm32l0.RCC_CR_HSI16ON)
		if err := b.Wait(stm32l0.RCC_CR, stm32l0.RCC_CR_HSI16RDYF, stm32l0.RCC_CR_HSI16RDYF, 0); err != nil {
			return Clocks{}, &errcode.E{C: errcode.ClockNotReady, Op: op, Msg: "hsi16", Err: err}
		}
	}

	// 2. Wait states for the worst case. Between the switch and the prescaler
	// update HCLK is the new SYSCLK over the old AHB divider.
	cur := fl.Latency()
	oldDiv := ahbDiv(b.Field(stm32l0.RCC_CFGR, stm32l0.RCC_CFGR_HPRE_Msk, stm32l0.RCC_CFGR_HPRE_Pos))
	transient, terr := flash.RequiredWaitStates(vr, sys/oldDiv)
	if terr != nil {
		transient = flash.MaxWaitStates
	}
	if err := fl.SetLatency(mathx.Max(cur, mathx.Max(ws, transient))); err != nil {
		return Clocks{}, err
	}

	// 3. Source.
	if c.MSI.Enable {
		b.ReplaceBits(stm32l0.RCC_ICSCR, uint32(c.MSI.Range), stm32l0.RCC_ICSCR_MSIRANGE_Msk, stm32l0.RCC_ICSCR_MSIRANGE_Pos)
	}
	b.ReplaceBits(stm32l0.RCC_CFGR, uint32(c.SysClk), stm32l0.RCC_CFGR_SW_Msk, stm32l0.RCC_CFGR_SW_Pos)
	want := uint32(c.SysClk) << stm32l0.RCC_CFGR_SWS_Pos
	if err := b.Wait(stm32l0.RCC_CFGR, stm32l0.RCC_CFGR_SWS_Msk<<stm32l0.RCC_CFGR_SWS_Pos, want, 0); err != nil {
		return Clocks{}, &errcode.E{C: errcode.ClockNotReady, Op: op, Msg: "sws", Err: err}
	}

	// 4. Prescalers, one store.
	const preMask = stm32l0.RCC_CFGR_HPRE_Msk<<stm32l0.RCC_CFGR_HPRE_Pos |
		stm32l0.RCC_CFGR_PPRE1_Msk<<stm32l0.RCC_CFGR_PPRE1_Pos |
		stm32l0.RCC_CFGR_PPRE2_Msk<<stm32l0.RCC_CFGR_PPRE2_Pos
	cfgr := b.Get(stm32l0.RCC_CFGR) &^ preMask
	cfgr |= hpre<<stm32l0.RCC_CFGR_HPRE_Pos | ppre1<<stm32l0.RCC_CFGR_PPRE1_Pos | ppre2<<stm32l0.RCC_CFGR_PPRE2_Pos
	b.Set(stm32l0.RCC_CFGR, cfgr)

	// 5. Settle.
	if fl.Latency() > ws {
		if err := fl.SetLatency(ws); err != nil {
			return Clocks{}, err
		}
	}
	if !c.MSI.Enable {
		b.ClearBits(stm32l0.RCC_CR, stm32l0.RCC_CR_MSION)
	}
	if !c.HSI16.Enable {
		b.ClearBits(stm32l0.RCC_CR, stm32l0.RCC_CR_HSI16ON)
	}

	r.clocks = Clocks{
		Source:     c.SysClk,
		SysClk:     sys,
		HCLK:       c.HCLK,
		PCLK1:      c.PCLK1,
		PCLK2:      c.PCLK2,
		HSI16:      c.HSI16.Enable,
		WaitStates: ws,
		Range:      vr,
	}
	if c.MSI.Enable {
		r.clocks.MSI = c.MSI.Range.Hz()
	}
	r.frozen = true
	println("[rcc] frozen: src", c.SysClk.String(), "sysclk", sys, "hclk", c.HCLK, "ws", ws, vr.String())
	return r.clocks, nil
}
