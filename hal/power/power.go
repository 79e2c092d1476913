// Package power drives the PWR controller: core voltage scaling and the
// RTC/backup domain gate.
package power

import (
	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/reg"
)

// VDD is the external supply class. The Nucleo runs at 3.3 V.
type VDD uint8

const (
	VddHigh VDD = iota // 1.71 V to 3.6 V
	VddLow             // 1.65 V to 3.6 V, no range 1
)

// VCoreRange is the core regulator operating point (VOS encoding).
type VCoreRange uint8

const (
	Range1 VCoreRange = 1 // 1.8 V, up to 32 MHz
	Range2 VCoreRange = 2 // 1.5 V, up to 16 MHz
	Range3 VCoreRange = 3 // 1.2 V, up to 4.2 MHz
)

// MaxHz is the highest HCLK the range supports.
func (r VCoreRange) MaxHz() uint32 {
	switch r {
	case Range1:
		return 32_000_000
	case Range2:
		return 16_000_000
	case Range3:
		return 4_200_000
	}
	return 0
}

func (r VCoreRange) String() string {
	switch r {
	case Range1:
		return "range1"
	case Range2:
		return "range2"
	case Range3:
		return "range3"
	}
	return "invalid"
}

// ClockGate enables the PWR interface clock. rcc.APB1 implements it.
type ClockGate interface {
	EnablePWR()
	EnableRTC()
}

// Power is the constrained PWR controller.
type Power struct {
	blk   reg.Block
	gate  ClockGate
	vdd   VDD
	vcore VCoreRange
	rtc   bool
}

// Constrain claims the PWR block and enables its interface clock. The
// controller starts in its reset state: range 2, RTC domain write-protected.
func Constrain(p *stm32l0.PWR, gate ClockGate) *Power {
	blk := p.Claim("power.constrain")
	gate.EnablePWR()
	return &Power{blk: blk, gate: gate, vdd: VddHigh, vcore: Range2}
}

func (p *Power) VDD() VDD               { return p.vdd }
func (p *Power) VCore() VCoreRange      { return p.vcore }
func (p *Power) RTCDomainEnabled() bool { return p.rtc }

// SetVDD records the supply class the board is powered from. Range 1 is
// refused on VddLow. It writes nothing.
func (p *Power) SetVDD(v VDD) error {
	if v > VddLow {
		return errcode.New(errcode.InvalidParams, "power.vdd", "")
	}
	p.vdd = v
	return nil
}

// IntoVCoreRange selects the core voltage range and waits for the regulator
// to settle. It must run before the clock tree is raised above the current
// range's limit.
func (p *Power) IntoVCoreRange(r VCoreRange) error {
	if r.MaxHz() == 0 {
		return errcode.New(errcode.InvalidParams, "power.vcore", r.String())
	}
	if r == Range1 && p.vdd == VddLow {
		return errcode.New(errcode.Unsupported, "power.vcore", "range1 needs VddHigh")
	}
	// VOS may only be written while VOSF is clear.
	if err := p.blk.Wait(stm32l0.PWR_CSR, stm32l0.PWR_CSR_VOSF, 0, 0); err != nil {
		return &errcode.E{C: errcode.Timeout, Op: "power.vcore", Msg: "vosf", Err: err}
	}
	p.blk.ReplaceBits(stm32l0.PWR_CR, uint32(r), stm32l0.PWR_CR_VOS_Msk, stm32l0.PWR_CR_VOS_Pos)
	if err := p.blk.Wait(stm32l0.PWR_CSR, stm32l0.PWR_CSR_VOSF, 0, 0); err != nil {
		return &errcode.E{C: errcode.Timeout, Op: "power.vcore", Msg: "vosf", Err: err}
	}
	p.vcore = r
	return nil
}

// EnableRTCDomain lifts backup-domain write protection and enables the RTC
// clock.
func (p *Power) EnableRTCDomain() {
	if p.rtc {
		return
	}
	p.blk.SetBits(stm32l0.PWR_CR, stm32l0.PWR_CR_DBP)
	p.gate.EnableRTC()
	p.rtc = true
}
