package rcc

import (
	"periph.io/x/conn/v3/physic"

	"nucleo-go/errcode"
	"nucleo-go/hal/power"
	"nucleo-go/x/mathx"
)

// MSIRange is the multi-speed oscillator frequency step (ICSCR.MSIRANGE).
type MSIRange uint8

const (
	MSI65k  MSIRange = iota // 65.536 kHz
	MSI131k                 // 131.072 kHz
	MSI262k                 // 262.144 kHz
	MSI524k                 // 524.288 kHz
	MSI1M                   // 1.048 MHz
	MSI2M                   // 2.097 MHz, reset value
	MSI4M                   // 4.194 MHz
)

var msiHz = [...]uint32{65_536, 131_072, 262_144, 524_288, 1_048_000, 2_097_000, 4_194_000}

// Hz returns the nominal frequency, or 0 for an invalid range.
func (m MSIRange) Hz() uint32 {
	if int(m) >= len(msiHz) {
		return 0
	}
	return msiHz[m]
}

// HSI16Hz is the internal high-speed oscillator frequency.
const HSI16Hz = 16_000_000

// SysClkSource selects the system clock (CFGR.SW encoding).
type SysClkSource uint8

const (
	SysClkMSI   SysClkSource = 0
	SysClkHSI16 SysClkSource = 1
)

func (s SysClkSource) String() string {
	switch s {
	case SysClkMSI:
		return "msi"
	case SysClkHSI16:
		return "hsi16"
	}
	return "unsupported"
}

// PeriphClock is a peripheral kernel clock selection (CCIPR encoding).
type PeriphClock uint8

const (
	ClockAPB    PeriphClock = 0
	ClockSysClk PeriphClock = 1
	ClockHSI16  PeriphClock = 2
	ClockLSE    PeriphClock = 3 // USART only; the board has no LSE crystal fitted
)

type MSIConfig struct {
	Enable bool
	Range  MSIRange
}

type HSI16Config struct {
	Enable bool
}

// Config is the clock tree to apply at Freeze. Frequencies are in Hz.
type Config struct {
	MSI    MSIConfig
	HSI16  HSI16Config
	SysClk SysClkSource
	HCLK   uint32
	PCLK1  uint32
	PCLK2  uint32
}

// ResetConfig describes the tree as it comes out of reset: MSI at 2.097 MHz
// feeding every bus undivided.
func ResetConfig() Config {
	return Config{
		MSI:    MSIConfig{Enable: true, Range: MSI2M},
		SysClk: SysClkMSI,
		HCLK:   2_097_000,
		PCLK1:  2_097_000,
		PCLK2:  2_097_000,
	}
}

// SysClkHz is the frequency the selected source will run at.
func (c Config) SysClkHz() uint32 {
	switch c.SysClk {
	case SysClkMSI:
		return c.MSI.Range.Hz()
	case SysClkHSI16:
		return HSI16Hz
	}
	return 0
}

// ahbEnc returns the HPRE encoding of an AHB division ratio: powers of two
// from 1 to 512, except 32.
func ahbEnc(div uint32) (uint32, bool) {
	if !mathx.IsPow2(div) || div > 512 || div == 32 {
		return 0, false
	}
	switch n := uint32(mathx.Log2(div)); {
	case n == 0:
		return 0, true
	case n <= 4:
		return 7 + n, true
	default:
		return 6 + n, true
	}
}

// ahbDiv is the inverse of ahbEnc. Encodings 0xxx do not divide.
func ahbDiv(enc uint32) uint32 {
	switch {
	case enc < 8:
		return 1
	case enc < 12:
		return 1 << (enc - 7)
	}
	return 1 << (enc - 6)
}

// apbEnc returns the PPREx encoding of an APB division ratio (1 to 16).
func apbEnc(div uint32) (uint32, bool) {
	if !mathx.IsPow2(div) || div > 16 {
		return 0, false
	}
	if div == 1 {
		return 0, true
	}
	return 3 + uint32(mathx.Log2(div)), true
}

func prescaler(enc func(uint32) (uint32, bool), in, out uint32, what string) (uint32, error) {
	if out == 0 || in%out != 0 {
		return 0, errcode.New(errcode.NoDivider, "rcc.config", what)
	}
	e, ok := enc(in / out)
	if !ok {
		return 0, errcode.New(errcode.NoDivider, "rcc.config", what)
	}
	return e, nil
}

// dividers resolves the HPRE, PPRE1 and PPRE2 encodings for c.
func (c Config) dividers() (hpre, ppre1, ppre2 uint32, err error) {
	sys := c.SysClkHz()
	if hpre, err = prescaler(ahbEnc, sys, c.HCLK, "hclk"); err != nil {
		return
	}
	if ppre1, err = prescaler(apbEnc, c.HCLK, c.PCLK1, "pclk1"); err != nil {
		return
	}
	ppre2, err = prescaler(apbEnc, c.HCLK, c.PCLK2, "pclk2")
	return
}

// Validate checks the configuration can be applied at core range r.
func (c Config) Validate(r power.VCoreRange) error {
	switch c.SysClk {
	case SysClkMSI:
		if !c.MSI.Enable || c.MSI.Range.Hz() == 0 {
			return errcode.New(errcode.InvalidParams, "rcc.config", "msi not enabled")
		}
	case SysClkHSI16:
		if !c.HSI16.Enable {
			return errcode.New(errcode.InvalidParams, "rcc.config", "hsi16 not enabled")
		}
	default:
		return errcode.New(errcode.Unsupported, "rcc.config", c.SysClk.String())
	}
	if c.MSI.Enable && c.MSI.Range.Hz() == 0 {
		return errcode.New(errcode.InvalidParams, "rcc.config", "msi range")
	}
	if _, _, _, err := c.dividers(); err != nil {
		return err
	}
	if c.SysClkHz() > r.MaxHz() {
		return errcode.New(errcode.FrequencyTooHigh, "rcc.config", r.String())
	}
	return nil
}

// Clocks is the frozen clock tree. It is only produced by Freeze.
type Clocks struct {
	Source     SysClkSource
	SysClk     uint32
	HCLK       uint32
	PCLK1      uint32
	PCLK2      uint32
	MSI        uint32 // 0 when off
	HSI16      bool
	WaitStates uint8
	Range      power.VCoreRange
}

func hz(v uint32) physic.Frequency { return physic.Frequency(v) * physic.Hertz }

func (c Clocks) SysClkFreq() physic.Frequency { return hz(c.SysClk) }
func (c Clocks) HCLKFreq() physic.Frequency   { return hz(c.HCLK) }
func (c Clocks) PCLK1Freq() physic.Frequency  { return hz(c.PCLK1) }
func (c Clocks) PCLK2Freq() physic.Frequency  { return hz(c.PCLK2) }

// KernelHz returns the frequency a peripheral sees for src, with apb the
// bus it sits on (1 or 2). A source that is not running is an error.
func (c Clocks) KernelHz(src PeriphClock, apb uint8) (uint32, error) {
	switch src {
	case ClockAPB:
		if apb == 2 {
			return c.PCLK2, nil
		}
		return c.PCLK1, nil
	case ClockSysClk:
		return c.SysClk, nil
	case ClockHSI16:
		if !c.HSI16 {
			return 0, errcode.New(errcode.ClockNotReady, "rcc.kernel_clock", "hsi16 off")
		}
		return HSI16Hz, nil
	}
	return 0, errcode.New(errcode.Unsupported, "rcc.kernel_clock", "lse")
}
