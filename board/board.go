// Package board brings the STM32L031K6 Nucleo-32 out of reset and binds its
// on-board wiring: the connector pins, the user LED, the ST-LINK virtual COM
// port and the I2C pins on D5/D4.
package board

import (
	"nucleo-go/device/stm32l0"
	"nucleo-go/hal/flash"
	"nucleo-go/hal/gpio"
	"nucleo-go/hal/i2c"
	"nucleo-go/hal/power"
	"nucleo-go/hal/rcc"
	"nucleo-go/hal/systick"
	"nucleo-go/hal/usart"
)

// Board defaults.
const (
	ClockHz         = 2_097_000  // MSI range 5
	I2CTiming100kHz = 0x00303D5B // 100 kHz from HSI16
	VCPBaud         = 9600
	VCPClock        = rcc.ClockHSI16
	Supply          = power.VddHigh // 3.3 V from the ST-LINK regulator
)

// Board owns the constrained power, flash and clock controllers.
type Board struct {
	Power *power.Power
	Flash *flash.Flash
	RCC   *rcc.RCC

	vcpRX    gpio.AnalogPin // PA15, not on the connectors
	hasVCPRX bool
}

// DefaultClocks is the board clock tree: MSI at 2.097 MHz drives SYSCLK and
// every bus undivided, and HSI16 runs for the peripheral kernel clocks.
func DefaultClocks(c *rcc.Config) {
	c.MSI.Enable = true
	c.MSI.Range = rcc.MSI2M
	c.HSI16.Enable = true
	c.SysClk = rcc.SysClkMSI
	c.HCLK, c.PCLK1, c.PCLK2 = ClockHz, ClockHz, ClockHz
}

// Init claims PWR, FLASH and RCC from p, moves the core to vcore and
// freezes the default clock tree. Calling it twice on the same peripheral
// set panics.
func Init(p *stm32l0.Peripherals, vcore power.VCoreRange) (*Board, error) {
	return InitWith(p, vcore, DefaultClocks)
}

// InitWith is Init with a caller-supplied clock configuration. configure
// receives the reset configuration.
func InitWith(p *stm32l0.Peripherals, vcore power.VCoreRange, configure func(*rcc.Config)) (*Board, error) {
	r := rcc.Constrain(p.RCC)
	pw := power.Constrain(p.PWR, r.PowerGate())
	if err := pw.SetVDD(Supply); err != nil {
		return nil, err
	}
	if err := pw.IntoVCoreRange(vcore); err != nil {
		return nil, err
	}
	fl := flash.Constrain(p.FLASH)

	cfg, _ := r.Config()
	configure(cfg)
	c, err := r.Freeze(fl, pw)
	if err != nil {
		return nil, err
	}
	println("[board] up:", vcore.String(), "sysclk", c.SysClk)
	return &Board{Power: pw, Flash: fl, RCC: r}, nil
}

// Clocks returns the frozen clock tree.
func (b *Board) Clocks() rcc.Clocks { return b.RCC.MustClocks("board.clocks") }

// SysTickStart runs SysTick with its exception every ticks+1 counter clocks.
func (b *Board) SysTickStart(s *stm32l0.SYST, src systick.ClockSource, ticks uint32) *systick.Timer {
	return systick.Start(s, src, ticks)
}

// UserLED configures D13 (PB3), which drives LD3, as a push-pull output.
func (b *Board) UserLED(d13 gpio.Configurable) gpio.OutputPin {
	want(d13, gpio.PortB, 3, "board.user_led")
	return gpio.ToOutput(d13, gpio.PushPull, gpio.Floating)
}

// VCPSerial binds USART2 to the ST-LINK virtual COM port: TX on A7 (PA2),
// RX on PA15. Pins must have been called first, since that is where the
// board takes PA15.
func (b *Board) VCPSerial(u *stm32l0.USART, txA7 gpio.Configurable, baud uint32, src rcc.PeriphClock) (*usart.Serial[gpio.AF4, gpio.AF4], error) {
	const op = "board.vcp_serial"
	if !b.hasVCPRX {
		fatalPin(op, "PA15")
	}
	want(txA7, gpio.PortA, 2, op)
	cfg := usart.Config{Baud: baud, Clock: src}
	// Clock and baud are checked before the pins are consumed.
	if _, _, err := cfg.Check(b.Clocks()); err != nil {
		return nil, err
	}
	tx := gpio.IntoAltFunc[gpio.AF4](gpio.ToOutput(txA7, gpio.PushPull, gpio.Floating))
	tx.SetSpeed(gpio.SpeedVeryHigh)
	rx := gpio.IntoAltFunc[gpio.AF4](b.vcpRX.IntoOutput(gpio.PushPull, gpio.Floating))
	rx.SetSpeed(gpio.SpeedVeryHigh)
	b.hasVCPRX = false

	return usart.USART2(u, tx, rx, cfg, b.Clocks(), b.RCC)
}

// I2C1 binds I2C1 to D5 (PB6, SCL) and D4 (PB7, SDA) as open-drain outputs
// with pull-ups. timing is written to TIMINGR as given; I2CTiming100kHz
// suits an HSI16 kernel clock.
func (b *Board) I2C1(p *stm32l0.I2C, d5SCL, d4SDA gpio.Configurable, src rcc.PeriphClock, timing uint32) (*i2c.Bus[gpio.AF1, gpio.AF1], error) {
	const op = "board.i2c1"
	want(d5SCL, gpio.PortB, 6, op)
	want(d4SDA, gpio.PortB, 7, op)
	if _, err := b.Clocks().KernelHz(src, 1); err != nil {
		return nil, err
	}
	sda := gpio.IntoAltFunc[gpio.AF1](gpio.ToOutput(d4SDA, gpio.OpenDrain, gpio.PullUp))
	sda.SetSpeed(gpio.SpeedVeryHigh)
	scl := gpio.IntoAltFunc[gpio.AF1](gpio.ToOutput(d5SCL, gpio.OpenDrain, gpio.PullUp))
	scl.SetSpeed(gpio.SpeedVeryHigh)

	return i2c.I2C1(p, scl, sda, src, timing, b.Clocks(), b.RCC)
}
