// cmd/nucleo-blinky/main.go
package main

import (
	"sync/atomic"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/shtc3"

	"nucleo-go/board"
	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/hal/cortexm"
	"nucleo-go/hal/power"
	"nucleo-go/hal/rcc"
	"nucleo-go/hal/systick"
	"nucleo-go/x/conv"
	"nucleo-go/x/mathx"
)

// ---------- Configuration ----------

const (
	vcore = power.Range1

	// SysTick runs from the core clock with reload = SYSCLK, so one tick is
	// a little over a second.
	tickSource = systick.Core

	// Ticks between sensor reads.
	sensorEvery = 5
)

// ---------- Main ----------

func main() {
	println("[main] boot …")

	// Host only; on the target the TinyGo runtime owns the fault vectors.
	cortexm.Handle(cortexm.HardFault, func() { cortexm.Halt("hardfault") })
	cortexm.Handle(cortexm.Default, func() { cortexm.Halt("unexpected exception") })

	p, ok := stm32l0.Take(platformIO())
	if !ok {
		cortexm.Halt("peripherals already taken")
	}

	b, err := board.Init(p, vcore)
	if err != nil {
		fail("board init", err)
	}
	clocks := b.Clocks()

	pins := b.Pins(p.GPIOA, p.GPIOB, p.GPIOC)
	led := b.UserLED(pins.D13)

	vcp, err := b.VCPSerial(p.USART2, pins.A7, board.VCPBaud, board.VCPClock)
	if err != nil {
		fail("vcp", err)
	}

	bus, err := b.I2C1(p.I2C1, pins.D5, pins.D4, rcc.ClockHSI16, board.I2CTiming100kHz)
	if err != nil {
		fail("i2c1", err)
	}
	sensor := shtc3.New(bus)

	var ticks atomic.Uint32
	cortexm.Handle(cortexm.SysTick, func() { ticks.Add(1) })
	b.SysTickStart(p.SYST, tickSource, clocks.SysClk)

	println("[main] running: sysclk", clocks.SysClk, "vcp", vcp.Baud())

	// ---------- Loop ----------

	out := &console{uart: vcp, line: make([]byte, 0, 64)}
	var seen uint32
	for {
		cortexm.WaitForInterrupt()
		now := ticks.Load()
		if now == seen {
			continue
		}
		seen = now
		led.Toggle()

		if now%sensorEvery != 0 {
			continue
		}
		if err := out.report(&sensor, now); err != nil {
			fail("vcp write", err)
		}
	}
}

// ---------- Helpers ----------

// console writes sensor lines to a serial port.
type console struct {
	uart drivers.UART
	line []byte
}

func (c *console) report(s *shtc3.Device, tick uint32) error {
	c.line = appendReading(c.line[:0], s, tick)
	_, err := c.uart.Write(c.line)
	return err
}

// appendReading takes one measurement and formats it as
// "tick=N temp=21.500C rh=42.50%" or "tick=N err=code".
func appendReading(dst []byte, s *shtc3.Device, tick uint32) []byte {
	dst = append(dst, "tick="...)
	dst = conv.AppendUint(dst, uint64(tick))

	_ = s.WakeUp()
	tmc, rhx100, err := s.ReadTemperatureHumidity()
	_ = s.Sleep()
	if err != nil {
		dst = append(dst, " err="...)
		dst = append(dst, string(errcode.MapDriverErr(err))...)
		return append(dst, "\r\n"...)
	}

	dst = append(dst, " temp="...)
	dst = conv.AppendFixed(dst, int64(tmc), 3)
	dst = append(dst, "C rh="...)
	dst = conv.AppendFixed(dst, mathx.Clamp(int64(rhx100), 0, 10_000), 2)
	return append(dst, "%\r\n"...)
}

func fail(what string, err error) {
	println("[main]", what, "failed:", err.Error())
	cortexm.Halt(what)
}
