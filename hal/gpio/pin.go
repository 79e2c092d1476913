// Package gpio models each pin's electrical configuration as a distinct
// handle type. A transition consumes its input handle and returns a handle of
// the new mode; operations that would be illegal for a mode do not exist on
// its type.
//
// Ownership is tracked per bank: every handle carries the generation it was
// issued at, and each transition bumps the bank's generation for that pin.
// Using a handle after it has been consumed panics with errcode.StalePin.
package gpio

import (
	pgpio "periph.io/x/conn/v3/gpio"

	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/reg"
	"nucleo-go/x/conv"
)

type Port uint8

const (
	PortA Port = iota
	PortB
	PortC
)

func (p Port) String() string { return string(rune('A' + p)) }

// ID names one physical pin.
type ID struct {
	Port Port
	N    uint8
}

func (id ID) String() string {
	return string(conv.AppendUint([]byte{'P', byte('A' + id.Port)}, uint64(id.N)))
}

// Drive is the output stage type (OTYPER).
type Drive uint8

const (
	PushPull Drive = iota
	OpenDrain
)

// Pull is the pull resistor selection (PUPDR encoding).
type Pull uint8

const (
	Floating Pull = iota
	PullUp
	PullDown
)

// Speed is the output slew rate (OSPEEDR encoding).
type Speed uint8

const (
	SpeedLow Speed = iota
	SpeedMedium
	SpeedHigh
	SpeedVeryHigh
)

// Level is the logical pin level.
type Level = pgpio.Level

const (
	Low  = pgpio.Low
	High = pgpio.High
)

// bank is the per-port arena recording the live generation of each pin.
type bank struct {
	port Port
	blk  reg.Block
	gen  [16]uint32
}

type pin struct {
	b   *bank
	n   uint8
	gen uint32
}

// ID returns the physical pin this handle refers to.
func (p pin) ID() ID {
	if p.b == nil {
		return ID{}
	}
	return ID{Port: p.b.port, N: p.n}
}

func (p pin) live(op string) {
	if p.b == nil {
		errcode.Fatal(errcode.StalePin, op, "zero handle")
	}
	if p.b.gen[p.n] != p.gen {
		errcode.Fatal(errcode.StalePin, op, p.ID().String())
	}
}

func (p pin) consume(op string) pin {
	p.live(op)
	p.b.gen[p.n]++
	return pin{b: p.b, n: p.n, gen: p.b.gen[p.n]}
}

// Two-bit fields (MODER, OSPEEDR, PUPDR).
func (p pin) field2(off, v uint32) {
	p.b.blk.ReplaceBits(off, v, 0x3, 2*p.n)
}

func (p pin) setMode(m uint32) { p.field2(stm32l0.GPIO_MODER, m) }
func (p pin) setPull(pl Pull)  { p.field2(stm32l0.GPIO_PUPDR, uint32(pl)) }
func (p pin) setSpeed(s Speed) { p.field2(stm32l0.GPIO_OSPEEDR, uint32(s)) }

func (p pin) setDrive(d Drive) {
	p.b.blk.ReplaceBits(stm32l0.GPIO_OTYPER, uint32(d), 0x1, p.n)
}

func (p pin) drive() Drive {
	return Drive(p.b.blk.Field(stm32l0.GPIO_OTYPER, 0x1, p.n))
}

func (p pin) setAF(af uint8) {
	off := uint32(stm32l0.GPIO_AFRL)
	n := p.n
	if n >= 8 {
		off = stm32l0.GPIO_AFRH
		n -= 8
	}
	p.b.blk.ReplaceBits(off, uint32(af), 0xF, 4*n)
}

// AnalogPin is a pin in analog mode, the post-reset state.
type AnalogPin struct{ pin }

// IntoOutput configures the pin as a digital output. The output stage and
// pull are written before the mode so the pin never drives with stale
// settings.
func (a AnalogPin) IntoOutput(d Drive, pl Pull) OutputPin {
	p := a.consume("gpio.into_output")
	p.setDrive(d)
	p.setPull(pl)
	p.setMode(stm32l0.GPIO_MODE_Output)
	return OutputPin{pin: p, drv: d, pull: pl}
}

// IntoInput configures the pin as a digital input.
func (a AnalogPin) IntoInput(pl Pull) InputPin {
	p := a.consume("gpio.into_input")
	p.setPull(pl)
	p.setMode(stm32l0.GPIO_MODE_Input)
	return InputPin{pin: p, pull: pl}
}

func (a AnalogPin) intoOutput(d Drive, pl Pull) OutputPin { return a.IntoOutput(d, pl) }

// InputPin is a digital input.
type InputPin struct {
	pin
	pull Pull
}

func (i InputPin) Pull() Pull { return i.pull }

// IsHigh samples IDR.
func (i InputPin) IsHigh() bool {
	i.live("gpio.is_high")
	return i.b.blk.Field(stm32l0.GPIO_IDR, 0x1, i.n) == 1
}

// IntoAnalog returns the pin to analog mode with the pull removed.
func (i InputPin) IntoAnalog() AnalogPin {
	p := i.consume("gpio.into_analog")
	p.setPull(Floating)
	p.setMode(stm32l0.GPIO_MODE_Analog)
	return AnalogPin{p}
}

func (i InputPin) intoOutput(d Drive, pl Pull) OutputPin {
	p := i.consume("gpio.into_output")
	p.setDrive(d)
	p.setPull(pl)
	p.setMode(stm32l0.GPIO_MODE_Output)
	return OutputPin{pin: p, drv: d, pull: pl}
}

// OutputPin is a digital output.
type OutputPin struct {
	pin
	drv  Drive
	pull Pull
}

func (o OutputPin) Drive() Drive { return o.drv }
func (o OutputPin) Pull() Pull   { return o.pull }

// SetSpeed adjusts OSPEEDR without changing the mode.
func (o OutputPin) SetSpeed(s Speed) {
	o.live("gpio.set_speed")
	o.setSpeed(s)
}

// SetHigh and SetLow go through BSRR, so they never race other pins.
func (o OutputPin) SetHigh() {
	o.live("gpio.set_high")
	o.b.blk.Set(stm32l0.GPIO_BSRR, 1<<o.n)
}

func (o OutputPin) SetLow() {
	o.live("gpio.set_low")
	o.b.blk.Set(stm32l0.GPIO_BSRR, 1<<(o.n+16))
}

func (o OutputPin) Set(l Level) {
	if l {
		o.SetHigh()
	} else {
		o.SetLow()
	}
}

// IsSetHigh reports the driven level (ODR), not the sampled one.
func (o OutputPin) IsSetHigh() bool {
	o.live("gpio.is_set_high")
	return o.b.blk.Field(stm32l0.GPIO_ODR, 0x1, o.n) == 1
}

func (o OutputPin) Toggle() {
	if o.IsSetHigh() {
		o.SetLow()
	} else {
		o.SetHigh()
	}
}

func (o OutputPin) IntoAnalog() AnalogPin {
	p := o.consume("gpio.into_analog")
	p.setPull(Floating)
	p.setMode(stm32l0.GPIO_MODE_Analog)
	return AnalogPin{p}
}

func (o OutputPin) intoOutput(d Drive, pl Pull) OutputPin {
	p := o.consume("gpio.into_output")
	if d != o.drv {
		p.setDrive(d)
	}
	if pl != o.pull {
		p.setPull(pl)
	}
	return OutputPin{pin: p, drv: d, pull: pl}
}

// Configurable is implemented by the handles that may become a digital
// output: analog, input and output pins. Alternate-function pins are not.
type Configurable interface {
	ID() ID
	intoOutput(d Drive, pl Pull) OutputPin
}

// ToOutput consumes c and returns it as an output with the given stage.
func ToOutput(c Configurable, d Drive, pl Pull) OutputPin {
	return c.intoOutput(d, pl)
}
