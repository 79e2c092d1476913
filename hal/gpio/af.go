package gpio

import "nucleo-go/device/stm32l0"

// Alternate-function selectors. A pin's selector is part of its handle type,
// so a peripheral constructor can state which selector it needs.
type (
	AF0 struct{}
	AF1 struct{}
	AF2 struct{}
	AF3 struct{}
	AF4 struct{}
	AF5 struct{}
	AF6 struct{}
	AF7 struct{}
)

func (AF0) Index() uint8 { return 0 }
func (AF1) Index() uint8 { return 1 }
func (AF2) Index() uint8 { return 2 }
func (AF3) Index() uint8 { return 3 }
func (AF4) Index() uint8 { return 4 }
func (AF5) Index() uint8 { return 5 }
func (AF6) Index() uint8 { return 6 }
func (AF7) Index() uint8 { return 7 }

// AltFunction is the closed set of selector types.
type AltFunction interface {
	AF0 | AF1 | AF2 | AF3 | AF4 | AF5 | AF6 | AF7
	Index() uint8
}

// AltFuncPin is a pin routed to an on-chip peripheral through selector F.
type AltFuncPin[F AltFunction] struct {
	pin
	drv  Drive
	pull Pull
}

func (a AltFuncPin[F]) Drive() Drive { return a.drv }
func (a AltFuncPin[F]) Pull() Pull   { return a.pull }

// AF returns the selector index.
func (a AltFuncPin[F]) AF() uint8 {
	var f F
	return f.Index()
}

// SetSpeed adjusts OSPEEDR without changing the mode.
func (a AltFuncPin[F]) SetSpeed(s Speed) {
	a.live("gpio.set_speed")
	a.setSpeed(s)
}

// Live panics if the handle has been consumed. Peripheral drivers call it
// before touching the pins they own.
func (a AltFuncPin[F]) Live(op string) { a.live(op) }

// IntoAltFunc routes an output pin to selector F. Drive and pull carry over
// from the output configuration; AFR is written before MODER.
func IntoAltFunc[F AltFunction](o OutputPin) AltFuncPin[F] {
	p := o.consume("gpio.into_alt_fun")
	var f F
	p.setAF(f.Index())
	p.setMode(stm32l0.GPIO_MODE_AltFn)
	return AltFuncPin[F]{pin: p, drv: o.drv, pull: o.pull}
}

// InputIntoAltFunc routes an input pin to selector F. The output stage is
// whatever OTYPER already holds.
func InputIntoAltFunc[F AltFunction](i InputPin) AltFuncPin[F] {
	p := i.consume("gpio.into_alt_fun")
	var f F
	p.setAF(f.Index())
	p.setMode(stm32l0.GPIO_MODE_AltFn)
	return AltFuncPin[F]{pin: p, drv: p.drive(), pull: i.pull}
}

// Release returns the pin to analog mode, consuming the handle. Peripheral
// handles use it when they give their pins back.
func (a AltFuncPin[F]) Release() AnalogPin {
	p := a.consume("gpio.release")
	p.setPull(Floating)
	p.setMode(stm32l0.GPIO_MODE_Analog)
	return AnalogPin{p}
}
