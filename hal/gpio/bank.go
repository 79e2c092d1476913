package gpio

import (
	"nucleo-go/device/stm32l0"
	"nucleo-go/hal/rcc"
)

// Parts is every pin of one bank, freshly issued in analog mode.
type Parts struct {
	Port Port
	P    [16]AnalogPin
}

// Split claims a bank's register block, enables its clock and issues one
// analog handle per pin. Claiming the same block twice panics.
func Split(g *stm32l0.GPIO, iop *rcc.IOP) *Parts {
	blk := g.Claim("gpio.split")
	iop.Enable(g.Port)

	b := &bank{port: Port(g.Port), blk: blk}
	parts := &Parts{Port: b.port}
	for n := range parts.P {
		parts.P[n] = AnalogPin{pin{b: b, n: uint8(n)}}
	}
	return parts
}
