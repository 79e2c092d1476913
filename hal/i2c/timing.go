package i2c

import (
	"periph.io/x/conn/v3/physic"

	"nucleo-go/errcode"
)

// Timing holds the TIMINGR fields. Periods are in units of the prescaled
// kernel clock: tPRESC = (Presc+1) / fI2CCLK.
type Timing struct {
	Presc  uint8 // 4 bits
	SCLDel uint8 // 4 bits, data setup
	SDADel uint8 // 4 bits, data hold
	SCLH   uint8
	SCLL   uint8
}

// Encode packs the fields into a TIMINGR value.
func (t Timing) Encode() uint32 {
	return uint32(t.Presc&0xF)<<28 |
		uint32(t.SCLDel&0xF)<<20 |
		uint32(t.SDADel&0xF)<<16 |
		uint32(t.SCLH)<<8 |
		uint32(t.SCLL)
}

// DecodeTiming unpacks a TIMINGR value.
func DecodeTiming(v uint32) Timing {
	return Timing{
		Presc:  uint8(v >> 28 & 0xF),
		SCLDel: uint8(v >> 20 & 0xF),
		SDADel: uint8(v >> 16 & 0xF),
		SCLH:   uint8(v >> 8),
		SCLL:   uint8(v),
	}
}

// Reference timings for a 16 MHz kernel clock (RM0377 I2C timing examples).
var timings16MHz = []struct {
	f physic.Frequency
	t Timing
}{
	{10 * physic.KiloHertz, Timing{Presc: 3, SCLDel: 4, SDADel: 2, SCLH: 0xC3, SCLL: 0xC7}},
	{100 * physic.KiloHertz, Timing{Presc: 3, SCLDel: 4, SDADel: 2, SCLH: 0x0F, SCLL: 0x13}},
	{400 * physic.KiloHertz, Timing{Presc: 1, SCLDel: 3, SDADel: 2, SCLH: 0x03, SCLL: 0x09}},
	{physic.MegaHertz, Timing{Presc: 0, SCLDel: 2, SDADel: 0, SCLH: 0x02, SCLL: 0x04}},
}

// ReferenceTiming returns the reference-manual timing for bus speed f with
// the given kernel clock. Only a 16 MHz kernel clock and the four standard
// speeds are tabulated.
func ReferenceTiming(kernelHz uint32, f physic.Frequency) (Timing, error) {
	if kernelHz != 16_000_000 {
		return Timing{}, errcode.New(errcode.Unsupported, "i2c.timing", "kernel clock")
	}
	for _, e := range timings16MHz {
		if e.f == f {
			return e.t, nil
		}
	}
	return Timing{}, errcode.New(errcode.Unsupported, "i2c.timing", f.String())
}
