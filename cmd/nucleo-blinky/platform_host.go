//go:build !stm32l0

package main

import (
	"os"
	"time"

	"nucleo-go/internal/hwsim"
	"nucleo-go/reg"
)

// platformIO runs the program against the emulated board: an SHTC3 on the
// I2C pins and the VCP copied to stdout.
func platformIO() reg.IO {
	e := hwsim.New()
	e.AttachI2C(hwsim.SHTC3Addr, &hwsim.SHTC3{TempMilliC: 21_500, RHx100: 4_250})
	go pumpVCP(e)
	return e
}

func pumpVCP(e *hwsim.Emulator) {
	// The readable edge is only a hint; the ticker catches a missed one.
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-e.UARTReadable():
		case <-t.C:
		}
		if out := e.UARTOutput(); len(out) > 0 {
			_, _ = os.Stdout.Write(out)
		}
	}
}
