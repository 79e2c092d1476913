package hwsim

import (
	"nucleo-go/device/stm32l0"
	"nucleo-go/reg"
	"nucleo-go/x/ring"
)

// Line buffer sizes of the emulated virtual COM port.
const (
	uartTXSize = 512
	uartRXSize = 64
)

type uartState struct {
	tx   *ring.Ring // USART -> host
	rx   *ring.Ring // host -> USART
	errs uint32     // pending PE/FE/ORE flags, guarded by Emulator.mu
}

func (e *Emulator) hookUSART(base uint32) {
	e.uart.tx = ring.New(uartTXSize)
	e.uart.rx = ring.New(uartRXSize)
	cr1 := base + stm32l0.USART_CR1
	enabled := func(m reg.Mem, bit uint32) bool {
		v := m.Peek(cr1)
		return v&stm32l0.USART_CR1_UE != 0 && v&bit != 0
	}
	e.OnLoad(base+stm32l0.USART_ISR, func(m reg.Mem, _ uint32) uint32 {
		v := uint32(stm32l0.USART_ISR_TXE | stm32l0.USART_ISR_TC)
		if e.uart.rx.Len() > 0 && enabled(m, stm32l0.USART_CR1_RE) {
			v |= stm32l0.USART_ISR_RXNE
		}
		e.mu.Lock()
		v |= e.uart.errs
		e.mu.Unlock()
		return v
	})
	e.OnStore(base+stm32l0.USART_TDR, func(m reg.Mem, _, v uint32) uint32 {
		v &= 0x1FF
		if enabled(m, stm32l0.USART_CR1_TE) {
			// A full line drops the byte, as a host that is not reading would.
			e.uart.tx.WriteByte(byte(v))
		}
		return v
	})
	e.OnLoad(base+stm32l0.USART_RDR, func(m reg.Mem, v uint32) uint32 {
		if !enabled(m, stm32l0.USART_CR1_RE) {
			return v
		}
		b, ok := e.uart.rx.ReadByte()
		if !ok {
			return v
		}
		m.Poke(base+stm32l0.USART_RDR, uint32(b))
		return uint32(b)
	})
	e.OnStore(base+stm32l0.USART_ICR, func(_ reg.Mem, _, v uint32) uint32 {
		e.mu.Lock()
		e.uart.errs &^= v & (stm32l0.USART_ICR_PECF | stm32l0.USART_ICR_FECF | stm32l0.USART_ICR_ORECF)
		e.mu.Unlock()
		return 0
	})
}

// FeedUART queues bytes on the USART2 receive line. Bytes that do not fit
// are lost and raise an overrun, as on the real peripheral. Only one
// goroutine may feed.
func (e *Emulator) FeedUART(p []byte) {
	if n := e.uart.rx.Write(p); n < len(p) {
		e.InjectUARTError(stm32l0.USART_ISR_ORE)
	}
}

// UARTOutput returns and clears everything transmitted on USART2. Only one
// goroutine may drain.
func (e *Emulator) UARTOutput() []byte {
	var out []byte
	buf := make([]byte, 64)
	for {
		n := e.uart.tx.Read(buf)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

// UARTReadable is signalled when USART2 output appears after the line was
// drained. It is a hint; poll UARTOutput as well.
func (e *Emulator) UARTReadable() <-chan struct{} { return e.uart.tx.Readable() }

// InjectUARTError raises receive error flags (USART_ISR_PE, FE or ORE)
// until software clears them through ICR.
func (e *Emulator) InjectUARTError(flags uint32) {
	e.mu.Lock()
	e.uart.errs |= flags & (stm32l0.USART_ISR_PE | stm32l0.USART_ISR_FE | stm32l0.USART_ISR_ORE)
	e.mu.Unlock()
}
