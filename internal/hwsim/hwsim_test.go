package hwsim

import (
	"testing"

	"nucleo-go/device/stm32l0"
)

func TestResetState(t *testing.T) {
	e := New()
	if v := e.Load(stm32l0.RCCBase + stm32l0.RCC_CR); v&stm32l0.RCC_CR_MSIRDY == 0 {
		t.Fatalf("msi not ready after reset: %#x", v)
	}
	if v := e.Load(stm32l0.GPIOBBase + stm32l0.GPIO_MODER); v != 0xFFFF_FFFF {
		t.Fatalf("GPIOB MODER %#x", v)
	}
	if len(e.Trace()) != 0 {
		t.Fatal("reset values must not be traced")
	}
}

func TestReadyFlagsFollowEnables(t *testing.T) {
	e := New()
	cr := uint32(stm32l0.RCCBase + stm32l0.RCC_CR)
	e.Store(cr, stm32l0.RCC_CR_MSION|stm32l0.RCC_CR_HSI16ON)
	if v := e.Load(cr); v&stm32l0.RCC_CR_HSI16RDYF == 0 {
		t.Fatalf("hsi16 not ready: %#x", v)
	}
	e.Store(cr, stm32l0.RCC_CR_MSION)
	if v := e.Load(cr); v&stm32l0.RCC_CR_HSI16RDYF != 0 {
		t.Fatalf("hsi16 still ready: %#x", v)
	}

	stuck := New(WithStuckClock(stm32l0.RCC_CR_HSI16RDYF))
	stuck.Store(cr, stm32l0.RCC_CR_HSI16ON)
	if v := stuck.Load(cr); v&stm32l0.RCC_CR_HSI16RDYF != 0 {
		t.Fatalf("stuck oscillator reported ready")
	}
}

func TestSwitchStatusMirrorsSW(t *testing.T) {
	e := New()
	cfgr := uint32(stm32l0.RCCBase + stm32l0.RCC_CFGR)
	e.Store(cfgr, stm32l0.RCC_CFGR_SW_HSI16)
	if got := e.Load(cfgr) >> stm32l0.RCC_CFGR_SWS_Pos & 3; got != stm32l0.RCC_CFGR_SW_HSI16 {
		t.Fatalf("SWS=%d", got)
	}
}

func TestBSRRDrivesODRAndIDR(t *testing.T) {
	e := New()
	const b = stm32l0.GPIOBBase
	e.Store(b+stm32l0.GPIO_MODER, 0xFFFF_FFFF&^(3<<6)|1<<6) // PB3 output
	e.Store(b+stm32l0.GPIO_BSRR, 1<<3)
	if e.Load(b+stm32l0.GPIO_ODR) != 1<<3 || e.Load(b+stm32l0.GPIO_IDR)&(1<<3) == 0 {
		t.Fatal("set did not reach ODR/IDR")
	}
	if e.Load(b+stm32l0.GPIO_BSRR) != 0 {
		t.Fatal("BSRR must read as zero")
	}
	e.Store(b+stm32l0.GPIO_BSRR, 1<<(3+16))
	if e.Load(b+stm32l0.GPIO_ODR) != 0 {
		t.Fatal("reset did not clear ODR")
	}

	e.SetInput(1, 4, true)
	e.Store(b+stm32l0.GPIO_MODER, 0xFFFF_FFFF&^(3<<8)) // PB4 input
	if e.Load(b+stm32l0.GPIO_IDR)&(1<<4) == 0 {
		t.Fatal("external level not visible on input pin")
	}
}

func TestUARTLoop(t *testing.T) {
	e := New()
	const u = stm32l0.USART2Base
	e.FeedUART([]byte("hi"))
	if e.Load(u+stm32l0.USART_ISR)&stm32l0.USART_ISR_RXNE != 0 {
		t.Fatal("RXNE set while receiver disabled")
	}
	e.Store(u+stm32l0.USART_CR1, stm32l0.USART_CR1_UE|stm32l0.USART_CR1_TE|stm32l0.USART_CR1_RE)
	if byte(e.Load(u+stm32l0.USART_RDR)) != 'h' || byte(e.Load(u+stm32l0.USART_RDR)) != 'i' {
		t.Fatal("rx order")
	}
	if e.Load(u+stm32l0.USART_ISR)&stm32l0.USART_ISR_RXNE != 0 {
		t.Fatal("RXNE set with empty queue")
	}
	e.Store(u+stm32l0.USART_TDR, 'x')
	if got := string(e.UARTOutput()); got != "x" {
		t.Fatalf("tx %q", got)
	}
}

func TestI2CNackOnAbsentAddress(t *testing.T) {
	e := New()
	const i = stm32l0.I2C1Base
	e.Store(i+stm32l0.I2C_CR1, stm32l0.I2C_CR1_PE)
	e.Store(i+stm32l0.I2C_CR2, 0x42<<1|1<<stm32l0.I2C_CR2_NBYTES_Pos|stm32l0.I2C_CR2_START)
	isr := e.Load(i + stm32l0.I2C_ISR)
	if isr&stm32l0.I2C_ISR_NACKF == 0 || isr&stm32l0.I2C_ISR_STOPF == 0 {
		t.Fatalf("ISR %#x", isr)
	}
	e.Store(i+stm32l0.I2C_ICR, stm32l0.I2C_ICR_NACKCF|stm32l0.I2C_ICR_STOPCF)
	if e.Load(i+stm32l0.I2C_ISR)&(stm32l0.I2C_ISR_NACKF|stm32l0.I2C_ISR_STOPF) != 0 {
		t.Fatal("flags not cleared")
	}
}

func TestSHTC3Frame(t *testing.T) {
	if crc8([]byte{0xBE, 0xEF}) != 0x92 {
		t.Fatalf("crc8 = %#x", crc8([]byte{0xBE, 0xEF}))
	}
	s := &SHTC3{TempMilliC: 25_000, RHx100: 5_000}
	r := make([]byte, 6)
	s.Transfer([]byte{0x78, 0x66}, r)
	if len(s.Commands) != 1 || s.Commands[0] != 0x7866 {
		t.Fatalf("commands %#v", s.Commands)
	}
	if h := uint16(r[3])<<8 | uint16(r[4]); h != 0x8000 {
		t.Fatalf("rh word %#x", h)
	}
	if r[2] != crc8(r[:2]) || r[5] != crc8(r[3:5]) {
		t.Fatal("bad frame crc")
	}
}

func TestUARTFeedOverrun(t *testing.T) {
	e := New()
	const u = stm32l0.USART2Base
	e.FeedUART(make([]byte, uartRXSize+1))
	if e.Load(u+stm32l0.USART_ISR)&stm32l0.USART_ISR_ORE == 0 {
		t.Fatal("overflowing the receive line did not raise ORE")
	}
	e.Store(u+stm32l0.USART_ICR, stm32l0.USART_ICR_ORECF)
	if e.Load(u+stm32l0.USART_ISR)&stm32l0.USART_ISR_ORE != 0 {
		t.Fatal("ORE not cleared")
	}
}
