// Package usart binds USART2 to a pair of alternate-function pins and drives
// it as a polled serial port.
package usart

import (
	"io"

	"tinygo.org/x/drivers"

	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/hal/gpio"
	"nucleo-go/hal/rcc"
	"nucleo-go/reg"
	"nucleo-go/x/mathx"
)

// Config selects the line rate and the kernel clock.
type Config struct {
	Baud  uint32
	Clock rcc.PeriphClock // rcc.ClockAPB, ClockSysClk or ClockHSI16
}

// DefaultConfig is 9600 baud from HSI16, the board's console setting.
func DefaultConfig() Config { return Config{Baud: 9600, Clock: rcc.ClockHSI16} }

func (c Config) Validate() error {
	if c.Baud == 0 {
		return errcode.New(errcode.InvalidParams, "usart.config", "baud")
	}
	if c.Clock == rcc.ClockLSE {
		return errcode.New(errcode.Unsupported, "usart.config", "lse")
	}
	if c.Clock > rcc.ClockLSE {
		return errcode.New(errcode.InvalidParams, "usart.config", "clock")
	}
	return nil
}

// Check validates c against the frozen clock tree and returns the kernel
// clock and the BRR value a bind would program. It writes nothing.
func (c Config) Check(clocks rcc.Clocks) (fck, brr uint32, err error) {
	if err = c.Validate(); err != nil {
		return 0, 0, err
	}
	if fck, err = clocks.KernelHz(c.Clock, 1); err != nil {
		return 0, 0, err
	}
	if brr, err = BRR(fck, c.Baud); err != nil {
		return 0, 0, err
	}
	return fck, brr, nil
}

// BRR limits with 16x oversampling.
const (
	minBRR = 16
	maxBRR = 0xFFFF
)

// BRR computes the divider for baud from a kernel clock of fck Hz.
func BRR(fck, baud uint32) (uint32, error) {
	if baud == 0 {
		return 0, errcode.New(errcode.InvalidParams, "usart.brr", "baud")
	}
	brr := mathx.RoundDiv(fck, baud)
	if !mathx.Between(brr, minBRR, maxBRR) {
		return 0, errcode.New(errcode.InvalidParams, "usart.brr", "out of range")
	}
	return brr, nil
}

type route struct {
	id gpio.ID
	af uint8
}

var (
	usart2TX = []route{
		{gpio.ID{Port: gpio.PortA, N: 2}, 4},
		{gpio.ID{Port: gpio.PortA, N: 9}, 4},
		{gpio.ID{Port: gpio.PortA, N: 14}, 4},
		{gpio.ID{Port: gpio.PortB, N: 6}, 0},
	}
	usart2RX = []route{
		{gpio.ID{Port: gpio.PortA, N: 3}, 4},
		{gpio.ID{Port: gpio.PortA, N: 10}, 4},
		{gpio.ID{Port: gpio.PortA, N: 15}, 4},
		{gpio.ID{Port: gpio.PortB, N: 7}, 0},
	}
)

func routed(table []route, id gpio.ID, af uint8) bool {
	for _, r := range table {
		if r.id == id && r.af == af {
			return true
		}
	}
	return false
}

// Compile-time checks.
var (
	_ drivers.UART  = (*Serial[gpio.AF4, gpio.AF4])(nil)
	_ io.ReadWriter = (*Serial[gpio.AF4, gpio.AF4])(nil)
	_ io.ByteReader = (*Serial[gpio.AF4, gpio.AF4])(nil)
	_ io.ByteWriter = (*Serial[gpio.AF4, gpio.AF4])(nil)
)

// Serial is a bound USART.
type Serial[TX, RX gpio.AltFunction] struct {
	per  *stm32l0.USART
	blk  reg.Block
	tx   gpio.AltFuncPin[TX]
	rx   gpio.AltFuncPin[RX]
	fck  uint32
	baud uint32
}

// USART2 binds USART2 to tx and rx. A pin that cannot carry the signal on
// its selector panics with errcode.WrongPin. Clock or baud problems are
// returned and leave the block unclaimed.
func USART2[TX, RX gpio.AltFunction](u *stm32l0.USART, tx gpio.AltFuncPin[TX], rx gpio.AltFuncPin[RX], cfg Config, clocks rcc.Clocks, r *rcc.RCC) (*Serial[TX, RX], error) {
	const op = "usart.usart2"
	tx.Live(op)
	rx.Live(op)
	if !routed(usart2TX, tx.ID(), tx.AF()) {
		errcode.Fatal(errcode.WrongPin, op, "tx "+tx.ID().String())
	}
	if !routed(usart2RX, rx.ID(), rx.AF()) {
		errcode.Fatal(errcode.WrongPin, op, "rx "+rx.ID().String())
	}
	fck, brr, err := cfg.Check(clocks)
	if err != nil {
		return nil, err
	}

	blk := u.Claim(op)
	r.APB1.EnableUSART2()
	r.CCIPR.SetUSART2(cfg.Clock)
	blk.Set(stm32l0.USART_CR1, 0)
	blk.Set(stm32l0.USART_BRR, brr)
	blk.Set(stm32l0.USART_CR1, stm32l0.USART_CR1_TE|stm32l0.USART_CR1_RE|stm32l0.USART_CR1_UE)

	println("[usart] usart2 on", tx.ID().String(), rx.ID().String(), "baud", cfg.Baud, "brr", brr)
	return &Serial[TX, RX]{per: u, blk: blk, tx: tx, rx: rx, fck: fck, baud: cfg.Baud}, nil
}

func (s *Serial[TX, RX]) Baud() uint32 { return s.baud }

// SetBaudRate reprograms BRR from the kernel clock chosen at bind time.
func (s *Serial[TX, RX]) SetBaudRate(baud uint32) error {
	brr, err := BRR(s.fck, baud)
	if err != nil {
		return err
	}
	s.blk.ClearBits(stm32l0.USART_CR1, stm32l0.USART_CR1_UE)
	s.blk.Set(stm32l0.USART_BRR, brr)
	s.blk.SetBits(stm32l0.USART_CR1, stm32l0.USART_CR1_UE)
	s.baud = baud
	return nil
}

// WriteByte waits for room in the transmit register and queues c.
func (s *Serial[TX, RX]) WriteByte(c byte) error {
	if err := s.blk.Wait(stm32l0.USART_ISR, stm32l0.USART_ISR_TXE, stm32l0.USART_ISR_TXE, 0); err != nil {
		return &errcode.E{C: errcode.Timeout, Op: "usart.write", Err: err}
	}
	s.blk.Set(stm32l0.USART_TDR, uint32(c))
	return nil
}

func (s *Serial[TX, RX]) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := s.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Flush waits for the last byte to leave the shift register.
func (s *Serial[TX, RX]) Flush() error {
	if err := s.blk.Wait(stm32l0.USART_ISR, stm32l0.USART_ISR_TC, stm32l0.USART_ISR_TC, 0); err != nil {
		return &errcode.E{C: errcode.Timeout, Op: "usart.flush", Err: err}
	}
	return nil
}

// rxError reports and clears a pending receive error.
func (s *Serial[TX, RX]) rxError(isr uint32) error {
	const op = "usart.read"
	switch {
	case isr&stm32l0.USART_ISR_ORE != 0:
		s.blk.Set(stm32l0.USART_ICR, stm32l0.USART_ICR_ORECF)
		return errcode.New(errcode.Overrun, op, "")
	case isr&stm32l0.USART_ISR_FE != 0:
		s.blk.Set(stm32l0.USART_ICR, stm32l0.USART_ICR_FECF)
		return errcode.New(errcode.Framing, op, "")
	case isr&stm32l0.USART_ISR_PE != 0:
		s.blk.Set(stm32l0.USART_ICR, stm32l0.USART_ICR_PECF)
		return errcode.New(errcode.Parity, op, "")
	}
	return nil
}

// Buffered reports whether a received byte is waiting. The USART holds at
// most one.
func (s *Serial[TX, RX]) Buffered() int {
	if s.blk.HasBits(stm32l0.USART_ISR, stm32l0.USART_ISR_RXNE) {
		return 1
	}
	return 0
}

// ReadByte waits, bounded, for one byte.
func (s *Serial[TX, RX]) ReadByte() (byte, error) {
	for i := 0; i < reg.DefaultSpins; i++ {
		isr := s.blk.Get(stm32l0.USART_ISR)
		if err := s.rxError(isr); err != nil {
			return 0, err
		}
		if isr&stm32l0.USART_ISR_RXNE != 0 {
			return byte(s.blk.Get(stm32l0.USART_RDR)), nil
		}
	}
	return 0, errcode.New(errcode.Timeout, "usart.read", "")
}

// Read waits for the first byte, then takes whatever else is already
// waiting.
func (s *Serial[TX, RX]) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	c, err := s.ReadByte()
	if err != nil {
		return 0, err
	}
	p[0] = c
	n := 1
	for n < len(p) && s.Buffered() > 0 {
		if p[n], err = s.ReadByte(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Release disables the USART, returns the block to the ledger and hands
// back the pins.
func (s *Serial[TX, RX]) Release() (gpio.AltFuncPin[TX], gpio.AltFuncPin[RX]) {
	s.blk.Set(stm32l0.USART_CR1, 0)
	s.per.Unclaim()
	tx, rx := s.tx, s.rx
	*s = Serial[TX, RX]{}
	return tx, rx
}
