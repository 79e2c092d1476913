// Package hwsim emulates the STM32L031 peripherals this module drives on top
// of a reg.Sim register file. Host tests and the host build of the demo run
// the unmodified drivers against it.
//
// Only the behaviour the drivers observe is modelled: ready flags follow
// their enables, the clock switch status follows SW, BSRR updates ODR, the
// USART is always ready to transmit, I2C targets answer by address and
// SysTick raises its exception at the programmed rate.
package hwsim

import (
	"sync"
	"time"

	"nucleo-go/device/stm32l0"
	"nucleo-go/hal/cortexm"
	"nucleo-go/reg"
	"nucleo-go/x/timex"
)

// Option adjusts an Emulator at construction.
type Option func(*Emulator)

// WithStuckClock keeps the given RCC_CR ready flags low whatever is enabled.
func WithStuckClock(rdy uint32) Option { return func(e *Emulator) { e.stuckRdy = rdy } }

// WithStuckSwitch keeps SWS at its reset value so clock switches never
// complete.
func WithStuckSwitch() Option { return func(e *Emulator) { e.stuckSW = true } }

// WithBusyRegulator holds PWR_CSR.VOSF set so range changes time out.
func WithBusyRegulator() Option { return func(e *Emulator) { e.busyVOS = true } }

// WithManualTick stops SysTick from running on its own; call Tick instead.
func WithManualTick() Option { return func(e *Emulator) { e.manualTick = true } }

// Emulator is a register file with peripheral behaviour attached. It
// implements reg.IO.
type Emulator struct {
	*reg.Sim

	stuckRdy   uint32
	stuckSW    bool
	busyVOS    bool
	manualTick bool

	mu       sync.Mutex // guards the state below; taken inside Sim hooks
	inputs   [3]uint32
	uart     uartState
	i2c      i2cState
	tickStop chan struct{}
	ticks    uint64
}

// New returns an emulator in the post-reset state.
func New(opts ...Option) *Emulator {
	e := &Emulator{Sim: reg.NewSim()}
	for _, o := range opts {
		o(e)
	}
	e.i2c.targets = make(map[uint16]Target)
	e.reset()
	e.hookRCC()
	e.hookGPIO(stm32l0.GPIOABase, 0)
	e.hookGPIO(stm32l0.GPIOBBase, 1)
	e.hookGPIO(stm32l0.GPIOCBase, 2)
	e.hookUSART(stm32l0.USART2Base)
	e.hookI2C(stm32l0.I2C1Base)
	e.hookSysTick()
	return e
}

func (e *Emulator) reset() {
	e.Preset(stm32l0.RCCBase+stm32l0.RCC_CR, stm32l0.RCC_CR_Reset&^e.stuckRdy)
	e.Preset(stm32l0.RCCBase+stm32l0.RCC_ICSCR, stm32l0.RCC_ICSCR_Reset)
	e.Preset(stm32l0.PWRBase+stm32l0.PWR_CR, stm32l0.PWR_CR_Reset)
	if e.busyVOS {
		e.Preset(stm32l0.PWRBase+stm32l0.PWR_CSR, stm32l0.PWR_CSR_VOSF)
	}
	e.Preset(stm32l0.GPIOABase+stm32l0.GPIO_MODER, stm32l0.GPIOA_MODER_Reset)
	e.Preset(stm32l0.GPIOABase+stm32l0.GPIO_PUPDR, stm32l0.GPIOA_PUPDR_Reset)
	e.Preset(stm32l0.GPIOABase+stm32l0.GPIO_OSPEEDR, stm32l0.GPIOA_OSPEEDR_Reset)
	e.Preset(stm32l0.GPIOBBase+stm32l0.GPIO_MODER, stm32l0.GPIOX_MODER_Reset)
	e.Preset(stm32l0.GPIOCBase+stm32l0.GPIO_MODER, stm32l0.GPIOX_MODER_Reset)
}

func (e *Emulator) hookRCC() {
	const base = stm32l0.RCCBase
	e.OnStore(base+stm32l0.RCC_CR, func(_ reg.Mem, _, v uint32) uint32 {
		v &^= stm32l0.RCC_CR_MSIRDY | stm32l0.RCC_CR_HSI16RDYF
		if v&stm32l0.RCC_CR_MSION != 0 {
			v |= stm32l0.RCC_CR_MSIRDY
		}
		if v&stm32l0.RCC_CR_HSI16ON != 0 {
			v |= stm32l0.RCC_CR_HSI16RDYF
		}
		return v &^ e.stuckRdy
	})
	e.OnStore(base+stm32l0.RCC_CFGR, func(_ reg.Mem, old, v uint32) uint32 {
		const sws = stm32l0.RCC_CFGR_SWS_Msk << stm32l0.RCC_CFGR_SWS_Pos
		if e.stuckSW {
			return v&^sws | old&sws
		}
		sw := v >> stm32l0.RCC_CFGR_SW_Pos & stm32l0.RCC_CFGR_SW_Msk
		return v&^sws | sw<<stm32l0.RCC_CFGR_SWS_Pos
	})
}

// coreHz derives HCLK from the emulated RCC registers.
func coreHz(m reg.Mem) uint32 {
	cfgr := m.Peek(stm32l0.RCCBase + stm32l0.RCC_CFGR)
	var hz uint32
	if cfgr>>stm32l0.RCC_CFGR_SWS_Pos&stm32l0.RCC_CFGR_SWS_Msk == stm32l0.RCC_CFGR_SW_HSI16 {
		hz = 16_000_000
	} else {
		msi := [...]uint32{65_536, 131_072, 262_144, 524_288, 1_048_000, 2_097_000, 4_194_000, 0}
		r := m.Peek(stm32l0.RCCBase+stm32l0.RCC_ICSCR) >> stm32l0.RCC_ICSCR_MSIRANGE_Pos & stm32l0.RCC_ICSCR_MSIRANGE_Msk
		hz = msi[r]
	}
	hpre := cfgr >> stm32l0.RCC_CFGR_HPRE_Pos & stm32l0.RCC_CFGR_HPRE_Msk
	switch {
	case hpre >= 12:
		hz >>= hpre - 6
	case hpre >= 8:
		hz >>= hpre - 7
	}
	return hz
}

// SetInput drives the external level seen on pin n of port (0 = A). Pins
// in output mode read back their own ODR bit instead.
func (e *Emulator) SetInput(port, n uint8, high bool) {
	e.mu.Lock()
	if high {
		e.inputs[port] |= 1 << n
	} else {
		e.inputs[port] &^= 1 << n
	}
	e.mu.Unlock()
}

func (e *Emulator) hookGPIO(base uint32, port uint8) {
	odr := base + stm32l0.GPIO_ODR
	e.OnStore(base+stm32l0.GPIO_BSRR, func(m reg.Mem, _, v uint32) uint32 {
		// Set wins over reset for the same pin.
		m.Poke(odr, m.Peek(odr)&^(v>>16)|v&0xFFFF)
		return 0
	})
	e.OnStore(base+stm32l0.GPIO_BRR, func(m reg.Mem, _, v uint32) uint32 {
		m.Poke(odr, m.Peek(odr)&^(v&0xFFFF))
		return 0
	})
	e.OnLoad(base+stm32l0.GPIO_IDR, func(m reg.Mem, _ uint32) uint32 {
		moder := m.Peek(base + stm32l0.GPIO_MODER)
		out := m.Peek(odr)
		e.mu.Lock()
		in := e.inputs[port]
		e.mu.Unlock()
		var v uint32
		for n := uint32(0); n < 16; n++ {
			src := in
			if moder>>(2*n)&3 == stm32l0.GPIO_MODE_Output {
				src = out
			}
			v |= src & (1 << n)
		}
		return v
	})
}

func (e *Emulator) hookSysTick() {
	const base = stm32l0.SysTickBase
	e.OnStore(base+stm32l0.SYST_CSR, func(m reg.Mem, _, v uint32) uint32 {
		run := v&stm32l0.SYST_CSR_ENABLE != 0 && v&stm32l0.SYST_CSR_TICKINT != 0
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.tickStop != nil {
			close(e.tickStop)
			e.tickStop = nil
		}
		if !run || e.manualTick {
			return v
		}
		hz := coreHz(m)
		if v&stm32l0.SYST_CSR_CLKSOURCE == 0 {
			hz /= 8
		}
		if hz == 0 {
			return v
		}
		reload := m.Peek(base+stm32l0.SYST_RVR) & stm32l0.SYST_RVR_Max
		period := timex.Cycles(uint64(reload)+1, hz)
		stop := make(chan struct{})
		e.tickStop = stop
		go e.tickLoop(period, stop)
		return v
	})
}

func (e *Emulator) tickLoop(period time.Duration, stop chan struct{}) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			e.Tick()
		}
	}
}

// Tick counts one SysTick period and raises the exception.
func (e *Emulator) Tick() {
	e.mu.Lock()
	e.ticks++
	e.mu.Unlock()
	cortexm.Raise(cortexm.SysTick)
}

// Ticks returns how many SysTick exceptions have been raised.
func (e *Emulator) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

// Close stops the SysTick goroutine, if any.
func (e *Emulator) Close() {
	e.mu.Lock()
	if e.tickStop != nil {
		close(e.tickStop)
		e.tickStop = nil
	}
	e.mu.Unlock()
}
