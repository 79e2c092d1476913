package hwsim

import (
	"nucleo-go/device/stm32l0"
	"nucleo-go/reg"
)

// Target is an emulated I2C device. Transfer receives the bytes written to
// it since the previous STOP or read and, for a read, fills r. It runs with
// the emulator locked and must not touch the register file.
type Target interface {
	Transfer(w, r []byte)
}

// TargetFunc adapts a function to Target.
type TargetFunc func(w, r []byte)

func (f TargetFunc) Transfer(w, r []byte) { f(w, r) }

type i2cState struct {
	targets map[uint16]Target

	cur     Target
	curAddr uint16
	read    bool
	autoend bool
	n, done int
	w       []byte
	r       []byte

	txis, rxne, tc, nack, stop, busy bool
}

// AttachI2C places t on the I2C1 bus at the 7-bit address addr.
func (e *Emulator) AttachI2C(addr uint16, t Target) {
	e.mu.Lock()
	e.i2c.targets[addr] = t
	e.mu.Unlock()
}

func (s *i2cState) flush() {
	if s.cur != nil && len(s.w) > 0 {
		s.cur.Transfer(s.w, nil)
	}
	s.w = nil
}

func (s *i2cState) end() {
	if s.autoend {
		s.flush()
		s.stop, s.busy = true, false
		return
	}
	s.tc = true
}

func (s *i2cState) start(cr2 uint32) {
	addr := uint16(cr2&stm32l0.I2C_CR2_SADD_Msk) >> 1
	t, ok := s.targets[addr]
	if s.cur != nil && s.curAddr != addr {
		s.flush()
	}
	s.cur, s.curAddr = t, addr
	s.read = cr2&stm32l0.I2C_CR2_RD_WRN != 0
	s.autoend = cr2&stm32l0.I2C_CR2_AUTOEND != 0
	s.n = int(cr2 >> stm32l0.I2C_CR2_NBYTES_Pos & stm32l0.I2C_CR2_NBYTES_Msk)
	s.done = 0
	s.txis, s.rxne, s.tc = false, false, false
	s.busy = true
	if !ok {
		// Address not acknowledged: the peripheral stops on its own.
		s.w = nil
		s.nack, s.stop, s.busy = true, true, false
		return
	}
	if s.read {
		s.r = make([]byte, s.n)
		t.Transfer(s.w, s.r)
		s.w = nil
		s.rxne = s.n > 0
	} else {
		s.txis = s.n > 0
	}
	if s.n == 0 {
		s.end()
	}
}

func (e *Emulator) hookI2C(base uint32) {
	s := &e.i2c
	e.OnStore(base+stm32l0.I2C_CR1, func(_ reg.Mem, _, v uint32) uint32 {
		if v&stm32l0.I2C_CR1_PE == 0 {
			e.mu.Lock()
			s.cur, s.w, s.r = nil, nil, nil
			s.txis, s.rxne, s.tc, s.nack, s.stop, s.busy = false, false, false, false, false, false
			e.mu.Unlock()
		}
		return v
	})
	e.OnStore(base+stm32l0.I2C_CR2, func(m reg.Mem, _, v uint32) uint32 {
		if m.Peek(base+stm32l0.I2C_CR1)&stm32l0.I2C_CR1_PE == 0 {
			return v &^ (stm32l0.I2C_CR2_START | stm32l0.I2C_CR2_STOP)
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if v&stm32l0.I2C_CR2_STOP != 0 {
			s.flush()
			s.tc, s.txis, s.rxne = false, false, false
			s.stop, s.busy = true, false
		}
		if v&stm32l0.I2C_CR2_START != 0 {
			s.start(v)
		}
		return v &^ (stm32l0.I2C_CR2_START | stm32l0.I2C_CR2_STOP)
	})
	e.OnStore(base+stm32l0.I2C_TXDR, func(_ reg.Mem, _, v uint32) uint32 {
		e.mu.Lock()
		defer e.mu.Unlock()
		if s.txis {
			s.w = append(s.w, byte(v))
			s.done++
			if s.done == s.n {
				s.txis = false
				s.end()
			}
		}
		return v & 0xFF
	})
	e.OnLoad(base+stm32l0.I2C_RXDR, func(_ reg.Mem, v uint32) uint32 {
		e.mu.Lock()
		defer e.mu.Unlock()
		if !s.rxne {
			return v
		}
		b := s.r[s.done]
		s.done++
		if s.done == s.n {
			s.rxne = false
			s.end()
		}
		return uint32(b)
	})
	e.OnLoad(base+stm32l0.I2C_ISR, func(_ reg.Mem, _ uint32) uint32 {
		e.mu.Lock()
		defer e.mu.Unlock()
		v := uint32(stm32l0.I2C_ISR_TXE)
		set := func(on bool, bit uint32) {
			if on {
				v |= bit
			}
		}
		set(s.txis, stm32l0.I2C_ISR_TXIS)
		set(s.rxne, stm32l0.I2C_ISR_RXNE)
		set(s.nack, stm32l0.I2C_ISR_NACKF)
		set(s.stop, stm32l0.I2C_ISR_STOPF)
		set(s.tc, stm32l0.I2C_ISR_TC)
		set(s.busy, stm32l0.I2C_ISR_BUSY)
		return v
	})
	e.OnStore(base+stm32l0.I2C_ICR, func(_ reg.Mem, _, v uint32) uint32 {
		e.mu.Lock()
		if v&stm32l0.I2C_ICR_NACKCF != 0 {
			s.nack = false
		}
		if v&stm32l0.I2C_ICR_STOPCF != 0 {
			s.stop = false
		}
		e.mu.Unlock()
		return 0
	})
}
