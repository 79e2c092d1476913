package i2c

import (
	"errors"
	"testing"

	pi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/hal/flash"
	"nucleo-go/hal/gpio"
	"nucleo-go/hal/power"
	"nucleo-go/hal/rcc"
	"nucleo-go/internal/hwsim"
)

const boardTiming = 0x00303D5B

type fixture struct {
	e      *hwsim.Emulator
	p      *stm32l0.Peripherals
	r      *rcc.RCC
	clocks rcc.Clocks
	b      *gpio.Parts
}

func newFixture(t *testing.T, hsi16 bool) *fixture {
	t.Helper()
	e := hwsim.New()
	p := stm32l0.New(e)
	r := rcc.Constrain(p.RCC)
	pw := power.Constrain(p.PWR, r.PowerGate())
	fl := flash.Constrain(p.FLASH)
	cfg, _ := r.Config()
	cfg.HSI16.Enable = hsi16
	clocks, err := r.Freeze(fl, pw)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{e: e, p: p, r: r, clocks: clocks, b: gpio.Split(p.GPIOB, r.IOP)}
}

func (f *fixture) pins() (gpio.AltFuncPin[gpio.AF1], gpio.AltFuncPin[gpio.AF1]) {
	scl := gpio.IntoAltFunc[gpio.AF1](f.b.P[6].IntoOutput(gpio.OpenDrain, gpio.PullUp))
	sda := gpio.IntoAltFunc[gpio.AF1](f.b.P[7].IntoOutput(gpio.OpenDrain, gpio.PullUp))
	return scl, sda
}

func (f *fixture) bind(t *testing.T, src rcc.PeriphClock) *Bus[gpio.AF1, gpio.AF1] {
	t.Helper()
	scl, sda := f.pins()
	b, err := I2C1(f.p.I2C1, scl, sda, src, boardTiming, f.clocks, f.r)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestTimingEncoding(t *testing.T) {
	cases := []struct {
		f    physic.Frequency
		want uint32
	}{
		{10 * physic.KiloHertz, 0x3042C3C7},
		{100 * physic.KiloHertz, 0x30420F13},
		{400 * physic.KiloHertz, 0x10320309},
		{physic.MegaHertz, 0x00200204},
	}
	for _, c := range cases {
		tm, err := ReferenceTiming(16_000_000, c.f)
		if err != nil {
			t.Fatalf("%s: %v", c.f, err)
		}
		if got := tm.Encode(); got != c.want {
			t.Errorf("%s: %#08x want %#08x", c.f, got, c.want)
		}
		if DecodeTiming(c.want) != tm {
			t.Errorf("%s: decode mismatch", c.f)
		}
	}
	if _, err := ReferenceTiming(2_097_000, 100*physic.KiloHertz); !errors.Is(err, errcode.Unsupported) {
		t.Fatalf("2.097 MHz kernel: %v", err)
	}
	if _, err := ReferenceTiming(16_000_000, 50*physic.KiloHertz); !errors.Is(err, errcode.Unsupported) {
		t.Fatalf("50 kHz: %v", err)
	}
}

func TestBindWritesTimingExactly(t *testing.T) {
	f := newFixture(t, true)
	scl, sda := f.pins()
	if m := f.e.Peek(stm32l0.GPIOBBase+stm32l0.GPIO_OTYPER) >> 6 & 3; m != 3 {
		t.Fatalf("SCL/SDA not open drain: %#b", m)
	}
	if pu := f.e.Peek(stm32l0.GPIOBBase+stm32l0.GPIO_PUPDR) >> 12 & 0xF; pu != 0b0101 {
		t.Fatalf("SCL/SDA not pulled up: %#b", pu)
	}
	f.e.ClearTrace()
	b, err := I2C1(f.p.I2C1, scl, sda, rcc.ClockHSI16, boardTiming, f.clocks, f.r)
	if err != nil {
		t.Fatal(err)
	}
	const base = stm32l0.I2C1Base
	if v := f.e.Peek(base + stm32l0.I2C_TIMINGR); v != boardTiming || b.Timing() != boardTiming {
		t.Fatalf("TIMINGR %#x", v)
	}
	var seq []uint32
	for _, w := range f.e.Trace() {
		if w.Addr == base+stm32l0.I2C_CR1 || w.Addr == base+stm32l0.I2C_TIMINGR {
			seq = append(seq, w.Addr-base, w.Val&stm32l0.I2C_CR1_PE)
		}
	}
	want := []uint32{stm32l0.I2C_CR1, 0, stm32l0.I2C_TIMINGR, 1, stm32l0.I2C_CR1, 1}
	if len(seq) != len(want) {
		t.Fatalf("CR1/TIMINGR writes %v", seq)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("CR1/TIMINGR writes %v want %v", seq, want)
		}
	}
	ccipr := f.e.Peek(stm32l0.RCCBase + stm32l0.RCC_CCIPR)
	if sel := ccipr >> stm32l0.RCC_CCIPR_I2C1SEL_Pos & stm32l0.RCC_CCIPR_I2C1SEL_Msk; sel != uint32(rcc.ClockHSI16) {
		t.Fatalf("I2C1SEL %d", sel)
	}
	if b.String() != "I2C1" {
		t.Fatal(b.String())
	}
}

func TestBindWrongPinPanics(t *testing.T) {
	f := newFixture(t, true)
	_, sda := f.pins()
	bad := gpio.IntoAltFunc[gpio.AF1](f.b.P[8].IntoOutput(gpio.OpenDrain, gpio.PullUp))
	defer func() {
		e, ok := recover().(*errcode.E)
		if !ok || e.C != errcode.WrongPin {
			t.Fatalf("recovered %v", e)
		}
	}()
	I2C1(f.p.I2C1, bad, sda, rcc.ClockHSI16, boardTiming, f.clocks, f.r)
}

func TestBindClockErrors(t *testing.T) {
	f := newFixture(t, false)
	scl, sda := f.pins()
	if _, err := I2C1(f.p.I2C1, scl, sda, rcc.ClockHSI16, boardTiming, f.clocks, f.r); !errors.Is(err, errcode.ClockNotReady) {
		t.Fatalf("hsi16 off: %v", err)
	}
	if _, err := I2C1(f.p.I2C1, scl, sda, rcc.ClockLSE, boardTiming, f.clocks, f.r); !errors.Is(err, errcode.Unsupported) {
		t.Fatalf("lse: %v", err)
	}
	if f.p.I2C1.Claimed() {
		t.Fatal("failed bind claimed the block")
	}
}

func TestTxWithSensor(t *testing.T) {
	f := newFixture(t, true)
	sensor := &hwsim.SHTC3{TempMilliC: 25_000, RHx100: 5_000}
	f.e.AttachI2C(hwsim.SHTC3Addr, sensor)
	b := f.bind(t, rcc.ClockHSI16)

	if err := b.Tx(hwsim.SHTC3Addr, []byte{0x35, 0x17}, nil); err != nil {
		t.Fatalf("wakeup: %v", err)
	}
	r := make([]byte, 6)
	if err := b.Tx(hwsim.SHTC3Addr, []byte{0x78, 0x66}, r); err != nil {
		t.Fatalf("measure: %v", err)
	}
	if len(sensor.Commands) != 2 || sensor.Commands[0] != 0x3517 || sensor.Commands[1] != 0x7866 {
		t.Fatalf("commands %#v", sensor.Commands)
	}
	if h := uint16(r[3])<<8 | uint16(r[4]); h != 0x8000 {
		t.Fatalf("rh word %#x", h)
	}

	// Through periph's device wrapper.
	d := &pi2c.Dev{Bus: b, Addr: hwsim.SHTC3Addr}
	if err := d.Tx(nil, r); err != nil {
		t.Fatalf("read only: %v", err)
	}
}

func TestTxNACK(t *testing.T) {
	f := newFixture(t, true)
	f.e.AttachI2C(0x44, hwsim.TargetFunc(func(w, r []byte) {}))
	b := f.bind(t, rcc.ClockHSI16)

	err := b.Tx(0x45, []byte{1}, nil)
	if !errors.Is(err, errcode.NACK) {
		t.Fatalf("want nack, got %v", err)
	}
	if got := err.Error(); got != "i2c.tx: nack: addr 0x45" {
		t.Fatalf("message = %q", got)
	}
	isr := f.e.Load(stm32l0.I2C1Base + stm32l0.I2C_ISR)
	if isr&(stm32l0.I2C_ISR_NACKF|stm32l0.I2C_ISR_STOPF) != 0 {
		t.Fatalf("flags left set: %#x", isr)
	}
	if err := b.Tx(0x44, nil, nil); err != nil {
		t.Fatalf("probe after nack: %v", err)
	}
	if err := b.Tx(0x45, nil, make([]byte, 2)); !errors.Is(err, errcode.NACK) {
		t.Fatalf("read nack: %v", err)
	}
}

func TestTxRejectsBadArgs(t *testing.T) {
	f := newFixture(t, true)
	b := f.bind(t, rcc.ClockHSI16)
	if err := b.Tx(0x80, nil, nil); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("10-bit addr: %v", err)
	}
	err := b.Tx(0x180, nil, nil)
	if !errors.Is(err, errcode.InvalidParams) || err.Error() != "i2c.tx: invalid_params: addr 0x180" {
		t.Fatalf("10-bit addr 0x180: %v", err)
	}
	if err := b.Tx(0x10, make([]byte, MaxTransfer+1), nil); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("long write: %v", err)
	}
}

func TestSetSpeed(t *testing.T) {
	f := newFixture(t, true)
	b := f.bind(t, rcc.ClockHSI16)
	if err := b.SetSpeed(400 * physic.KiloHertz); err != nil {
		t.Fatal(err)
	}
	if v := f.e.Peek(stm32l0.I2C1Base + stm32l0.I2C_TIMINGR); v != 0x10320309 {
		t.Fatalf("TIMINGR %#x", v)
	}
	if f.e.Peek(stm32l0.I2C1Base+stm32l0.I2C_CR1)&stm32l0.I2C_CR1_PE == 0 {
		t.Fatal("left disabled")
	}

	g := newFixture(t, true)
	apb := g.bind(t, rcc.ClockAPB)
	if err := apb.SetSpeed(100 * physic.KiloHertz); !errors.Is(err, errcode.Unsupported) {
		t.Fatalf("apb kernel: %v", err)
	}
}

func TestRelease(t *testing.T) {
	f := newFixture(t, true)
	b := f.bind(t, rcc.ClockHSI16)
	scl, sda := b.Release()
	if f.p.I2C1.Claimed() {
		t.Fatal("still claimed")
	}
	scl2, sda2 := scl.Release().IntoOutput(gpio.OpenDrain, gpio.PullUp), sda.Release().IntoOutput(gpio.OpenDrain, gpio.PullUp)
	if _, err := I2C1(f.p.I2C1, gpio.IntoAltFunc[gpio.AF1](scl2), gpio.IntoAltFunc[gpio.AF1](sda2), rcc.ClockHSI16, boardTiming, f.clocks, f.r); err != nil {
		t.Fatalf("rebind: %v", err)
	}
}
