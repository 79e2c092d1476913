package power

import (
	"errors"
	"testing"

	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/reg"
)

type fakeGate struct{ pwr, rtc int }

func (g *fakeGate) EnablePWR() { g.pwr++ }
func (g *fakeGate) EnableRTC() { g.rtc++ }

func newPower(t *testing.T) (*reg.Sim, *Power, *fakeGate) {
	t.Helper()
	s := reg.NewSim()
	s.Preset(stm32l0.PWRBase+stm32l0.PWR_CR, stm32l0.PWR_CR_Reset)
	g := &fakeGate{}
	return s, Constrain(stm32l0.New(s).PWR, g), g
}

func TestConstrainEnablesInterfaceClock(t *testing.T) {
	s, p, g := newPower(t)
	if g.pwr != 1 {
		t.Fatalf("EnablePWR called %d times", g.pwr)
	}
	if p.VCore() != Range2 || p.VDD() != VddHigh || p.RTCDomainEnabled() {
		t.Fatalf("unexpected reset state %v %v %v", p.VCore(), p.VDD(), p.RTCDomainEnabled())
	}
	if len(s.Trace()) != 0 {
		t.Fatal("constrain wrote PWR registers")
	}
}

func TestIntoVCoreRange(t *testing.T) {
	for _, r := range []VCoreRange{Range1, Range2, Range3} {
		s, p, _ := newPower(t)
		if err := p.IntoVCoreRange(r); err != nil {
			t.Fatalf("%v: %v", r, err)
		}
		cr := s.Peek(stm32l0.PWRBase + stm32l0.PWR_CR)
		if vos := cr >> stm32l0.PWR_CR_VOS_Pos & stm32l0.PWR_CR_VOS_Msk; vos != uint32(r) {
			t.Fatalf("%v: VOS=%d", r, vos)
		}
		if p.VCore() != r {
			t.Fatalf("VCore()=%v", p.VCore())
		}
		// Only the VOS field may change.
		if diff := s.Changed(stm32l0.PWRBase + stm32l0.PWR_CR); diff&^(stm32l0.PWR_CR_VOS_Msk<<stm32l0.PWR_CR_VOS_Pos) != 0 {
			t.Fatalf("%v: touched bits %#x", r, diff)
		}
	}
}

func TestIntoVCoreRangeRejects(t *testing.T) {
	_, p, _ := newPower(t)
	if err := p.IntoVCoreRange(VCoreRange(0)); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("range 0: %v", err)
	}
	if err := p.SetVDD(VDD(7)); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("vdd 7: %v", err)
	}
	if err := p.SetVDD(VddLow); err != nil || p.VDD() != VddLow {
		t.Fatalf("set vdd low: %v", err)
	}
	if err := p.IntoVCoreRange(Range1); !errors.Is(err, errcode.Unsupported) {
		t.Fatalf("range 1 on low vdd: %v", err)
	}
	if p.VCore() != Range2 {
		t.Fatalf("range changed on error: %v", p.VCore())
	}
	if err := p.IntoVCoreRange(Range2); err != nil {
		t.Fatalf("range 2 on low vdd: %v", err)
	}
}

func TestIntoVCoreRangeRegulatorBusy(t *testing.T) {
	s, p, _ := newPower(t)
	s.Preset(stm32l0.PWRBase+stm32l0.PWR_CSR, stm32l0.PWR_CSR_VOSF)
	err := p.IntoVCoreRange(Range1)
	if !errors.Is(err, errcode.Timeout) {
		t.Fatalf("want timeout, got %v", err)
	}
	if len(s.WritesTo(stm32l0.PWRBase+stm32l0.PWR_CR)) != 0 {
		t.Fatal("VOS written while VOSF set")
	}
}

func TestEnableRTCDomainOnce(t *testing.T) {
	s, p, g := newPower(t)
	p.EnableRTCDomain()
	p.EnableRTCDomain()
	if g.rtc != 1 || !p.RTCDomainEnabled() {
		t.Fatalf("rtc gate %d enabled %v", g.rtc, p.RTCDomainEnabled())
	}
	if s.Peek(stm32l0.PWRBase+stm32l0.PWR_CR)&stm32l0.PWR_CR_DBP == 0 {
		t.Fatal("DBP not set")
	}
}
