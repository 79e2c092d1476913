//go:build !stm32l0

package cortexm

import (
	"testing"
	"time"

	"nucleo-go/errcode"
)

func expectHalt(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		e, ok := recover().(*errcode.E)
		if !ok || e.C != errcode.Halted {
			t.Fatalf("want halt, got %v", e)
		}
	}()
	fn()
}

func TestRaiseRunsHandlerAndWakes(t *testing.T) {
	defer Handle(SysTick, nil)
	ticks := 0
	Handle(SysTick, func() { ticks++ })

	done := make(chan struct{})
	go func() {
		WaitForInterrupt()
		close(done)
	}()
	Raise(SysTick)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForInterrupt did not return")
	}
	if ticks != 1 {
		t.Fatalf("handler ran %d times", ticks)
	}
}

func TestPendCoalesces(t *testing.T) {
	Pend()
	Pend()
	WaitForInterrupt()
	select {
	case <-wake:
		t.Fatal("second pend was not coalesced")
	default:
	}
}

func TestUnhandledFaultHalts(t *testing.T) {
	expectHalt(t, func() { dispatch(HardFault) })
	// SysTick with no handler only wakes.
	dispatch(SysTick)
}

func TestInstalledFaultHandlerRuns(t *testing.T) {
	defer Handle(HardFault, nil)
	var got string
	Handle(HardFault, func() { got = "hardfault" })
	Raise(HardFault)
	WaitForInterrupt()
	if got != "hardfault" {
		t.Fatal("fault handler not dispatched")
	}
}

func TestHalt(t *testing.T) {
	expectHalt(t, func() { Halt("clock init failed") })
}
