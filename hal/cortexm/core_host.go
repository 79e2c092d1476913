//go:build !stm32l0

package cortexm

import "nucleo-go/errcode"

var wake = make(chan struct{}, 1)

// Raise runs the handler for ex and wakes a pending WaitForInterrupt, as the
// core does when an enabled exception fires. Host emulation calls it.
func Raise(ex Exception) {
	dispatch(ex)
	Pend()
}

// Pend marks a wake-up event without running a handler.
func Pend() {
	select {
	case wake <- struct{}{}:
	default:
	}
}

// WaitForInterrupt blocks until any exception has been raised since the
// last call. Callers must re-check their condition after waking.
func WaitForInterrupt() { <-wake }

// Halt reports reason and stops. On the host it panics so tests can observe
// it.
func Halt(reason string) {
	println("[fault]", reason)
	panic(errcode.New(errcode.Halted, "cortexm.halt", reason))
}
