// Package cortexm wraps the Cortex-M0+ core primitives the board needs:
// the idle wait, exception handler installation and the fatal halt.
package cortexm

import "sync"

// Exception identifies a core exception this package dispatches.
type Exception uint8

const (
	SysTick Exception = iota
	HardFault
	Default
	numExceptions
)

func (e Exception) String() string {
	switch e {
	case SysTick:
		return "systick"
	case HardFault:
		return "hardfault"
	case Default:
		return "default"
	}
	return "unknown"
}

var (
	mu       sync.Mutex
	handlers [numExceptions]func()
)

// Handle installs fn for ex, replacing any previous handler.
//
// On the target only SysTick is routed here. HardFault and the default
// vector belong to the TinyGo runtime, which prints and halts by itself, so
// handlers for them run only on the host where Raise dispatches them.
func Handle(ex Exception, fn func()) {
	if ex >= numExceptions {
		return
	}
	mu.Lock()
	handlers[ex] = fn
	mu.Unlock()
}

// dispatch runs the installed handler. Faults with no handler halt.
func dispatch(ex Exception) {
	mu.Lock()
	fn := handlers[ex]
	mu.Unlock()
	if fn != nil {
		fn()
		return
	}
	if ex != SysTick {
		Halt("unhandled " + ex.String())
	}
}
