//go:build stm32l0

package cortexm

import "device/arm"

// WaitForInterrupt executes wfi. Any enabled interrupt wakes the core, so
// callers must re-check their condition after waking.
func WaitForInterrupt() { arm.Asm("wfi") }

// Pend is a no-op on the target: exceptions wake the core by themselves.
func Pend() {}

// Halt reports reason and parks the core with interrupts disabled.
func Halt(reason string) {
	println("[fault]", reason)
	arm.DisableInterrupts()
	for {
		arm.Asm("wfi")
	}
}

// HardFault_Handler and Default_Handler stay with the TinyGo runtime.
//
//export SysTick_Handler
func sysTickHandler() { dispatch(SysTick) }
