//go:build stm32l0

package reg

import (
	"runtime/volatile"
	"unsafe"
)

// MMIO performs volatile accesses at absolute bus addresses.
type MMIO struct{}

func (MMIO) Load(addr uint32) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(uintptr(addr))))
}

func (MMIO) Store(addr, v uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(uintptr(addr))), v)
}
