//go:build stm32l0

package main

import "nucleo-go/reg"

func platformIO() reg.IO { return reg.MMIO{} }
