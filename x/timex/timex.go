// Package timex converts between clock cycles and wall time.
package timex

import "time"

// PeriodFromHz returns the period of one cycle at hz. hz == 0 is coerced to
// 1 to avoid division by zero.
func PeriodFromHz(hz uint32) time.Duration {
	if hz == 0 {
		hz = 1
	}
	return time.Second / time.Duration(hz)
}

// Cycles returns how long n cycles take at hz, without the rounding error
// of multiplying PeriodFromHz. hz == 0 is coerced to 1.
func Cycles(n uint64, hz uint32) time.Duration {
	if hz == 0 {
		hz = 1
	}
	sec := n / uint64(hz)
	rem := n % uint64(hz)
	return time.Duration(sec)*time.Second + time.Duration(rem)*time.Second/time.Duration(hz)
}
