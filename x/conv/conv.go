// Package conv formats integers into caller-owned buffers without fmt or
// strconv, which keeps them out of small flash images.
package conv

// AppendUint appends the decimal form of n.
func AppendUint(dst []byte, n uint64) []byte {
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(dst, tmp[i:]...)
}

// AppendInt appends the decimal form of n.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		// Negate in unsigned space so the minimum int64 survives.
		u := uint64(^n) + 1
		return AppendUint(append(dst, '-'), u)
	}
	return AppendUint(dst, uint64(n))
}

// AppendHex appends n as lowercase hex, zero-padded to digits (1..8).
func AppendHex(dst []byte, n uint32, digits int) []byte {
	const hexd = "0123456789abcdef"
	if digits < 1 {
		digits = 1
	}
	if digits > 8 {
		digits = 8
	}
	for s := (digits - 1) * 4; s >= 0; s -= 4 {
		dst = append(dst, hexd[n>>uint(s)&0xF])
	}
	return dst
}

// AppendFixed appends v scaled down by 10^decimals with exactly decimals
// fractional digits: AppendFixed(b, 21500, 3) gives "21.500".
func AppendFixed(dst []byte, v int64, decimals int) []byte {
	if decimals <= 0 {
		return AppendInt(dst, v)
	}
	var u uint64
	if v < 0 {
		dst = append(dst, '-')
		u = uint64(^v) + 1
	} else {
		u = uint64(v)
	}
	pow := uint64(1)
	for i := 0; i < decimals; i++ {
		pow *= 10
	}
	dst = AppendUint(dst, u/pow)
	dst = append(dst, '.')
	frac := u % pow
	for pow /= 10; pow > 0; pow /= 10 {
		dst = append(dst, byte('0'+frac/pow%10))
	}
	return dst
}
