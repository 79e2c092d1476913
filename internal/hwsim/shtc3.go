package hwsim

import "nucleo-go/x/mathx"

// SHTC3 emulates the Sensirion SHTC3 humidity and temperature sensor at
// address 0x70. Any read returns one measurement: temperature word, CRC,
// humidity word, CRC.
type SHTC3 struct {
	TempMilliC int32
	RHx100     int32

	Commands []uint16 // every command word written, oldest first
}

// SHTC3Addr is the sensor's fixed 7-bit address.
const SHTC3Addr = 0x70

func (s *SHTC3) Transfer(w, r []byte) {
	for i := 0; i+1 < len(w); i += 2 {
		s.Commands = append(s.Commands, uint16(w[i])<<8|uint16(w[i+1]))
	}
	if len(r) == 0 {
		return
	}
	// T = -45 + 175 * raw / 2^16, RH = 100 * raw / 2^16.
	t := uint16(mathx.Clamp((int64(s.TempMilliC)+45_000)*65_536/175_000, 0, 0xFFFF))
	h := uint16(mathx.Clamp(int64(s.RHx100)*65_536/10_000, 0, 0xFFFF))
	frame := []byte{byte(t >> 8), byte(t), 0, byte(h >> 8), byte(h), 0}
	frame[2] = crc8(frame[0:2])
	frame[5] = crc8(frame[3:5])
	copy(r, frame)
}

// crc8 is the Sensirion checksum: polynomial 0x31, initial value 0xFF.
func crc8(p []byte) byte {
	c := byte(0xFF)
	for _, b := range p {
		c ^= b
		for i := 0; i < 8; i++ {
			if c&0x80 != 0 {
				c = c<<1 ^ 0x31
			} else {
				c <<= 1
			}
		}
	}
	return c
}
