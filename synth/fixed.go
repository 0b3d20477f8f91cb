package synth

// Fixed-point helpers shared by the envelopes, LFOs and the CV pipeline.
// All of them operate on the unsigned 16 bit and 8 bit ranges used by the
// control-rate code.

// mix interpolates between a and b. A balance of 0 returns a, 65535 is
// within one step of b.
func mix(a, b, balance uint16) uint16 {
	if b > a {
		return a + uint16((uint32(b-a)*uint32(balance))>>16)
	}
	return a - uint16((uint32(a-b)*uint32(balance))>>16)
}

// mixSigned is mix for signed 16 bit values such as pitches.
func mixSigned(a, b int16, balance uint16) int16 {
	d := int32(b) - int32(a)
	if d > 0 {
		return int16(int32(a) + int32((uint32(d)*uint32(balance))>>16))
	}
	return int16(int32(a) - int32((uint32(-d)*uint32(balance))>>16))
}

func u8Mix(a, b, balance uint8) uint8 {
	sum := uint16(a)*uint16(255-balance) + uint16(b)*uint16(balance)
	return uint8(sum >> 8)
}

func u8Mul(a, b uint8) uint16 {
	return uint16(a) * uint16(b)
}

func u8MulShift8(a, b uint8) uint8 {
	return uint8((uint16(a) * uint16(b)) >> 8)
}

func s8U8Mul(a int8, b uint8) int16 {
	return int16(a) * int16(b)
}

func s8U8MulShift8(a int8, b uint8) int8 {
	return int8((int16(a) * int16(b)) >> 8)
}

func s16U8MulShift8(a int16, b uint8) int16 {
	return int16((int32(a) * int32(b)) >> 8)
}

func u16U8MulShift8(a uint16, b uint8) uint16 {
	return uint16((uint32(a) * uint32(b)) >> 8)
}

// interpolateIncreasing reads a monotonic 257 entry table at a 8.8 fixed
// point position.
func interpolateIncreasing(table []uint16, phase uint16) uint16 {
	i := phase >> 8
	a, b := table[i], table[i+1]
	return a + u16U8MulShift8(b-a, uint8(phase))
}

// clip12 saturates a value to the 12 bit DAC range.
func clip12(v int32) uint16 {
	if v < 0 {
		return 0
	}
	if v > 4095 {
		return 4095
	}
	return uint16(v)
}
