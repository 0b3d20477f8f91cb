package synth

import "sync/atomic"

// DACState is one sample of the four control voltages, 12 bit each, and
// the gate output line.
type DACState struct {
	VCO, PW, VCF, VCA uint16
	Gate              bool
}

// CV returns the control voltage of a lane: 0 VCO, 1 PW, 2 VCF, 3 VCA.
func (s DACState) CV(lane int) uint16 {
	switch lane {
	case 0:
		return s.VCO
	case 1:
		return s.PW
	case 2:
		return s.VCF
	default:
		return s.VCA
	}
}

const dacRingSize = 4

// dacRing is a lock-free spsc queue of DAC samples. The main loop is the
// only writer of the write index and the slots it points to, the tick
// context is the only writer of the read index. One slot is always kept
// free so readable+writable is dacRingSize-1.
type dacRing struct {
	slots       [dacRingSize]DACState
	read, write atomic.Uint32
}

func (r *dacRing) writable() int {
	return int((r.read.Load() - r.write.Load() - 1) & (dacRingSize - 1))
}

func (r *dacRing) readable() int {
	return int((r.write.Load() - r.read.Load()) & (dacRingSize - 1))
}

// slot returns the sample at the write index. Only valid while writable.
func (r *dacRing) slot() *DACState {
	return &r.slots[r.write.Load()]
}

func (r *dacRing) commit() {
	r.write.Store((r.write.Load() + 1) & (dacRingSize - 1))
}

// pop returns the next sample, or false when the ring is empty.
func (r *dacRing) pop() (DACState, bool) {
	read := r.read.Load()
	if read == r.write.Load() {
		return DACState{}, false
	}
	s := r.slots[read]
	r.read.Store((read + 1) & (dacRingSize - 1))
	return s, true
}
