package synth

import "math/rand"

// Random is the shared noise source of the LFOs, the arpeggiator and the
// drum pattern generator. It is only used from the main loop.
type Random struct {
	r *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{r: rand.New(rand.NewSource(seed))}
}

func (r *Random) Byte() uint8 { return uint8(r.r.Uint32() >> 24) }

func (r *Random) Word() uint16 { return uint16(r.r.Uint32() >> 16) }
