package synth

// Segment is a stage of an envelope.
type Segment int

const (
	SegmentAttack Segment = iota
	SegmentDecay
	SegmentSustain
	SegmentRelease
	SegmentDead
	numSegments
)

// Envelope is an ADSR generator with exponential segments. Each segment
// runs a 32 bit phase accumulator from its start value to its target.
type Envelope struct {
	increment [numSegments]uint32
	target    [numSegments]uint16

	segment Segment
	a, b    uint16
	value   uint16
	phase   uint32
}

func NewEnvelope() *Envelope {
	var e Envelope
	e.Init()
	return &e
}

func (e *Envelope) Init() {
	e.target[SegmentAttack] = 65535
	e.target[SegmentRelease] = 0
	e.target[SegmentDead] = 0
	e.increment[SegmentSustain] = 0
	e.increment[SegmentDead] = 0
	e.segment = SegmentDead
	e.value = 0
}

// Update sets the segment times and the sustain level from 8 bit values.
func (e *Envelope) Update(attack, decay, sustain, release uint8) {
	e.increment[SegmentAttack] = envIncrements[attack]
	e.increment[SegmentDecay] = envIncrements[decay]
	e.increment[SegmentRelease] = envIncrements[release]
	e.target[SegmentDecay] = uint16(sustain) << 8
	e.target[SegmentSustain] = uint16(sustain) << 8
}

// Trigger jumps to a segment. Attack always restarts from zero.
func (e *Envelope) Trigger(s Segment) {
	if s == SegmentDead || s == SegmentAttack {
		e.value = 0
	}
	e.a = e.value
	e.b = e.target[s]
	e.segment = s
	e.phase = 0
}

func (e *Envelope) Render() uint16 {
	increment := e.increment[e.segment]
	e.phase += increment
	if e.phase < increment {
		e.value = e.b
		e.Trigger(e.segment + 1)
	}
	if e.increment[e.segment] != 0 {
		e.value = mix(e.a, e.b, interpolateIncreasing(envExpo[:], uint16(e.phase>>16)))
	}
	return e.value
}

func (e *Envelope) Segment() Segment { return e.segment }

func (e *Envelope) Value() uint16 { return e.value }

// Gate reports whether the envelope is in attack, decay or sustain.
func (e *Envelope) Gate() bool { return e.segment < SegmentRelease }
