package synth

type LfoShape uint8

const (
	LfoTriangle LfoShape = iota
	LfoSquare
	LfoRampUp
	LfoRampDown
	LfoSampleAndHold
	LfoBernoulli
	LfoLines
	LfoNoise
)

var lfoShapeNames = [...]string{
	"triangle", "square", "ramp-up", "ramp-down", "s&h", "bernoulli", "lines", "noise",
}

func (s LfoShape) String() string {
	if int(s) < len(lfoShapeNames) {
		return lfoShapeNames[s]
	}
	return "unknown"
}

// Increment limits of the phase locked loop, 15 to 960 BPM.
const (
	minPllIncrement = 109523
	maxPllIncrement = 7009509
)

// Lfo is a low frequency oscillator driven by a 32 bit phase accumulator.
type Lfo struct {
	shape         LfoShape
	phase         uint32
	increment     uint32
	previousPhase uint16
	value         uint16
	nextValue     uint16
	looped        bool
	random        *Random
}

func NewLfo(random *Random) *Lfo {
	return &Lfo{random: random}
}

func (l *Lfo) SetShape(s LfoShape) { l.shape = s }

func (l *Lfo) SetPhaseIncrement(increment uint32) { l.increment = increment }

func (l *Lfo) PhaseIncrement() uint32 { return l.increment }

func (l *Lfo) Render() uint16 {
	var value uint16
	switch l.shape {
	case LfoTriangle:
		if l.phase&0x80000000 != 0 {
			value = uint16(l.phase >> 15)
		} else {
			value = ^uint16(l.phase >> 15)
		}
	case LfoSquare:
		if l.phase&0x80000000 != 0 {
			value = 65535
		}
	case LfoRampUp:
		value = uint16(l.phase >> 16)
	case LfoRampDown:
		value = ^uint16(l.phase >> 16)
	case LfoSampleAndHold:
		if l.looped {
			l.value = l.random.Word()
		}
		value = l.value
	case LfoBernoulli:
		if l.looped {
			l.value = 0
			if l.random.Byte()&1 != 0 {
				l.value = 65535
			}
		}
		value = l.value
	case LfoLines:
		if l.looped {
			l.value = l.nextValue
			l.nextValue = l.random.Word()
		}
		value = mix(l.value, l.nextValue, uint16(l.phase>>16))
	case LfoNoise:
		value = l.random.Word()
	}
	l.phase += l.increment
	l.looped = l.phase < l.increment
	return value
}

// SetTargetPhase nudges the increment towards a phase and a rate of one
// cycle per 24 calls. It is called once per clock pulse to lock the LFO
// to the tempo.
func (l *Lfo) SetTargetPhase(target uint16) {
	phase := uint16(l.phase >> 16)
	rateError := int16(65536/24 - (int32(phase) - int32(l.previousPhase)))
	phaseError := int16(int32(target) - int32(phase))
	correction := (int64(rateError) + int64(phaseError)) << 8

	increment := int64(l.increment) + correction
	if increment < minPllIncrement {
		increment = minPllIncrement
	}
	if increment > maxPllIncrement {
		increment = maxPllIncrement
	}
	l.increment = uint32(increment)
	l.previousPhase = phase
}
