package audio

type envelopeState int

const (
	stateIdle envelopeState = iota
	stateAttack
	stateDecay
)

// envelope is a linear attack and decay envelope.
type envelope struct {
	attackRate float64
	decayRate  float64

	val   float64
	state envelopeState
}

func (e *envelope) value() float64 {
	switch e.state {
	case stateIdle:
		return 0
	case stateAttack:
		e.val += e.attackRate
		if e.val >= 1 {
			e.val = 1
			e.state = stateDecay
		}
	case stateDecay:
		e.val -= e.decayRate
		if e.val <= 0 {
			e.val = 0
			e.state = stateIdle
		}
	}
	return e.val
}

// start restarts the envelope. Times are in seconds.
func (e *envelope) start(attack, decay, sampleRate float64) {
	e.val = 0
	e.state = stateAttack
	e.attackRate = 1.0 / (attack * sampleRate)
	e.decayRate = 1.0 / (decay * sampleRate)
}

// choke fades out within a millisecond.
func (e *envelope) choke(sampleRate float64) {
	if e.state == stateIdle {
		return
	}
	e.state = stateDecay
	e.decayRate = e.val / (0.001 * sampleRate)
}

func (e *envelope) idle() bool { return e.state == stateIdle }
