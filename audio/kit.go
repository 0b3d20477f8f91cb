package audio

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/youpy/go-wav"
)

// Drum parts, in the order used by the drum machine.
const (
	BassDrum = iota
	SnareDrum
	HiHat
	NumParts
)

const (
	numVoices        = 8
	triggerQueueSize = 64
	attackTime       = 0.0005
)

// Controllers of the kit received on the drum channel.
const (
	ccToneBase  = 20
	ccBalance   = 23
	ccBandwidth = 24
)

// Section Qs of a fourth order Butterworth lowpass.
var butterworthQ = [2]float64{0.5412, 1.3066}

// Decay range of each part, in seconds.
var decayRanges = [NumParts][2]float64{
	BassDrum:  {0.08, 0.8},
	SnareDrum: {0.05, 0.4},
	HiHat:     {0.02, 0.3},
}

type trigger struct {
	part int
	gain float64
}

// Kit plays a sample for each drum part. Trigger and the parameter setters
// may be called concurrently with Render.
type Kit struct {
	sampleRate float64

	sounds   [NumParts]atomic.Pointer[Sound]
	decay    [NumParts]atomic.Value
	level    atomic.Value
	lowpass  atomic.Pointer[[]biquad.Coefficients]
	triggers chan trigger
	dropped  atomic.Uint64

	// render state
	voices  [numVoices]voice
	mix     []float64
	out     []float64
	lp      *biquad.Chain
	applied *[]biquad.Coefficients
	stolen  uint64
}

// NewKit returns a kit playing the built-in sounds.
func NewKit(sampleRate float64) *Kit {
	k := &Kit{
		sampleRate: sampleRate,
		triggers:   make(chan trigger, triggerQueueSize),
	}
	for part, snd := range builtinSounds(sampleRate) {
		k.sounds[part].Store(snd)
		k.MorphPatch(uint8(part), 128)
	}
	k.SetBalance(128)
	k.SetBandwidth(255)
	k.applied = k.lowpass.Load()
	k.lp = biquad.NewChain(*k.applied)
	return k
}

// SetSound replaces the sample of a part.
func (k *Kit) SetSound(part int, snd *Sound) error {
	if part < 0 || part >= NumParts {
		return fmt.Errorf("invalid drum part: %d", part)
	}
	k.sounds[part].Store(snd)
	return nil
}

func (k *Kit) Sound(part int) *Sound { return k.sounds[part%NumParts].Load() }

// Trigger starts a part with a level in 0..255. Triggers are dropped when
// the kit is not rendered.
func (k *Kit) Trigger(instrument, level uint8) {
	if int(instrument) >= NumParts {
		return
	}
	select {
	case k.triggers <- trigger{part: int(instrument), gain: float64(level) / 255}:
	default:
		if n := k.dropped.Add(1); n == 1 || n%triggerQueueSize == 0 {
			log.Printf("drum kit: trigger queue full, %d triggers dropped", n)
		}
	}
}

// MorphPatch sets the decay of a part.
func (k *Kit) MorphPatch(instrument, tone uint8) {
	if int(instrument) >= NumParts {
		return
	}
	r := decayRanges[instrument]
	k.decay[instrument].Store(r[0] * math.Pow(r[1]/r[0], float64(tone)/255))
}

// SetBalance sets the level of the kit.
func (k *Kit) SetBalance(balance uint8) {
	k.level.Store(float64(balance) / 255)
}

// SetBandwidth sets the cutoff of the output lowpass filter, from 200Hz
// to 20kHz. The cutoff stays below the Nyquist frequency.
func (k *Kit) SetBandwidth(bandwidth uint8) {
	cutoff := math.Min(200*math.Pow(100, float64(bandwidth)/255), 0.45*k.sampleRate)
	coeffs := make([]biquad.Coefficients, len(butterworthQ))
	for i, q := range butterworthQ {
		coeffs[i] = design.Lowpass(cutoff, q, k.sampleRate)
	}
	k.lowpass.Store(&coeffs)
}

func (k *Kit) SetParameterCc(cc, value uint8) {
	switch {
	case cc >= ccToneBase && cc < ccToneBase+NumParts:
		k.MorphPatch(cc-ccToneBase, value<<1)
	case cc == ccBalance:
		k.SetBalance(value << 1)
	case cc == ccBandwidth:
		k.SetBandwidth(value << 1)
	}
}

// Render adds the output of the kit to a mono buffer.
func (k *Kit) Render(buf []float64) {
drain:
	for {
		select {
		case t := <-k.triggers:
			k.start(t)
		default:
			break drain
		}
	}

	if cap(k.mix) < len(buf) {
		k.mix = make([]float64, len(buf))
	}
	mix := k.mix[:len(buf)]
	for i := range mix {
		mix[i] = 0
	}
	for i := range k.voices {
		if !k.voices[i].free() {
			k.voices[i].process(mix)
		}
	}

	if coeffs := k.lowpass.Load(); coeffs != k.applied {
		k.lp.UpdateCoefficients(*coeffs, 1)
		k.applied = coeffs
	}
	k.lp.ProcessBlock(mix)
	level := k.level.Load().(float64)
	for i, x := range mix {
		buf[i] += x * level
	}
}

// Process renders the kit into every channel of a non-interleaved buffer.
func (k *Kit) Process(samples [][]float32) {
	if len(samples) == 0 {
		return
	}
	if cap(k.out) < len(samples[0]) {
		k.out = make([]float64, len(samples[0]))
	}
	buf := k.out[:len(samples[0])]
	for i := range buf {
		buf[i] = 0
	}
	k.Render(buf)
	for _, ch := range samples {
		for i, v := range buf {
			ch[i] += float32(v)
		}
	}
}

func (k *Kit) start(t trigger) {
	snd := k.sounds[t.part].Load()
	if snd == nil || len(snd.buf) == 0 {
		return
	}
	// A part chokes its previous hit.
	for i := range k.voices {
		if v := &k.voices[i]; !v.free() && v.part == t.part {
			v.env.choke(k.sampleRate)
		}
	}
	v := k.findFreeVoice()
	if v == nil {
		k.stolen++
		if k.stolen == 1 || k.stolen%numVoices == 0 {
			log.Printf("drum kit: no free voice, %d hits dropped", k.stolen)
		}
		return
	}
	v.part = t.part
	v.buf = snd.buf
	v.pos = 0
	v.gain = t.gain
	v.env.start(attackTime, k.decay[t.part].Load().(float64), k.sampleRate)
}

func (k *Kit) findFreeVoice() *voice {
	for i := range k.voices {
		if k.voices[i].free() {
			return &k.voices[i]
		}
	}
	return nil
}

type voice struct {
	part int
	buf  []float64
	pos  int
	gain float64
	env  envelope
}

func (v *voice) free() bool { return v.buf == nil }

func (v *voice) process(buf []float64) {
	n := len(buf)
	if remaining := len(v.buf) - v.pos; remaining < n {
		n = remaining
	}
	for i := range buf[:n] {
		buf[i] += v.buf[v.pos] * v.env.value() * v.gain
		v.pos++
	}
	if v.pos >= len(v.buf) || v.env.idle() {
		v.buf = nil
		v.pos = 0
	}
}

// Sound is a mono sample.
type Sound struct {
	buf  []float64
	file string
}

func (s *Sound) Len() int { return len(s.buf) }

func (s *Sound) String() string {
	if s.file == "" {
		return "built-in"
	}
	return s.file
}

// LoadSound reads the first channel of a WAV file.
func LoadSound(file string) (*Sound, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snd := Sound{file: file}
	r := wav.NewReader(f)
	for {
		samples, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		for _, sample := range samples {
			snd.buf = append(snd.buf, r.FloatValue(sample, 0))
		}
	}
	return &snd, nil
}
