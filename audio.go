package main

import (
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/mrdg/cvsynth/audio"
	"github.com/mrdg/cvsynth/synth"
	wav "github.com/youpy/go-wav"
)

const (
	renderRate       = audio.SampleRate
	renderBlock      = 32
	maxRenderSeconds = 600
	fullScale        = 1<<15 - 1
)

// Nominal VCO response, matching the factory calibration.
const (
	cvPerOctave = 500
	middleCCV   = 2048
	middleC     = 261.625
	vcfQ        = 2
)

func cvFrequency(cv uint16) float64 {
	return middleC * math.Pow(2, (float64(cv)-middleCCV)/cvPerOctave)
}

// monitor turns the DAC lanes into sound: a pulse and saw oscillator
// following the VCO and PW lanes, a resonant lowpass following VCF and an
// amplifier following VCA.
type monitor struct {
	sampleRate float64
	phase      float64
	vcf        biquad.Section
	cv         int
}

func newMonitor(sampleRate float64) *monitor {
	return &monitor{sampleRate: sampleRate, cv: -1}
}

func (m *monitor) cutoff(cv uint16) float64 {
	return math.Min(40*math.Pow(2, 9*float64(cv)/4095), 0.45*m.sampleRate)
}

func (m *monitor) next(s synth.DACState) float64 {
	m.phase += cvFrequency(s.VCO) / m.sampleRate
	m.phase -= math.Floor(m.phase)

	width := 0.5 - 0.45*float64(s.PW)/4095
	pulse := -1.0
	if m.phase < width {
		pulse = 1
	}
	x := 0.5*(2*m.phase-1) + 0.5*pulse

	if int(s.VCF) != m.cv {
		m.vcf.Coefficients = design.Lowpass(m.cutoff(s.VCF), vcfQ, m.sampleRate)
		m.cv = int(s.VCF)
	}
	return m.vcf.ProcessSample(x) * float64(s.VCA) / 4095
}

// snapshot copies the persistent state of an engine into another one.
func snapshot(dst, src *synth.Engine) {
	var (
		system   synth.SystemSettings
		patch    synth.Patch
		settings synth.SequencerSettings
		seq      synth.Sequence
	)
	src.Update(func(e *synth.Engine) {
		system = e.System().SystemSettings
		patch = e.Controller().Voice().Patch()
		settings = e.Controller().Settings()
		seq = e.Controller().Sequence()
	})
	dst.Update(func(e *synth.Engine) {
		e.System().SystemSettings = system
		e.Controller().Voice().SetPatch(patch)
		e.Controller().SetSettings(settings)
		e.Controller().SetSequence(seq)
	})
}

// renderWAV plays the sequence of src on a copy of the engine and writes
// a 16 bit stereo WAV file: the monitored voice on the left and the drum
// kit on the right.
func renderWAV(w io.Writer, src *synth.Engine, seconds float64, seed int64) error {
	if seconds <= 0 || seconds > maxRenderSeconds {
		return fmt.Errorf("render length must be in (0, %d] seconds, got %v", maxRenderSeconds, seconds)
	}
	e := synth.NewEngine(nil, seed)
	kit := audio.NewKit(renderRate)
	e.SetDrumVoice(kit)
	snapshot(e, src)
	e.Update(func(e *synth.Engine) {
		// Nothing reads the MIDI output of the copy.
		e.System().MidiOutMode = 0
		c := e.Controller()
		if !c.InternalClock() {
			c.SetValue(synth.SeqTempo, 120)
		}
		if c.SequenceLength() > 0 {
			c.Start()
		}
	})

	n := int(seconds * renderRate)
	ww := wav.NewWriter(w, uint32(n), 2, renderRate, 16)
	voice := newMonitor(renderRate)
	advances := synth.ControlRate / renderRate

	var (
		acc     float64
		s       synth.DACState
		drums   = make([]float64, renderBlock)
		samples = make([]wav.Sample, 0, renderBlock)
	)
	for done := 0; done < n; {
		size := renderBlock
		if n-done < size {
			size = n - done
		}
		samples = samples[:0]
		for i := 0; i < size; i++ {
			acc += advances
			for acc >= 1 {
				s = e.Advance()
				acc--
			}
			samples = append(samples, wav.Sample{Values: [2]int{toPCM(voice.next(s)), 0}})
		}
		block := drums[:size]
		for i := range block {
			block[i] = 0
		}
		kit.Render(block)
		for i, v := range block {
			samples[i].Values[1] = toPCM(v)
		}
		if err := ww.WriteSamples(samples); err != nil {
			return fmt.Errorf("write samples: %w", err)
		}
		done += size
	}
	return nil
}

func toPCM(v float64) int {
	v = math.Max(-1, math.Min(1, v))
	return int(math.Round(v * fullScale))
}

// voiceSource plays the monitored voice on the audio output. It also
// drives the tick source from the audio callback.
type voiceSource struct {
	ticks         synth.TickSource
	ticksPerFrame float64
	phase         float64
	last          synth.DACState
	voice         *monitor
}

func newVoiceSource(ticks synth.TickSource) *voiceSource {
	return &voiceSource{
		ticks:         ticks,
		ticksPerFrame: synth.TickRate / audio.SampleRate,
		voice:         newMonitor(audio.SampleRate),
	}
}

func (v *voiceSource) Process(samples [][]float32) {
	if len(samples) == 0 {
		return
	}
	for i := range samples[0] {
		v.phase += v.ticksPerFrame
		for v.phase >= 1 {
			v.last = v.ticks.Tick()
			v.phase--
		}
		x := float32(0.5 * v.voice.next(v.last))
		for _, ch := range samples {
			ch[i] += x
		}
	}
}
