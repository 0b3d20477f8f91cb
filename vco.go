package main

import (
	"math"

	"github.com/mrdg/cvsynth/synth"
)

const captureTicksPerTick = synth.CaptureRate / synth.TickRate

// vco stands in for the analog oscillator when no hardware is connected.
// It follows the VCO lane of the engine and reports every period to the
// tuner, the way the capture timer does.
type vco struct {
	engine *synth.Engine

	// detune in cents and tracking error as a ratio of octaves.
	detune   float64
	tracking float64

	phase    float64
	clock    float64
	lastEdge uint64
	last     synth.DACState
}

func newVCO(e *synth.Engine, detune, tracking float64) *vco {
	if tracking <= 0 {
		tracking = 1
	}
	return &vco{engine: e, detune: detune, tracking: tracking}
}

func (v *vco) frequency(cv uint16) float64 {
	octaves := (float64(cv) - middleCCV) / cvPerOctave * v.tracking
	return middleC * math.Pow(2, octaves+v.detune/1200)
}

// Tick implements synth.TickSource.
func (v *vco) Tick() synth.DACState {
	v.last = v.engine.Tick()
	inc := v.frequency(v.last.VCO) / synth.TickRate
	v.phase += inc
	v.clock += captureTicksPerTick
	if v.phase >= 1 {
		v.phase -= 1
		// Time of the rising edge within this tick.
		edge := uint64(v.clock - v.phase/inc*captureTicksPerTick)
		if v.lastEdge != 0 && edge > v.lastEdge {
			v.engine.Tuner().UpdatePitchMeasurement(uint32(edge - v.lastEdge))
		}
		v.lastEdge = edge
	}
	return v.last
}
