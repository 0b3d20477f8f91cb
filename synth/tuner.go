package synth

import (
	"fmt"
	"log"
	"math"
	"sync/atomic"
)

type TuningState uint8

const (
	TuningOff TuningState = iota
	TuningProbingC1
	TuningProbingC3
	TuningProbingC5
	TuningComputingResponse
	TuningAbort
)

func (s TuningState) String() string {
	switch s {
	case TuningOff:
		return "off"
	case TuningProbingC1:
		return "probing C1"
	case TuningProbingC3:
		return "probing C3"
	case TuningProbingC5:
		return "probing C5"
	case TuningComputingResponse:
		return "computing"
	case TuningAbort:
		return "abort"
	}
	return fmt.Sprintf("TuningState(%d)", uint8(s))
}

// CaptureRate is the rate of the timer measuring the oscillator period.
const CaptureRate = 20000000.0 / 8

// The first measurements of each probe are discarded while the oscillator
// settles.
const discardedMeasurements = 8

type probe struct {
	vco          uint16
	measurements uint64
}

var probes = [...]probe{
	TuningProbingC1: {vco: 1048, measurements: 8},
	TuningProbingC3: {vco: 2048, measurements: 16},
	TuningProbingC5: {vco: 3048, measurements: 32},
}

// Tuner calibrates the VCO. It locks the voice on three CVs, measures the
// resulting frequencies and derives the offset and scales of the VCO CV.
//
// Measurements come from the capture context through
// UpdatePitchMeasurement, everything else runs on the main loop.
type Tuner struct {
	state  TuningState
	voice  *Voice
	system *System

	// Number of measurements in the top 8 bits, sum of the periods in the
	// low 56 bits.
	measurements atomic.Uint64

	pitch [TuningComputingResponse]float64
}

const measurementSumBits = 56

func NewTuner(voice *Voice, system *System) *Tuner {
	return &Tuner{voice: voice, system: system}
}

func (t *Tuner) State() TuningState { return t.state }

func (t *Tuner) setState(s TuningState) {
	t.state = s
	t.measurements.Store(0)
}

func (t *Tuner) Start() { t.setState(TuningProbingC1) }

// Abort ends tuning at the next Refresh and returns the voice to normal.
func (t *Tuner) Abort() {
	if t.state != TuningOff {
		t.state = TuningAbort
	}
}

// UpdatePitchMeasurement records one oscillator period, in ticks of the
// capture timer.
func (t *Tuner) UpdatePitchMeasurement(period uint32) {
	for {
		old := t.measurements.Load()
		count := old >> measurementSumBits
		if count == 0xff {
			return
		}
		sum := old & (1<<measurementSumBits - 1)
		count++
		if count > discardedMeasurements {
			sum += uint64(period)
		}
		if t.measurements.CompareAndSwap(old, count<<measurementSumBits|sum) {
			return
		}
	}
}

func (t *Tuner) readMeasurements() (count int, sum uint64) {
	m := t.measurements.Load()
	return int(m >> measurementSumBits), m & (1<<measurementSumBits - 1)
}

// pitch returns the measured frequency in Hz.
func pitchOf(count int, sum uint64) float64 {
	if sum == 0 {
		return 0
	}
	return float64(count-discardedMeasurements) * CaptureRate / float64(sum)
}

func (t *Tuner) Refresh() {
	switch t.state {
	case TuningProbingC1, TuningProbingC3, TuningProbingC5:
		p := probes[t.state]
		t.voice.Lock(p.vco, 0, 4095, 128)
		count, sum := t.readMeasurements()
		if count < discardedMeasurements+int(p.measurements) {
			return
		}
		t.pitch[t.state] = pitchOf(count, sum)
		t.setState(t.state + 1)

	case TuningComputingResponse:
		offset, low, high, err := calibration(t.pitch[TuningProbingC1], t.pitch[TuningProbingC3], t.pitch[TuningProbingC5])
		if err != nil {
			log.Printf("tuning failed: %v", err)
		} else {
			log.Printf("tuning: offset %d, scale %d/%d", offset, low, high)
			logError("save calibration", t.system.SetCalibration(offset, low, high))
		}
		t.voice.Unlock()
		t.state = TuningOff

	case TuningAbort:
		t.voice.Unlock()
		t.state = TuningOff
	}
}

// calibration computes the VCO CV offset and scales from the frequencies
// measured at the three probe CVs, which are one volt apart.
func calibration(c1, c3, c5 float64) (offset, scaleLow, scaleHigh uint16, err error) {
	const (
		cvPerOctave     = 2 * 64000.0 * math.Ln2 / 3
		pitchPerLogUnit = 128.0 * 12.0 / math.Ln2
		middleC         = 261.625
	)
	for _, f := range []float64{c1, c3, c5} {
		if !(f > 0) || math.IsInf(f, 0) {
			return 0, 0, 0, fmt.Errorf("invalid frequency %v", f)
		}
	}
	low := cvPerOctave / math.Log(c3/c1)
	high := cvPerOctave / math.Log(c5/c3)
	off := 60*128 + pitchPerLogUnit*math.Log(c3/middleC)
	for _, v := range []float64{low, high, off} {
		if math.IsNaN(v) || v < 0 || v > math.MaxUint16 {
			return 0, 0, 0, fmt.Errorf("calibration value %v out of range", v)
		}
	}
	return uint16(off), uint16(low), uint16(high), nil
}
