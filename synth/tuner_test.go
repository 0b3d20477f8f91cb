package synth

import (
	"math"
	"testing"
)

func newTestTuner() (*Tuner, *Voice, *System) {
	storage := NewStorage(NewMemoryDevice())
	system := NewSystem(storage)
	voice := NewVoice(&system.SystemSettings, storage, NewRandom(1))
	return NewTuner(voice, system), voice, system
}

// probe feeds the measurements of one probe and moves to the next state.
func probe(tuner *Tuner, frequency float64) {
	tuner.Refresh()
	period := uint32(math.Round(CaptureRate / frequency))
	n := discardedMeasurements + int(probes[tuner.State()].measurements)
	for i := 0; i < n; i++ {
		tuner.UpdatePitchMeasurement(period)
	}
	tuner.Refresh()
}

func TestTuning(t *testing.T) {
	tuner, voice, system := newTestTuner()
	tuner.Start()
	if want, got := TuningProbingC1, tuner.State(); want != got {
		t.Fatalf("want %v, got %v", want, got)
	}

	frequencies := []float64{32.70, 130.81, 523.25}
	for _, f := range frequencies {
		state := tuner.State()
		probe(tuner, f)
		if !voice.Locked() {
			t.Errorf("%v: voice should be locked", state)
		}
		if tuner.State() != state+1 {
			t.Fatalf("%v: expected the next state, got %v", state, tuner.State())
		}
	}
	tuner.Refresh()
	if want, got := TuningOff, tuner.State(); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	if voice.Locked() {
		t.Errorf("voice should be unlocked after tuning")
	}

	var measured [3]float64
	for i, f := range frequencies {
		n := probes[TuningProbingC1+TuningState(i)].measurements
		period := uint64(math.Round(CaptureRate / f))
		measured[i] = pitchOf(int(n)+discardedMeasurements, n*period)
	}
	offset, low, high, err := calibration(measured[0], measured[1], measured[2])
	if err != nil {
		t.Fatal(err)
	}
	if want, got := [3]uint16{offset, low, high}, [3]uint16{system.VcoCvOffset, system.VcoCvScaleLow, system.VcoCvScaleHigh}; want != got {
		t.Errorf("wrong calibration: want %v, got %v", want, got)
	}
	// Two octaves per probe gives the nominal scale.
	if low < 21300 || low > 21370 || high < 21300 || high > 21370 {
		t.Errorf("unexpected scales %v, %v", low, high)
	}
}

func TestTuningLocksProbeCV(t *testing.T) {
	tuner, voice, _ := newTestTuner()
	tuner.Start()
	tuner.Refresh()
	if want, got := (DACState{VCO: 1048, VCF: 4095, VCA: 128, Gate: true}), voice.ReadDACStateSample(); want != got {
		t.Errorf("want %+v, got %+v", want, got)
	}
}

func TestTuningAbort(t *testing.T) {
	tuner, voice, system := newTestTuner()
	before := system.SystemSettings
	tuner.Start()
	tuner.Refresh()
	tuner.Abort()
	tuner.Refresh()
	if want, got := TuningOff, tuner.State(); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	if voice.Locked() {
		t.Errorf("abort should unlock the voice")
	}
	if before != system.SystemSettings {
		t.Errorf("abort changed the calibration")
	}
}

func TestTuningInvalidMeasurement(t *testing.T) {
	tuner, voice, system := newTestTuner()
	before := system.SystemSettings
	tuner.Start()
	for tuner.State() != TuningComputingResponse {
		tuner.Refresh()
		for i := 0; i < 64; i++ {
			tuner.UpdatePitchMeasurement(0)
		}
		tuner.Refresh()
	}
	tuner.Refresh()
	if want, got := TuningOff, tuner.State(); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	if voice.Locked() {
		t.Errorf("voice should be unlocked")
	}
	if before != system.SystemSettings {
		t.Errorf("invalid measurements changed the calibration")
	}
}

func TestMeasurementCountSaturates(t *testing.T) {
	tuner, _, _ := newTestTuner()
	for i := 0; i < 300; i++ {
		tuner.UpdatePitchMeasurement(1000)
	}
	count, sum := tuner.readMeasurements()
	if want, got := 0xff, count; want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	if want, got := uint64(1000*(0xff-discardedMeasurements)), sum; want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestCalibrationErrors(t *testing.T) {
	tests := [][3]float64{
		{0, 100, 200},
		{100, 100, 100},
		{100, math.Inf(1), 200},
		{100, math.NaN(), 400},
	}
	for _, f := range tests {
		if _, _, _, err := calibration(f[0], f[1], f[2]); err == nil {
			t.Errorf("%v: expected error", f)
		}
	}
}
