package synth

import "testing"

func newTestVoice() *Voice {
	settings := factorySystemSettings
	return NewVoice(&settings, nil, NewRandom(1))
}

// nextSample runs the pipeline for one sample and reads it back.
func nextSample(v *Voice) DACState {
	v.WriteDACStateSample()
	return v.ReadDACStateSample()
}

func TestDACRingInvariant(t *testing.T) {
	v := newTestVoice()
	check := func(when string) {
		if want, got := dacRingSize-1, v.ring.readable()+v.ring.writable(); want != got {
			t.Errorf("%s: readable+writable: want %v, got %v", when, want, got)
		}
	}
	check("empty")
	v.Refresh()
	check("full")
	if want, got := 0, v.ring.writable(); want != got {
		t.Errorf("refresh should fill the ring: %v slots left", got)
	}
	for i := 0; i < 5; i++ {
		v.ReadDACStateSample()
		check("read")
		v.WriteDACStateSample()
		check("write")
		v.ReadDACStateSample()
		check("read")
	}
}

func TestDACUnderrunHoldsLastSample(t *testing.T) {
	v := newTestVoice()
	v.NoteOn(60, 100, 0, 0, false)
	v.Refresh()
	var last DACState
	for i := 0; i < dacRingSize-1; i++ {
		last = v.ReadDACStateSample()
	}
	if want, got := last, v.ReadDACStateSample(); want != got {
		t.Errorf("underrun: want %+v, got %+v", want, got)
	}
}

func TestGlideToSameNote(t *testing.T) {
	v := newTestVoice()
	v.SetValue(PatchKbdGlide, 200)
	v.SetNote(60)
	v.NoteOn(60, 100, 0, 0, false)
	for i := 0; i < 1000; i++ {
		nextSample(v)
		if want, got := int32(60*128), v.DCOPitch(); want != got {
			t.Fatalf("sample %d: pitch moved: want %v, got %v", i, want, got)
		}
	}
}

func TestGlideFromBoot(t *testing.T) {
	v := newTestVoice()
	v.SetValue(PatchKbdGlide, 200)
	if want, got := int16(0), v.pitch; want != got {
		t.Fatalf("want a fresh voice at pitch %v, got %v", want, got)
	}
	v.NoteOn(60, 100, 0, 0, false)
	for i := 0; i < 100; i++ {
		nextSample(v)
		if want, got := int32(60*128), v.DCOPitch(); want != got {
			t.Fatalf("sample %d: first note should not glide: want %v, got %v", i, want, got)
		}
	}
}

func TestGlideReachesTarget(t *testing.T) {
	v := newTestVoice()
	v.SetValue(PatchKbdGlide, 100)
	v.SetNote(48)
	v.NoteOn(60, 100, 0, 0, false)

	prev := int32(48 * 128)
	reached := -1
	for i := 0; i < 100000; i++ {
		nextSample(v)
		pitch := v.DCOPitch()
		if pitch < prev {
			t.Fatalf("sample %d: glide went backwards: %v < %v", i, pitch, prev)
		}
		prev = pitch
		if pitch == 60*128 {
			reached = i
			break
		}
	}
	if reached < 0 {
		t.Fatalf("glide did not reach the target, at %v", prev)
	}
	if reached < 2 {
		t.Errorf("expected a glide, reached the target after %d samples", reached)
	}
	for i := 0; i < 10; i++ {
		nextSample(v)
	}
	if want, got := int32(60*128), v.DCOPitch(); want != got {
		t.Errorf("pitch left the target: want %v, got %v", want, got)
	}
}

func TestLegatoModeGlidesOnlyLegatoNotes(t *testing.T) {
	v := newTestVoice()
	v.SetValue(PatchKbdGlide, 100)
	v.SetValue(PatchEnvLegatoMode, 1)
	v.SetNote(48)

	v.NoteOn(60, 100, 0, 0, false)
	nextSample(v)
	if want, got := int32(60*128), v.DCOPitch(); want != got {
		t.Errorf("detached note should not glide: want %v, got %v", want, got)
	}

	v.NoteOn(72, 100, 0, 0, true)
	nextSample(v)
	if got := v.DCOPitch(); got >= 72*128 {
		t.Errorf("legato note should glide, already at %v", got)
	}
}

func TestVCOCalibration(t *testing.T) {
	v := newTestVoice()
	v.SetNote(60)
	c4 := nextSample(v).VCO
	if want, got := uint16(2048), c4; want != got {
		t.Errorf("wrong CV for the calibration note: want %v, got %v", want, got)
	}
	v.SetNote(72)
	c5 := nextSample(v).VCO
	if want, got := 499, int(c5)-int(c4); want != got {
		t.Errorf("wrong CV per octave: want %v, got %v", want, got)
	}
}

func TestCVClipping(t *testing.T) {
	patches := []func(*Patch){
		func(p *Patch) {
			for id := PatchParam(0); id < NumPatchParams; id++ {
				p.Set(id, 0x7f)
			}
		},
		func(p *Patch) {
			for id := PatchParam(0); id < NumPatchParams; id++ {
				p.Set(id, 0x80)
			}
		},
		func(p *Patch) {
			for id := PatchParam(0); id < NumPatchParams; id++ {
				p.Set(id, 0xff)
			}
		},
	}
	for i, setup := range patches {
		for _, note := range []uint8{0, 127} {
			v := newTestVoice()
			p := v.Patch()
			setup(&p)
			v.SetPatch(p)
			v.ControlChange(ccModWheel, 127)
			v.PitchBend(16383)
			v.NoteOn(note, 127, 0x60, 0x70, false)
			for n := 0; n < 500; n++ {
				s := nextSample(v)
				for lane := 0; lane < 4; lane++ {
					if cv := s.CV(lane); cv > 4095 {
						t.Fatalf("patch %d note %d: lane %d out of range: %v", i, note, lane, cv)
					}
				}
			}
		}
	}
}

func TestGateRetrigger(t *testing.T) {
	v := newTestVoice()
	if s := nextSample(v); s.Gate || s.VCA != 0 {
		t.Errorf("expected silence at rest, got %+v", s)
	}
	v.NoteOn(60, 100, 0, 0, false)
	if !nextSample(v).Gate {
		t.Errorf("expected gate after note on")
	}
	if v.Retriggered() {
		t.Errorf("first note should not be a retrigger")
	}

	v.GateOn()
	if nextSample(v).Gate {
		t.Errorf("expected the gate to drop for one sample on retrigger")
	}
	if !nextSample(v).Gate {
		t.Errorf("expected the gate back after the retrigger")
	}
	if !v.Retriggered() {
		t.Errorf("expected retriggered flag")
	}
	v.ClearRetriggeredFlag()

	v.NoteOff(60)
	if nextSample(v).Gate {
		t.Errorf("expected no gate after note off")
	}
}

func TestVoiceLock(t *testing.T) {
	v := newTestVoice()
	v.Lock(1048, 0, 4095, 128)
	v.Refresh()
	if want, got := (DACState{VCO: 1048, VCF: 4095, VCA: 128, Gate: true}), v.ReadDACStateSample(); want != got {
		t.Errorf("locked sample: want %+v, got %+v", want, got)
	}
	v.Unlock()
	if s := v.ReadDACStateSample(); s.VCO == 1048 {
		t.Errorf("still locked after unlock: %+v", s)
	}
}

func TestVoiceDirty(t *testing.T) {
	v := newTestVoice()
	v.SetValue(PatchCutoffBias, v.GetValue(PatchCutoffBias))
	if v.Dirty() {
		t.Errorf("writing the same value should not mark the patch dirty")
	}
	v.SetValue(PatchCutoffBias, 3)
	if !v.Dirty() {
		t.Errorf("expected dirty patch")
	}
	if err := v.SavePatch(); err != nil {
		t.Fatal(err)
	}
	if v.Dirty() {
		t.Errorf("expected clean patch after save")
	}
}
