package synth

import "testing"

func renderUntil(e *Envelope, s Segment, limit int) int {
	for n := 0; n < limit; n++ {
		if e.Segment() == s {
			return n
		}
		e.Render()
	}
	return -1
}

func TestEnvelopeSegments(t *testing.T) {
	e := NewEnvelope()
	e.Update(0, 0, 128, 0)

	e.Trigger(SegmentAttack)
	if !e.Gate() {
		t.Errorf("expected gate during attack")
	}
	if n := renderUntil(e, SegmentSustain, 1000); n < 0 {
		t.Fatalf("envelope did not reach sustain, segment %v", e.Segment())
	}
	e.Render()
	if want, got := uint16(128)<<8, e.Value(); want != got {
		t.Errorf("wrong sustain level: want %v, got %v", want, got)
	}

	e.Trigger(SegmentRelease)
	if e.Gate() {
		t.Errorf("expected no gate during release")
	}
	if n := renderUntil(e, SegmentDead, 1000); n < 0 {
		t.Fatalf("envelope did not reach dead, segment %v", e.Segment())
	}
	if want, got := uint16(0), e.Render(); want != got {
		t.Errorf("wrong level after release: want %v, got %v", want, got)
	}
}

func TestEnvelopeHoldsSustain(t *testing.T) {
	e := NewEnvelope()
	e.Update(0, 0, 100, 0)
	e.Trigger(SegmentAttack)
	if n := renderUntil(e, SegmentSustain, 1000); n < 0 {
		t.Fatalf("envelope did not reach sustain, segment %v", e.Segment())
	}
	for i := 0; i < 100000; i++ {
		e.Render()
		if want, got := SegmentSustain, e.Segment(); want != got {
			t.Fatalf("render %d: sustain advanced to segment %v", i, got)
		}
	}
	if want, got := uint16(100)<<8, e.Value(); want != got {
		t.Errorf("wrong sustain level: want %v, got %v", want, got)
	}
}

func TestEnvelopeAttackPeak(t *testing.T) {
	e := NewEnvelope()
	e.Update(0, 255, 0, 255)
	e.Trigger(SegmentAttack)

	var peak uint16
	for e.Segment() == SegmentAttack {
		if v := e.Render(); v > peak {
			peak = v
		}
	}
	if want, got := uint16(65535), peak; want != got {
		t.Errorf("attack did not reach full scale: want %v, got %v", want, got)
	}
}

func TestEnvelopeRetriggerRestartsFromZero(t *testing.T) {
	e := NewEnvelope()
	e.Update(100, 100, 200, 100)
	e.Trigger(SegmentAttack)
	for i := 0; i < 50; i++ {
		e.Render()
	}
	e.Trigger(SegmentAttack)
	if want, got := uint16(0), e.Value(); want != got {
		t.Errorf("attack should restart from zero: got %v", got)
	}
}

func TestEnvelopeReleaseFromCurrentLevel(t *testing.T) {
	e := NewEnvelope()
	e.Update(255, 0, 255, 255)
	e.Trigger(SegmentAttack)
	for i := 0; i < 100; i++ {
		e.Render()
	}
	level := e.Value()
	e.Trigger(SegmentRelease)
	if v := e.Render(); v > level {
		t.Errorf("release rose above the level it started from: %v > %v", v, level)
	}
}
