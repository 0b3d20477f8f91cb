package synth

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

// advanceUntil runs the engine until cond holds for a DAC sample.
func advanceUntil(e *Engine, n int, cond func(DACState) bool) bool {
	for i := 0; i < n; i++ {
		if cond(e.Advance()) {
			return true
		}
	}
	return false
}

func gateHigh(s DACState) bool { return s.Gate }

func gateLow(s DACState) bool { return !s.Gate }

func TestEnginePlaysSequence(t *testing.T) {
	e := NewEngine(nil, 1)
	e.Update(func(e *Engine) {
		e.Controller().SetSequence(testSequence(60, 62))
		e.Controller().Start()
	})
	if !advanceUntil(e, 200, gateHigh) {
		t.Fatalf("expected the sequencer to open the gate")
	}
	if want, got := uint8(1), e.Controller().SequencerStep(); want != got {
		t.Errorf("wrong step: want %v, got %v", want, got)
	}
}

func TestEngineExternalClock(t *testing.T) {
	e := NewEngine(nil, 1)
	e.Update(func(e *Engine) {
		e.Controller().SetValue(SeqTempo, 0)
		e.Controller().SetSequence(testSequence(60, 62, 64))
		e.Controller().Start()
	})
	if advanceUntil(e, 200, gateHigh) {
		t.Fatalf("the internal clock should not drive the sequencer")
	}

	e.Trigger()
	if !advanceUntil(e, 10, gateHigh) {
		t.Errorf("expected a note after a clock pulse")
	}
	for i := 0; i < 5; i++ {
		e.Trigger()
	}
	e.Advance()
	if want, got := uint8(1), e.Controller().SequencerStep(); want != got {
		t.Errorf("wrong step after one step of pulses: want %v, got %v", want, got)
	}
	e.Trigger()
	e.Advance()
	if want, got := uint8(2), e.Controller().SequencerStep(); want != got {
		t.Errorf("wrong step: want %v, got %v", want, got)
	}
}

func TestEngineMIDI(t *testing.T) {
	e := NewEngine(nil, 1)
	e.ReceiveMIDI(midi.NoteOn(0, 60, 100))
	if !advanceUntil(e, 10, gateHigh) {
		t.Fatalf("expected the gate after a note on")
	}
	e.ReceiveMIDI(midi.NoteOff(0, 60))
	if !advanceUntil(e, 10, gateLow) {
		t.Errorf("expected the gate to close")
	}
}

func TestEngineGateInput(t *testing.T) {
	e := NewEngine(nil, 1)
	e.SetGate(true)
	if !advanceUntil(e, 10, gateHigh) {
		t.Fatalf("expected the gate input to open the gate")
	}
	e.SetGate(false)
	if !advanceUntil(e, 10, gateLow) {
		t.Errorf("expected the gate to close")
	}
}

func TestEngineTunerLock(t *testing.T) {
	e := NewEngine(nil, 1)
	e.Update(func(e *Engine) { e.Tuner().Start() })
	s := e.Advance()
	if want, got := uint16(1048), s.VCO; want != got {
		t.Errorf("wrong probe CV: want %v, got %v", want, got)
	}
	if !s.Gate {
		t.Errorf("expected the gate while probing")
	}

	e.Update(func(e *Engine) { e.Tuner().Abort() })
	e.Advance()
	if e.Controller().Voice().Locked() {
		t.Errorf("expected the voice to be unlocked")
	}
}

func TestEngineTick(t *testing.T) {
	e := NewEngine(nil, 1)
	e.Update(func(e *Engine) { e.Tuner().Start() })
	e.Poll()
	var s DACState
	for i := 0; i < controlTicks; i++ {
		s = e.Tick()
	}
	if want, got := uint16(1048), s.VCO; want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestEngineRun(t *testing.T) {
	e := NewEngine(nil, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	e.ReceiveMIDI(midi.NoteOn(0, 64, 100))
	if err := e.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("unexpected error: %v", err)
	}
	if want, got := 1, e.Controller().PressedKeys(); want != got {
		t.Errorf("want %v pressed keys, got %v", want, got)
	}
}

func TestEngineUpdateWhileRunning(t *testing.T) {
	e := NewEngine(nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- e.Run(ctx) }()

	e.ReceiveMIDI(midi.NoteOn(0, 64, 100))
	deadline := time.Now().Add(time.Second)
	var keys int
	for keys == 0 && time.Now().Before(deadline) {
		e.Update(func(e *Engine) { keys = e.Controller().PressedKeys() })
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("unexpected error: %v", err)
	}
	if want, got := 1, keys; want != got {
		t.Errorf("want %v pressed keys seen through Update, got %v", want, got)
	}
}

func TestLaneLevel(t *testing.T) {
	s := DACState{VCO: 4095, PW: 0, VCF: 2048, VCA: 1024, Gate: true}
	for lane, want := range []float32{1, 0, 2048.0 / 4095, 1024.0 / 4095, 1} {
		if got := LaneLevel(s, lane); want != got {
			t.Errorf("lane %d: want %v, got %v", lane, want, got)
		}
	}
	s.Gate = false
	if want, got := float32(0), LaneLevel(s, NumLanes-1); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}

type constantSource struct {
	ticks int
	s     DACState
}

func (c *constantSource) Tick() DACState {
	c.ticks++
	return c.s
}

func TestSinkProcess(t *testing.T) {
	src := &constantSource{s: DACState{VCO: 4095, Gate: true}}
	s := &Sink{source: src, channels: 2, ticksPerFrame: TickRate / sinkSampleRate}
	out := [][]float32{make([]float32, 480), make([]float32, 480)}
	s.Process(out)
	if want, got := int(math.Round(TickRate/100)), src.ticks; got < want-1 || got > want+1 {
		t.Errorf("want about %v ticks, got %v", want, got)
	}
	if want, got := float32(1), out[0][479]; want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	if want, got := float32(0), out[1][479]; want != got {
		t.Errorf("PW lane: want %v, got %v", want, got)
	}
}
