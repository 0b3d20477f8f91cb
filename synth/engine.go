package synth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

const (
	midiInputQueueSize = 256
	pollInterval       = time.Millisecond
	autosaveInterval   = 2 * time.Second
)

// Engine ties the control core together. Tick and the trigger and gate
// inputs belong to the tick context, Poll is the main loop. Other
// goroutines reach the controller through Update and ReceiveMIDI.
type Engine struct {
	storage    *Storage
	system     *System
	clock      *Clock
	controller *Controller
	tuner      *Tuner
	midi       *Dispatcher

	mu     sync.Mutex
	midiIn *eventBuffer[midi.Message]

	triggers atomic.Uint32
	gateIn   atomic.Bool
	gate     bool

	// tick context
	ticks  uint8
	sample DACState
}

// NewEngine loads the persisted state from dev. A nil dev keeps everything
// in memory.
func NewEngine(dev Device, seed int64) *Engine {
	if dev == nil {
		dev = NewMemoryDevice()
	}
	storage := NewStorage(dev)
	system := NewSystem(storage)
	clock := NewClock()
	controller := NewController(system, clock, storage, NewRandom(seed))
	e := &Engine{
		storage:    storage,
		system:     system,
		clock:      clock,
		controller: controller,
		tuner:      NewTuner(controller.Voice(), system),
		midi:       NewDispatcher(controller, system),
		midiIn:     newEventBuffer[midi.Message](midiInputQueueSize),
	}
	controller.SetMidiOut(e.midi)
	return e
}

func (e *Engine) Controller() *Controller { return e.controller }

func (e *Engine) System() *System { return e.system }

func (e *Engine) Tuner() *Tuner { return e.tuner }

func (e *Engine) MIDI() *Dispatcher { return e.midi }

// SetDrumVoice connects a drum sound generator to the drum machine and to
// the drum MIDI channel.
func (e *Engine) SetDrumVoice(d DrumVoice) {
	e.Update(func(e *Engine) {
		e.controller.SetDrumVoice(d)
		e.midi.SetDrumVoice(d)
	})
}

// Tick advances the clock by one tick and returns the current DAC sample.
// A new sample is read every 16 ticks.
func (e *Engine) Tick() DACState {
	s, _ := e.tick()
	return s
}

func (e *Engine) tick() (DACState, bool) {
	e.clock.Tick()
	e.ticks++
	if e.ticks < controlTicks {
		return e.sample, false
	}
	e.ticks = 0
	e.sample = e.controller.voice.ReadDACStateSample()
	return e.sample, true
}

// Trigger counts a pulse of the clock input. The pulses drive the
// sequencer while the external clock is selected.
func (e *Engine) Trigger() { e.triggers.Add(1) }

// SetGate sets the level of the gate input.
func (e *Engine) SetGate(high bool) { e.gateIn.Store(high) }

// ReceiveMIDI queues an incoming message for the main loop. It must be
// called from a single goroutine.
func (e *Engine) ReceiveMIDI(msg midi.Message) {
	e.midiIn.push(append(midi.Message(nil), msg...))
}

// Update runs f on the main loop state.
func (e *Engine) Update(f func(*Engine)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f(e)
}

// Poll runs one iteration of the main loop.
func (e *Engine) Poll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.controller
	c.voice.Refresh()

	events := e.clock.CountEvents()
	triggers := int(e.triggers.Swap(0))
	if !c.InternalClock() {
		events = triggers
	}
	if c.ClockRunning() {
		for ; events > 0; events-- {
			c.Clock(false)
		}
	}

	e.midiIn.drain(e.midi.Receive)

	if gate := e.gateIn.Load(); gate != e.gate {
		e.gate = gate
		if gate {
			c.GateOn()
		} else {
			c.GateOff()
		}
	}
	e.tuner.Refresh()
}

// Advance runs the main loop once and then ticks until the next DAC
// sample is read. It drives the engine without a real time tick source.
func (e *Engine) Advance() DACState {
	e.Poll()
	for {
		if s, ok := e.tick(); ok {
			return s
		}
	}
}

// Run polls until ctx is cancelled. Changed settings are saved once the
// voice is at rest.
func (e *Engine) Run(ctx context.Context) error {
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()
	autosave := time.NewTicker(autosaveInterval)
	defer autosave.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			e.Poll()
		case <-autosave.C:
			e.Update(func(e *Engine) {
				if e.controller.Dirty() && e.controller.AtRest() {
					logError("autosave", e.controller.SavePatch())
				}
			})
		}
	}
}
