package synth

import (
	"fmt"
	"log"

	"gitlab.com/gomidi/midi/v2"
)

// Channel mode controllers.
const (
	ccAllSoundOff         = 120
	ccResetAllControllers = 121
	ccAllNotesOff         = 123
	ccOmniModeOff         = 124
)

// Zero based channels with a fixed meaning.
const (
	drumChannel        = 9
	drumProgramChannel = 15
)

const outputQueueSize = 128

// Dispatcher decodes incoming MIDI for the controller and queues the MIDI
// generated by it. Receive and the MidiOut methods run on the main loop,
// Flush on the goroutine owning the output port.
type Dispatcher struct {
	controller *Controller
	system     *System
	drums      DrumVoice

	learning       bool
	seenDrumEvents bool
	dropped        int

	out *eventBuffer[midi.Message]
}

func NewDispatcher(controller *Controller, system *System) *Dispatcher {
	return &Dispatcher{
		controller: controller,
		system:     system,
		drums:      nopDrums{},
		out:        newEventBuffer[midi.Message](outputQueueSize),
	}
}

func (d *Dispatcher) SetDrumVoice(drums DrumVoice) {
	if drums == nil {
		drums = nopDrums{}
	}
	d.drums = drums
}

// LearnChannel makes the next note on message select the receive channel
// and the reference note.
func (d *Dispatcher) LearnChannel() { d.learning = true }

func (d *Dispatcher) Learning() bool { return d.learning }

func (d *Dispatcher) SeenDrumEvents() bool { return d.seenDrumEvents }

func (d *Dispatcher) ResetDrumEventMonitor() { d.seenDrumEvents = false }

// Receive handles one incoming message.
func (d *Dispatcher) Receive(msg midi.Message) {
	if len(msg) == 0 {
		return
	}
	if d.mode()&MidiOutThru != 0 {
		d.send(msg)
	}

	switch {
	case msg.Is(midi.TimingClockMsg):
		if !d.controller.InternalClock() {
			d.controller.Clock(true)
		}
		return
	case msg.Is(midi.StartMsg), msg.Is(midi.ContinueMsg):
		if !d.controller.InternalClock() {
			d.controller.Start()
		}
		return
	case msg.Is(midi.StopMsg):
		if !d.controller.InternalClock() {
			d.controller.Stop()
		}
		return
	}

	var ch, key, velocity, cc, value uint8
	if d.learning && msg.GetNoteOn(&ch, &key, &velocity) && ch != drumChannel {
		logError("learn midi channel", d.system.LearnMidiChannel(ch, key))
		d.learning = false
	}
	d.receiveDrums(msg)
	if msg.GetControlChange(&ch, &cc, &value) && cc == ccOmniModeOff {
		logError("set midi channel", d.system.SetMidiChannel(ch))
		return
	}

	var bend int16
	var absBend uint16
	switch {
	case msg.GetNoteStart(&ch, &key, &velocity):
		if d.system.ReceiveChannel(ch) {
			d.controller.NoteOn(key, velocity)
		}
	case msg.GetNoteEnd(&ch, &key):
		if d.system.ReceiveChannel(ch) {
			d.controller.NoteOff(key)
		}
	case msg.GetControlChange(&ch, &cc, &value):
		if d.system.ReceiveChannel(ch) {
			d.controlChange(cc, value)
		}
	case msg.GetPitchBend(&ch, &bend, &absBend):
		if d.system.ReceiveChannel(ch) {
			d.controller.PitchBend(absBend)
		}
	case msg.GetAfterTouch(&ch, &value):
		if d.system.ReceiveChannel(ch) {
			d.controller.Aftertouch(value)
		}
	case msg.GetPolyAfterTouch(&ch, &key, &value):
		if d.system.ReceiveChannel(ch) {
			d.controller.Aftertouch(value)
		}
	}
}

func (d *Dispatcher) controlChange(cc, value uint8) {
	switch cc {
	case ccAllSoundOff:
		d.controller.AllSoundOff()
	case ccResetAllControllers:
		d.controller.ResetAllControllers()
	case ccAllNotesOff:
		d.controller.AllNotesOff()
	default:
		d.controller.ControlChange(cc, value)
	}
}

// receiveDrums handles the drum channel, which plays the drum voice
// directly, and the channel programming the drum patterns.
func (d *Dispatcher) receiveDrums(msg midi.Message) {
	var ch, key, velocity, cc, value uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &velocity):
		switch ch {
		case drumChannel:
			for part, note := range drumMidiNotes {
				if key == note {
					d.drums.Trigger(uint8(part), velocity<<1)
				}
			}
			d.seenDrumEvents = true
		case drumProgramChannel:
			d.controller.RemoteControlDrumSequencer(key)
		}
	case msg.GetControlChange(&ch, &cc, &value):
		if ch == drumChannel {
			d.drums.SetParameterCc(cc, value)
		}
	}
}

func (d *Dispatcher) mode() uint8 { return d.system.MidiOutMode }

func (d *Dispatcher) send(msg midi.Message) {
	if !d.out.tryPush(msg) {
		d.dropped++
		if d.dropped == 1 || d.dropped%outputQueueSize == 0 {
			log.Printf("midi out: queue full, %d messages dropped", d.dropped)
		}
	}
}

func (d *Dispatcher) OnInternalNoteOff(note uint8) {
	if note != NoNote && d.mode()&MidiOutNotes != 0 {
		d.send(midi.NoteOff(d.system.MidiChannel, note))
	}
}

func (d *Dispatcher) OnInternalNoteOn(note, velocity uint8) {
	if d.mode()&MidiOutNotes != 0 {
		d.send(midi.NoteOn(d.system.MidiChannel, note, velocity))
	}
}

func (d *Dispatcher) OnDrumNote(note, velocity uint8) {
	if note != NoNote && d.mode()&MidiOutDrumNotes != 0 {
		d.send(midi.NoteOn(drumChannel, note, velocity))
		d.send(midi.NoteOff(drumChannel, note))
	}
}

func (d *Dispatcher) OnStart() {
	if d.mode()&MidiOutTransport != 0 {
		d.send(midi.Start())
	}
}

func (d *Dispatcher) OnStop() {
	if d.mode()&MidiOutTransport != 0 {
		d.send(midi.Stop())
	}
}

func (d *Dispatcher) OnClock(midiGenerated bool) {
	// An incoming clock is already passed through.
	if d.mode()&MidiOutThru != 0 && midiGenerated {
		return
	}
	if d.mode()&MidiOutTransport != 0 {
		d.send(midi.TimingClock())
	}
}

// Flush sends the queued messages. It stops at the first error and keeps
// the failed message and the ones after it queued for the next flush.
func (d *Dispatcher) Flush(send func(midi.Message) error) error {
	var err error
	d.out.drainUntil(func(msg midi.Message) bool {
		if e := send(msg); e != nil {
			err = fmt.Errorf("send %v: %w", msg, e)
			return false
		}
		return true
	})
	return err
}

// Pending returns the number of queued output messages.
func (d *Dispatcher) Pending() int { return d.out.len() }
