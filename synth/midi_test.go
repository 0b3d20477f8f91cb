package synth

import (
	"errors"
	"reflect"
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

func newTestDispatcher() (*Dispatcher, *Controller, *System) {
	storage := NewStorage(NewMemoryDevice())
	system := NewSystem(storage)
	c := NewController(system, NewClock(), storage, NewRandom(1))
	d := NewDispatcher(c, system)
	c.SetMidiOut(d)
	return d, c, system
}

func flush(t *testing.T, d *Dispatcher) []midi.Message {
	t.Helper()
	var msgs []midi.Message
	if err := d.Flush(func(msg midi.Message) error {
		msgs = append(msgs, msg)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return msgs
}

func TestDispatcherNotes(t *testing.T) {
	d, c, _ := newTestDispatcher()
	d.Receive(midi.NoteOn(1, 60, 100))
	if c.Voice().Gate() {
		t.Errorf("note on another channel should be ignored")
	}
	d.Receive(midi.NoteOn(0, 60, 100))
	if !c.Voice().Gate() {
		t.Errorf("expected gate after note on")
	}
	d.Receive(midi.NoteOn(0, 60, 0))
	if c.Voice().Gate() {
		t.Errorf("note on with velocity 0 should release the note")
	}
	d.Receive(midi.NoteOn(0, 62, 100))
	d.Receive(midi.NoteOff(0, 62))
	if c.Voice().Gate() {
		t.Errorf("expected release after note off")
	}
}

func TestDispatcherThru(t *testing.T) {
	d, _, system := newTestDispatcher()
	in := midi.NoteOn(3, 64, 90)
	d.Receive(in)
	if want, got := []midi.Message{in}, flush(t, d); !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}

	if err := system.SetMidiOutMode(0); err != nil {
		t.Fatal(err)
	}
	d.Receive(in)
	if got := flush(t, d); len(got) != 0 {
		t.Errorf("expected no thru, got %v", got)
	}
}

func TestDispatcherControllers(t *testing.T) {
	d, c, system := newTestDispatcher()
	d.Receive(midi.ControlChange(0, 74, 10))
	if want, got := uint8(20), c.Voice().GetValue(PatchCutoffBias); want != got {
		t.Errorf("wrong cutoff: want %v, got %v", want, got)
	}

	d.Receive(midi.NoteOn(0, 60, 100))
	d.Receive(midi.ControlChange(0, ccAllNotesOff, 0))
	if c.Voice().Gate() {
		t.Errorf("all notes off should release the voice")
	}

	d.Receive(midi.Message{0xe0, 0x7f, 0x7f})
	if want, got := uint16(0x3fff), c.Voice().pitchBend; want != got {
		t.Errorf("wrong pitch bend: want %v, got %v", want, got)
	}
	d.Receive(midi.ControlChange(0, ccResetAllControllers, 0))
	if want, got := uint16(8192), c.Voice().pitchBend; want != got {
		t.Errorf("controllers not reset: pitch bend %v", got)
	}

	d.Receive(midi.Message{0xd0, 0x55})
	if want, got := uint8(0x55), c.Voice().aftertouch; want != got {
		t.Errorf("wrong aftertouch: want %v, got %v", want, got)
	}

	d.Receive(midi.ControlChange(5, ccOmniModeOff, 0))
	if want, got := uint8(5), system.MidiChannel; want != got {
		t.Errorf("omni off should select the channel: want %v, got %v", want, got)
	}
}

func TestDispatcherLearn(t *testing.T) {
	d, c, system := newTestDispatcher()
	d.LearnChannel()
	d.Receive(midi.NoteOn(drumChannel, 36, 100))
	if !d.Learning() {
		t.Errorf("drum channel notes should not be learned")
	}
	d.Receive(midi.NoteOn(4, 57, 100))
	if d.Learning() {
		t.Errorf("expected learning to end")
	}
	if want, got := uint8(4), system.MidiChannel; want != got {
		t.Errorf("wrong channel: want %v, got %v", want, got)
	}
	if want, got := uint8(57), system.ReferenceNote; want != got {
		t.Errorf("wrong reference note: want %v, got %v", want, got)
	}
	if !c.Voice().Gate() {
		t.Errorf("the learned note should play")
	}
}

func TestDispatcherDrums(t *testing.T) {
	d, c, _ := newTestDispatcher()
	drums := &recordingDrums{}
	d.SetDrumVoice(drums)

	d.Receive(midi.NoteOn(drumChannel, 38, 100))
	d.Receive(midi.NoteOn(drumChannel, 50, 100))
	d.Receive(midi.ControlChange(drumChannel, 20, 7))
	if want, got := []string{"1/200"}, drums.triggers; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong triggers: want %v, got %v", want, got)
	}
	if want, got := [][2]uint8{{20, 7}}, drums.ccs; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong controllers: want %v, got %v", want, got)
	}
	if !d.SeenDrumEvents() {
		t.Errorf("expected drum events")
	}
	d.ResetDrumEventMonitor()
	if d.SeenDrumEvents() {
		t.Errorf("expected monitor reset")
	}

	d.Receive(midi.NoteOn(drumProgramChannel, drumRemoteBaseNote, 100))
	if want, got := uint16(1), c.DrumPattern(BassDrum); want != got {
		t.Errorf("wrong programmed pattern: want %v, got %v", want, got)
	}
}

func TestDispatcherTransport(t *testing.T) {
	d, c, system := newTestDispatcher()
	if err := system.SetMidiOutMode(0); err != nil {
		t.Fatal(err)
	}
	d.Receive(midi.Start())
	if c.ClockRunning() {
		t.Errorf("start should be ignored with the internal clock")
	}

	c.SetSequence(testSequence(60, 62))
	c.SetValue(SeqTempo, 0)
	d.Receive(midi.Start())
	if !c.ClockRunning() || !c.SequencerRunning() {
		t.Fatalf("expected the sequencer to run")
	}
	for i := 0; i < 6; i++ {
		d.Receive(midi.TimingClock())
	}
	if want, got := uint8(1), c.SequencerStep(); want != got {
		t.Errorf("wrong step after one step of clock: want %v, got %v", want, got)
	}
	d.Receive(midi.Stop())
	if c.ClockRunning() {
		t.Errorf("expected the clock to stop")
	}
}

func TestDispatcherOutput(t *testing.T) {
	d, c, system := newTestDispatcher()
	if err := system.SetMidiOutMode(MidiOutTransport | MidiOutNotes); err != nil {
		t.Fatal(err)
	}
	c.SetSequence(testSequence(60))
	c.Start()
	c.Clock(false)

	want := []midi.Message{
		midi.Start(),
		midi.NoteOn(0, 60, 64),
		midi.TimingClock(),
	}
	if got := flush(t, d); !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}

	c.Stop()
	want = []midi.Message{midi.NoteOff(0, 60), midi.Stop()}
	if got := flush(t, d); !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestDispatcherDrumOutput(t *testing.T) {
	d, _, system := newTestDispatcher()
	if err := system.SetMidiOutMode(MidiOutDrumNotes); err != nil {
		t.Fatal(err)
	}
	d.OnDrumNote(42, 100)
	d.OnInternalNoteOn(60, 100)
	want := []midi.Message{midi.NoteOn(drumChannel, 42, 100), midi.NoteOff(drumChannel, 42)}
	if got := flush(t, d); !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestDispatcherClockThru(t *testing.T) {
	d, _, system := newTestDispatcher()
	if err := system.SetMidiOutMode(MidiOutThru | MidiOutTransport); err != nil {
		t.Fatal(err)
	}
	d.OnClock(true)
	d.OnClock(false)
	if want, got := []midi.Message{midi.TimingClock()}, flush(t, d); !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	d, _, _ := newTestDispatcher()
	for i := 0; i < 2*outputQueueSize; i++ {
		d.Receive(midi.ControlChange(9, 1, 1))
	}
	if want, got := outputQueueSize, d.Pending(); want != got {
		t.Errorf("want %v pending, got %v", want, got)
	}

	errSend := errors.New("port closed")
	err := d.Flush(func(midi.Message) error { return errSend })
	if !errors.Is(err, errSend) {
		t.Errorf("expected send error, got %v", err)
	}
	if want, got := outputQueueSize, d.Pending(); want != got {
		t.Errorf("a failed flush should keep the queue, want %v pending, got %v", want, got)
	}
}

func TestDispatcherFlushRetry(t *testing.T) {
	d, _, system := newTestDispatcher()
	if err := system.SetMidiOutMode(MidiOutTransport); err != nil {
		t.Fatal(err)
	}
	d.OnStart()
	d.OnStop()
	d.OnStart()

	errBusy := errors.New("port busy")
	calls := 0
	err := d.Flush(func(midi.Message) error {
		calls++
		return errBusy
	})
	if !errors.Is(err, errBusy) {
		t.Errorf("expected send error, got %v", err)
	}
	if want, got := 1, calls; want != got {
		t.Errorf("want %v send attempts, got %v", want, got)
	}
	if want, got := 3, d.Pending(); want != got {
		t.Errorf("want %v pending after the error, got %v", want, got)
	}

	// a port accepting one message, then busy again
	var sent []midi.Message
	err = d.Flush(func(msg midi.Message) error {
		if len(sent) == 1 {
			return errBusy
		}
		sent = append(sent, msg)
		return nil
	})
	if !errors.Is(err, errBusy) {
		t.Errorf("expected send error, got %v", err)
	}
	if want, got := 2, d.Pending(); want != got {
		t.Errorf("want %v pending, got %v", want, got)
	}

	want := []midi.Message{midi.Stop(), midi.Start()}
	if got := flush(t, d); !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}
	if want, got := []midi.Message{midi.Start()}, sent; !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}
}
