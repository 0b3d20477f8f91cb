package synth

import (
	"errors"
	"log"
)

// DrumVoice is the drum sound generator driven by the drum machine.
type DrumVoice interface {
	Trigger(instrument, level uint8)
	SetParameterCc(cc, value uint8)
	MorphPatch(instrument, tone uint8)
	SetBalance(balance uint8)
	SetBandwidth(bandwidth uint8)
}

// MidiOut receives the notes and transport events generated by the
// controller.
type MidiOut interface {
	OnInternalNoteOn(note, velocity uint8)
	OnInternalNoteOff(note uint8)
	OnDrumNote(note, velocity uint8)
	OnStart()
	OnStop()
	OnClock(midiGenerated bool)
}

type nopDrums struct{}

func (nopDrums) Trigger(instrument, level uint8)   {}
func (nopDrums) SetParameterCc(cc, value uint8)    {}
func (nopDrums) MorphPatch(instrument, tone uint8) {}
func (nopDrums) SetBalance(balance uint8)          {}
func (nopDrums) SetBandwidth(bandwidth uint8)      {}

type nopOut struct{}

func (nopOut) OnInternalNoteOn(note, velocity uint8) {}
func (nopOut) OnInternalNoteOff(note uint8)          {}
func (nopOut) OnDrumNote(note, velocity uint8)       {}
func (nopOut) OnStart()                              {}
func (nopOut) OnStop()                               {}
func (nopOut) OnClock(midiGenerated bool)            {}

const ccHoldPedal = 64

// Tempo settings below this use the external clock.
const minInternalTempo = 40

// Controller routes performance events to the voice and runs the
// arpeggiator, the step sequencer and the drum machine from the clock. All
// methods run on the main loop.
type Controller struct {
	settings SequencerSettings
	sequence Sequence

	voice   *Voice
	system  *System
	clock   *Clock
	storage *Storage
	random  *Random
	drums   DrumVoice
	out     MidiOut

	ignoreNoteOff  bool
	clockCounter   uint8
	lfoSyncCounter uint8
	pressedKeys    NoteStack

	clockRunning bool
	seqRunning   bool
	recording    bool

	seqStep       uint8
	transposition int8
	seqVelocity   uint8
	previousNote  uint8

	arp arpeggiator

	drumStep         uint8
	perturbation     [NumDrumParts]uint8
	remoteInstrument uint8

	dirty bool
}

func NewController(system *System, clock *Clock, storage *Storage, random *Random) *Controller {
	c := &Controller{
		voice:   NewVoice(&system.SystemSettings, storage, random),
		system:  system,
		clock:   clock,
		storage: storage,
		random:  random,
		drums:   nopDrums{},
		out:     nopOut{},
	}
	c.settings.Reset()
	c.sequence.Reset()
	c.Init()
	return c
}

// SetDrumVoice connects the drum sound generator.
func (c *Controller) SetDrumVoice(d DrumVoice) {
	if d == nil {
		d = nopDrums{}
	}
	c.drums = d
	c.refreshDrumSettings()
	c.refreshDrumMixing()
}

// SetMidiOut connects the receiver of generated MIDI events.
func (c *Controller) SetMidiOut(out MidiOut) {
	if out == nil {
		out = nopOut{}
	}
	c.out = out
}

func (c *Controller) Init() {
	if c.storage != nil {
		c.storage.Load(&c.settings)
		c.storage.Load(&c.sequence)
	}
	c.pressedKeys.Clear()
	c.voice.Init()

	c.ignoreNoteOff = false
	c.seqRunning = false
	c.transposition = 0
	c.seqVelocity = 64
	c.previousNote = NoNote

	// The VCO starts on the reference note, for tuning by ear.
	c.voice.SetNote(c.system.ReferenceNote)
	c.TouchClock()
	c.dirty = false

	c.refreshDrumSettings()
	c.refreshDrumMixing()
	c.remoteInstrument = 0
}

// TouchClock applies the tempo and swing settings to the clock.
func (c *Controller) TouchClock() {
	c.clock.Update(c.settings.Tempo, GrooveShuffle, c.settings.Swing>>1, c.system.ClockPrescaler())
}

func (c *Controller) SetValue(id SeqParam, value uint8) {
	previous := c.settings.Get(id)
	c.settings.Set(id, value)
	if value == previous {
		return
	}
	c.dirty = true
	switch {
	case id == SeqArpMode:
		c.arp.direction = initialArpDirection(&c.settings)
	case id == SeqTempo || id == SeqSwing:
		c.TouchClock()
	case id >= SeqDrumsBdTone && id <= SeqDrumsHhTone:
		c.refreshDrumSettings()
	case id == SeqDrumsBalance || id == SeqDrumsBandwidth:
		c.refreshDrumMixing()
	}
}

func (c *Controller) GetValue(id SeqParam) uint8 { return c.settings.Get(id) }

// SetParameter writes the stored value of a logical parameter. Crossfade
// parameters split the value over two neighbouring patch bytes.
func (c *Controller) SetParameter(id ParamID, value uint8) {
	p := id.Definition()
	switch p.Domain {
	case DomainPatch:
		offset := PatchParam(p.Offset)
		if p.Unit != UnitCrossfade {
			c.voice.SetValue(offset, value)
			return
		}
		value = wavDeadband[value]
		if value >= 128 {
			c.voice.SetValue(offset, 0)
			c.voice.SetValue(offset+1, (value-128)<<1)
		} else {
			c.voice.SetValue(offset, 255-(value<<1))
			c.voice.SetValue(offset+1, 0)
		}
	case DomainSequencer:
		c.SetValue(SeqParam(p.Offset), value)
	}
}

func (c *Controller) GetParameter(id ParamID) uint8 {
	p := id.Definition()
	if p.Domain == DomainPatch {
		return c.voice.GetValue(PatchParam(p.Offset))
	}
	return c.GetValue(SeqParam(p.Offset))
}

// SetScaled sets a parameter from an 8 bit control position.
func (c *Controller) SetScaled(id ParamID, position uint8) {
	c.SetParameter(id, id.Definition().Scale(position))
}

// GetScaled returns the control position of a parameter's current value.
func (c *Controller) GetScaled(id ParamID) uint8 {
	return id.Definition().Unscale(c.GetParameter(id))
}

func (c *Controller) NoteOn(note, velocity uint8) {
	if velocity == 0 {
		c.NoteOff(note)
		return
	}
	if c.seqRunning && c.sequence.NumNotes != 0 {
		// While the sequencer plays, keys transpose it.
		c.transposition = int8(int(note) - 60)
		c.seqVelocity = velocity
	} else {
		c.pressedKeys.NoteOn(note, velocity)
		if c.settings.ArpMode == 0 {
			c.voice.NoteOn(note, velocity, 0, 0, c.pressedKeys.Size() != 1)
		} else if c.pressedKeys.Size() == 1 && !c.clockRunning {
			c.StartClock()
			c.StartArpeggiator()
		}
	}
	if c.recording {
		c.record(note)
	}
}

func (c *Controller) NoteOff(note uint8) {
	if (c.seqRunning && c.sequence.NumNotes != 0) || c.ignoreNoteOff {
		return
	}
	if c.settings.ArpMode != 0 {
		c.pressedKeys.NoteOff(note)
		if c.pressedKeys.Size() == 0 {
			c.StopArpeggiator()
			if !c.seqRunning {
				c.StopClock()
			}
		}
		return
	}
	top := c.pressedKeys.MostRecentNote().Note
	c.pressedKeys.NoteOff(note)
	if c.pressedKeys.Size() == 0 {
		c.voice.NoteOff(note)
	} else if top == note {
		// The last pressed key went up, go back to the previous one.
		next := c.pressedKeys.MostRecentNote()
		c.voice.NoteOn(next.Note, next.Velocity, 0, 0, true)
	}
}

// ReleaseAllHeldNotes ends the hold and releases the keys it kept down.
func (c *Controller) ReleaseAllHeldNotes() {
	c.ignoreNoteOff = false
	for c.pressedKeys.Size() > 0 {
		before := c.pressedKeys.Size()
		c.NoteOff(c.pressedKeys.MostRecentNote().Note)
		if c.pressedKeys.Size() == before {
			// Note offs are swallowed by the running sequencer.
			c.pressedKeys.Clear()
		}
	}
}

// HoldNotes toggles the hold of the keys currently down.
func (c *Controller) HoldNotes() {
	if c.ignoreNoteOff {
		c.ReleaseAllHeldNotes()
	} else if c.pressedKeys.Size() > 0 {
		c.ignoreNoteOff = true
	}
}

func (c *Controller) ControlChange(controller, value uint8) {
	if controller == ccModWheel && c.recording && value > 0x40 {
		c.sequence.SetAccent(int(c.sequence.NumNotes))
	}
	c.voice.ControlChange(controller, value)
	if controller == ccHoldPedal {
		if value >= 64 {
			c.ignoreNoteOff = true
		} else {
			c.ReleaseAllHeldNotes()
		}
	}
	if id := LookupCC(controller); id != ParamNone {
		c.SetScaled(id, value<<1)
	}
}

func (c *Controller) PitchBend(value uint16) {
	c.voice.PitchBend(value)
	if c.recording && (value > 8192+2048 || value < 8192-2048) {
		c.sequence.SetSlide(int(c.sequence.NumNotes))
	}
}

func (c *Controller) Aftertouch(value uint8) { c.voice.Aftertouch(value) }

func (c *Controller) AllSoundOff() {
	c.pressedKeys.Clear()
	c.voice.AllSoundOff()
}

func (c *Controller) ResetAllControllers() { c.voice.ResetAllControllers() }

func (c *Controller) AllNotesOff() {
	c.pressedKeys.Clear()
	c.voice.GateOff()
}

func (c *Controller) GateOn() { c.voice.GateOn() }

func (c *Controller) GateOff() { c.voice.GateOff() }

// Clock is called for every clock event, internal or from MIDI. The
// generators advance once every clock division.
func (c *Controller) Clock(midiGenerated bool) {
	c.voice.SetLfoPllTargetPhase(c.lfoSyncCounter)
	if c.clockCounter == 0 {
		c.clockArpeggiator()
		c.clockSequencer()
		c.clockDrumMachine()
	}
	c.out.OnClock(midiGenerated)
	c.clockCounter++
	if c.clockCounter >= c.system.ClockDivision() {
		c.clockCounter = 0
	}
	c.lfoSyncCounter++
	if c.lfoSyncCounter == 24 {
		c.lfoSyncCounter = 0
	}
}

func (c *Controller) Start() {
	c.StartClock()
	c.StartArpeggiator()
	c.StartSequencer()
	c.StartDrumMachine()
}

func (c *Controller) Stop() {
	c.StopSequencer()
	c.StopClock()
}

func (c *Controller) StartClock() {
	c.clock.Reset()
	c.clockCounter = 0
	c.lfoSyncCounter = 0
	c.clockRunning = true
	c.out.OnStart()
}

func (c *Controller) StopClock() {
	c.clockRunning = false
	c.out.OnStop()
}

// SavePatch writes the sequencer settings and the patch if they changed.
func (c *Controller) SavePatch() error {
	var errs []error
	if c.dirty && c.storage != nil {
		errs = append(errs, c.storage.Save(&c.settings))
	}
	errs = append(errs, c.voice.SavePatch())
	c.dirty = false
	return errors.Join(errs...)
}

func (c *Controller) SaveSequence() error {
	if c.storage == nil {
		return nil
	}
	return c.storage.Save(&c.sequence)
}

func (c *Controller) ResetToFactoryDefaults() error {
	if c.storage == nil {
		c.settings.Reset()
		c.sequence.Reset()
		return c.voice.ResetToFactoryDefaults()
	}
	return errors.Join(
		c.storage.ResetToFactoryDefaults(&c.settings),
		c.storage.ResetToFactoryDefaults(&c.sequence),
		c.voice.ResetToFactoryDefaults(),
	)
}

func (c *Controller) Voice() *Voice { return c.voice }

func (c *Controller) Settings() SequencerSettings { return c.settings }

// SetSettings replaces all sequencer settings.
func (c *Controller) SetSettings(s SequencerSettings) {
	for id := SeqParam(0); id < NumSeqParams; id++ {
		c.SetValue(id, s.Get(id))
	}
}

func (c *Controller) Sequence() Sequence { return c.sequence }

// SetSequence replaces the step sequence.
func (c *Controller) SetSequence(s Sequence) {
	if int(s.NumNotes) > MaxSequenceLength {
		s.NumNotes = MaxSequenceLength
	}
	c.sequence = s
	if c.seqStep >= s.NumNotes {
		c.seqStep = 0
	}
}

func (c *Controller) Dirty() bool { return c.dirty || c.voice.Dirty() }

func (c *Controller) ClockRunning() bool { return c.clockRunning }

func (c *Controller) SequencerRunning() bool { return c.seqRunning }

func (c *Controller) Recording() bool { return c.recording }

func (c *Controller) HoldState() bool { return c.ignoreNoteOff }

func (c *Controller) SequencerStep() uint8 { return c.seqStep }

func (c *Controller) SequenceLength() uint8 { return c.sequence.NumNotes }

func (c *Controller) DrumStep() uint8 { return c.drumStep }

func (c *Controller) PressedKeys() int { return c.pressedKeys.Size() }

// InternalClock reports whether the tempo setting selects the internal
// clock rather than MIDI clock.
func (c *Controller) InternalClock() bool { return c.settings.Tempo >= minInternalTempo }

// AtRest reports whether nothing is playing.
func (c *Controller) AtRest() bool {
	return c.pressedKeys.Size() == 0 && !c.seqRunning && c.voice.AtRest()
}

func (c *Controller) HasDrums() bool { return c.seqRunning && c.settings.HasDrums() }

func (c *Controller) HasArpeggiator() bool {
	return c.settings.ArpMode != 0 && c.pressedKeys.Size() > 0
}

func logError(what string, err error) {
	if err != nil {
		log.Printf("%s: %v", what, err)
	}
}
