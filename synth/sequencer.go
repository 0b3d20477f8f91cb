package synth

func (c *Controller) StartSequencer() {
	// Keys held with an empty sequence keep sounding.
	if !(c.pressedKeys.Size() > 0 && c.sequence.NumNotes == 0) {
		c.AllSoundOff()
	}
	if c.recording {
		c.StopRecording()
	}
	c.seqStep = 0
	c.seqRunning = true
}

func (c *Controller) StopSequencer() {
	c.AllSoundOff()
	c.out.OnInternalNoteOff(c.previousNote)
	c.previousNote = NoNote
	c.seqRunning = false
}

func (c *Controller) clockSequencer() {
	if c.sequence.NumNotes == 0 || !c.seqRunning {
		return
	}
	if c.seqStep >= c.sequence.NumNotes {
		c.seqStep = 0
	}

	step := int(c.seqStep)
	switch value := c.sequence.Notes[step]; value {
	case StepRest:
		c.voice.NoteOff(c.previousNote)
		c.out.OnInternalNoteOff(c.previousNote)
		c.previousNote = NoNote
	case StepTie:
	default:
		note := transpose(value, c.transposition)
		slid := c.sequence.Slide(step)
		accented := c.sequence.Accent(step)

		// A slid note overlaps the previous one on MIDI out, so that an
		// external synth can slide too.
		if !slid {
			c.out.OnInternalNoteOff(c.previousNote)
		}
		var slide, accent uint8
		velocity := c.seqVelocity
		if slid {
			slide = slideAmount
		}
		if accented {
			accent = accentAmount
			velocity = 0x7f
		}
		c.voice.NoteOn(note, c.seqVelocity, slide, accent, slid)
		c.out.OnInternalNoteOn(note, velocity)
		if c.previousNote != NoNote && slid {
			c.out.OnInternalNoteOff(c.previousNote)
		}
		c.previousNote = note
	}

	c.seqStep++
	if c.seqStep >= c.sequence.NumNotes {
		c.seqStep = 0
	}
}

// transpose shifts a note, saturating to the MIDI range.
func transpose(note uint8, semitones int8) uint8 {
	n := int(note) + int(semitones)
	if n < 0 {
		return 0
	}
	if n > 127 {
		return 127
	}
	return uint8(n)
}

// StartRecording stops playback and clears the sequence. Notes played
// from now on are appended to it.
func (c *Controller) StartRecording() {
	c.Stop()
	c.StopArpeggiator()
	c.settings.ArpMode = 0
	c.recording = true
	c.sequence = Sequence{}
}

// StopRecording ends recording and saves the sequence.
func (c *Controller) StopRecording() {
	c.Stop()
	c.recording = false
	c.transposition = 0
	c.seqVelocity = 64
	logError("save sequence", c.SaveSequence())
}

func (c *Controller) record(note uint8) {
	if c.sequence.Append(note) {
		c.StopRecording()
	}
}

// InsertRest appends a rest while recording.
func (c *Controller) InsertRest() {
	if c.recording {
		c.record(StepRest)
	}
}

// InsertTie appends a tie while recording.
func (c *Controller) InsertTie() {
	if c.recording {
		c.record(StepTie)
	}
}
