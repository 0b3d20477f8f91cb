package synth

// Slide and accent amounts sent to the voice for generated notes.
const (
	slideAmount  = 0x60
	accentAmount = 0x70
)

type arpeggiator struct {
	patternMask uint16
	patternStep uint8
	direction   int8
	step        int8
	octave      int8
	// fresh is set by a start. The first step then plays the first note of
	// the direction instead of moving past it.
	fresh bool
}

func initialArpDirection(s *SequencerSettings) int8 {
	if s.ArpDirection() == ArpDown {
		return -1
	}
	return 1
}

func (c *Controller) StartArpeggiator() {
	c.voice.AllSoundOff()
	c.previousNote = NoNote
	c.arp.patternMask = 1
	c.arp.patternStep = 0
	c.arp.direction = initialArpDirection(&c.settings)
	c.arp.fresh = true
	c.resetArpeggiatorPattern()
}

func (c *Controller) StopArpeggiator() {
	c.AllNotesOff()
	c.out.OnInternalNoteOff(c.previousNote)
	c.previousNote = NoNote
}

func (c *Controller) resetArpeggiatorPattern() {
	if c.arp.direction == 1 {
		c.arp.octave = 0
		c.arp.step = 0
	} else {
		c.arp.step = int8(c.pressedKeys.Size() - 1)
		c.arp.octave = int8(c.settings.ArpRange() - 1)
	}
}

// stepArpeggiator moves the (step, octave) cursor to the next note.
func (c *Controller) stepArpeggiator() {
	numNotes := int8(c.pressedKeys.Size())
	arpRange := int8(c.settings.ArpRange())

	if c.settings.ArpDirection() == ArpRandom {
		// Reducing 4 random bits modulo the range favours the low values.
		r := c.random.Byte()
		c.arp.octave = int8(r&0xf) % arpRange
		c.arp.step = int8(r>>4) % numNotes
		c.arp.fresh = false
		return
	}
	if c.arp.fresh {
		c.arp.fresh = false
		c.resetArpeggiatorPattern()
		return
	}

	c.arp.step += c.arp.direction
	changeOctave := false
	if c.arp.step >= numNotes {
		c.arp.step = 0
		changeOctave = true
	} else if c.arp.step < 0 {
		c.arp.step = numNotes - 1
		changeOctave = true
	}
	if !changeOctave {
		return
	}
	c.arp.octave += c.arp.direction
	if c.arp.octave < arpRange && c.arp.octave >= 0 {
		return
	}
	if c.settings.ArpDirection() == ArpUpDown {
		c.arp.direction = -c.arp.direction
		c.resetArpeggiatorPattern()
		// The turning note is not repeated.
		if numNotes > 1 || arpRange > 1 {
			c.stepArpeggiator()
		}
	} else {
		c.resetArpeggiatorPattern()
	}
}

func (c *Controller) clockArpeggiator() {
	if c.HasArpeggiator() {
		pattern := arpPatterns[int(c.settings.ArpPattern)%len(arpPatterns)]
		if c.arp.patternMask&pattern != 0 {
			c.playArpeggiatorNote()
		} else {
			c.voice.NoteOff(c.previousNote)
			c.out.OnInternalNoteOff(c.previousNote)
			c.previousNote = NoNote
		}
	}
	c.arp.patternStep++
	c.arp.patternMask <<= 1
	if c.arp.patternMask == 0 {
		c.arp.patternMask = 1
		c.arp.patternStep = 0
	}
}

func (c *Controller) playArpeggiatorNote() {
	c.stepArpeggiator()
	numNotes := int8(c.pressedKeys.Size())
	if c.arp.step < 0 || c.arp.step >= numNotes {
		c.arp.step = (c.arp.step%numNotes + numNotes) % numNotes
	}
	entry := c.pressedKeys.SortedNote(int(c.arp.step))
	note := int(entry.Note) + 12*int(c.arp.octave)
	for note > 127 {
		note -= 12
	}

	acidity := c.settings.Acidity
	random := c.random.Byte()
	slideThreshold := uint8(u8Mul(arpSlideProbability[c.arp.patternStep], acidity))
	// Slide less often into the first note.
	if c.arp.step == 0 {
		slideThreshold >>= 1
	}
	accent := uint8(u8Mul(arpAccentLevel[c.arp.patternStep], acidity) >> 1)
	accent = uint8((uint16(accent) + uint16(u8MulShift8(accent, random))) >> 1)
	slid := random < slideThreshold

	if !slid {
		c.out.OnInternalNoteOff(c.previousNote)
	}
	var slide uint8
	if slid {
		slide = slideAmount
	}
	c.voice.NoteOn(uint8(note), entry.Velocity, slide, accent, slid)
	if slid {
		c.out.OnInternalNoteOff(c.previousNote)
	}
	c.out.OnInternalNoteOn(uint8(note), entry.Velocity)
	c.previousNote = uint8(note)
}
