package synth

// Drum parts.
const (
	BassDrum = iota
	SnareDrum
	HiHat
)

// General MIDI notes of the drum parts, on channel 10.
var drumMidiNotes = [NumDrumParts]uint8{36, 38, 42}

// Offsets from C2 of the white keys programming the 16 steps of a drum
// pattern.
var drumWhiteKeys = [16]uint8{0, 2, 4, 5, 7, 9, 11, 12, 14, 16, 17, 19, 21, 23, 24, 26}

const drumRemoteBaseNote = 36

func (c *Controller) StartDrumMachine() {
	c.drumStep = 0
}

func (c *Controller) refreshDrumSettings() {
	for i, tone := range c.settings.DrumsTone {
		c.drums.MorphPatch(uint8(i), tone)
	}
}

func (c *Controller) refreshDrumMixing() {
	c.drums.SetBalance(c.settings.DrumsBalance)
	c.drums.SetBandwidth(c.settings.DrumsBandwidth)
}

// drumLevel returns the trigger level of a part at the current step and
// the threshold it has to exceed.
func (c *Controller) drumLevel(part int) (level, threshold uint8) {
	s := &c.settings
	if s.DrumsOverride&(1<<part) != 0 {
		if s.DrumsPattern[part]&(1<<c.drumStep) != 0 {
			return 255, 0
		}
		return 0, 0
	}
	level = readDrumMap(c.drumStep, uint8(part), s.DrumsX, s.DrumsY)
	if p := c.perturbation[part]; level < 255-p {
		level += p
	}
	return level, ^s.DrumsDensity[part]
}

func (c *Controller) clockDrumMachine() {
	if c.HasDrums() {
		for part := 0; part < NumDrumParts; part++ {
			level, threshold := c.drumLevel(part)
			if level <= threshold {
				continue
			}
			velocity := 128 + level>>1
			c.drums.Trigger(uint8(part), velocity)
			c.out.OnDrumNote(drumMidiNotes[part], velocity>>1)
		}
	}
	c.drumStep++
	if c.drumStep >= stepsPerPattern {
		c.drumStep = 0
		for i := range c.perturbation {
			c.perturbation[i] = c.random.Byte() >> 3
		}
	}
}

// RemoteControlDrumSequencer programs the drum patterns from a keyboard:
// C# toggles the override of the generated patterns, D# clears the
// selected part, F#, G# and A# select a part and the white keys from C2
// toggle the steps of the selected part.
func (c *Controller) RemoteControlDrumSequencer(note uint8) {
	s := &c.settings
	switch note {
	case drumRemoteBaseNote + 1:
		s.DrumsOverride ^= 0xff
	case drumRemoteBaseNote + 3:
		s.DrumsPattern[c.remoteInstrument] = 0
	case drumRemoteBaseNote + 6, drumRemoteBaseNote + 8, drumRemoteBaseNote + 10:
		c.remoteInstrument = (note - drumRemoteBaseNote - 6) >> 1
		return
	default:
		step := -1
		for i, key := range drumWhiteKeys {
			if note == drumRemoteBaseNote+key {
				step = i
				break
			}
		}
		if step < 0 {
			return
		}
		s.DrumsPattern[c.remoteInstrument] ^= 1 << step
	}
	c.dirty = true
}

// DrumPattern returns the 16 step programmed pattern of a part.
func (c *Controller) DrumPattern(part int) uint16 {
	return c.settings.DrumsPattern[part%NumDrumParts]
}

// SetDrumPattern programs a part and enables its override.
func (c *Controller) SetDrumPattern(part int, pattern uint16) {
	part %= NumDrumParts
	c.settings.DrumsPattern[part] = pattern
	c.settings.DrumsOverride |= 1 << part
	c.dirty = true
}
