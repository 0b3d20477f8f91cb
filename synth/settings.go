package synth

import "fmt"

const NumDrumParts = 3

// SeqParam identifies a sequencer settings byte. The values are the byte
// offsets of the stored settings.
type SeqParam uint8

const (
	SeqArpMode SeqParam = iota
	SeqArpPattern
	SeqTempo
	SeqSwing
	SeqDrumsX
	SeqDrumsY
	SeqDrumsBdDensity
	SeqDrumsSdDensity
	SeqDrumsHhDensity
	SeqDrumsBdTone
	SeqDrumsSdTone
	SeqDrumsHhTone
	SeqDrumsBalance
	SeqDrumsBandwidth
	SeqDrumsOverride
	SeqDrumsBdPatternL
	SeqDrumsBdPatternH
	SeqDrumsSdPatternL
	SeqDrumsSdPatternH
	SeqDrumsHhPatternL
	SeqDrumsHhPatternH
	SeqArpAcidity
	SeqPadding1
	SeqPadding2
	NumSeqParams
)

type ArpDirection uint8

const (
	ArpUp ArpDirection = iota
	ArpDown
	ArpUpDown
	ArpRandom
)

type SequencerSettings struct {
	ArpMode    uint8
	ArpPattern uint8
	Tempo      uint8
	Swing      uint8

	DrumsX         uint8
	DrumsY         uint8
	DrumsDensity   [NumDrumParts]uint8
	DrumsTone      [NumDrumParts]uint8
	DrumsBalance   uint8
	DrumsBandwidth uint8

	DrumsOverride uint8
	DrumsPattern  [NumDrumParts]uint16

	Acidity uint8
}

var factorySettings = SequencerSettings{
	Tempo:          120,
	DrumsBalance:   128,
	DrumsBandwidth: 255,
}

func (s *SequencerSettings) Reset() { *s = factorySettings }

// ArpRange is the number of octaves covered by the arpeggiator, 1 or 2.
func (s *SequencerSettings) ArpRange() uint8 { return ((s.ArpMode - 1) & 1) + 1 }

func (s *SequencerSettings) ArpDirection() ArpDirection { return ArpDirection((s.ArpMode - 1) >> 1) }

func (s *SequencerSettings) HasDrums() bool {
	for _, d := range s.DrumsDensity {
		if d > 1 {
			return true
		}
	}
	return s.DrumsOverride != 0
}

func lowByte[T any](name string, ptr func(*T) *uint16) field[T] {
	return field[T]{
		name: name,
		get:  func(v *T) uint8 { return uint8(*ptr(v)) },
		set:  func(v *T, b uint8) { p := ptr(v); *p = *p&0xff00 | uint16(b) },
		max:  255,
	}
}

func highByte[T any](name string, ptr func(*T) *uint16) field[T] {
	return field[T]{
		name: name,
		get:  func(v *T) uint8 { return uint8(*ptr(v) >> 8) },
		set:  func(v *T, b uint8) { p := ptr(v); *p = *p&0x00ff | uint16(b)<<8 },
		max:  255,
	}
}

type seqField = field[SequencerSettings]

func seqByte(name string, ptr func(*SequencerSettings) *uint8) seqField {
	return byteField(name, ptr)
}

var seqFields = [NumSeqParams]seqField{
	SeqArpMode:         seqByte("arp-mode", func(s *SequencerSettings) *uint8 { return &s.ArpMode }).limit(0, 8),
	SeqArpPattern:      seqByte("arp-pattern", func(s *SequencerSettings) *uint8 { return &s.ArpPattern }).limit(0, len(arpPatterns)-1),
	SeqTempo:           seqByte("tempo", func(s *SequencerSettings) *uint8 { return &s.Tempo }),
	SeqSwing:           seqByte("swing", func(s *SequencerSettings) *uint8 { return &s.Swing }),
	SeqDrumsX:          seqByte("drums-x", func(s *SequencerSettings) *uint8 { return &s.DrumsX }),
	SeqDrumsY:          seqByte("drums-y", func(s *SequencerSettings) *uint8 { return &s.DrumsY }),
	SeqDrumsBdDensity:  seqByte("bd-density", func(s *SequencerSettings) *uint8 { return &s.DrumsDensity[0] }),
	SeqDrumsSdDensity:  seqByte("sd-density", func(s *SequencerSettings) *uint8 { return &s.DrumsDensity[1] }),
	SeqDrumsHhDensity:  seqByte("hh-density", func(s *SequencerSettings) *uint8 { return &s.DrumsDensity[2] }),
	SeqDrumsBdTone:     seqByte("bd-tone", func(s *SequencerSettings) *uint8 { return &s.DrumsTone[0] }),
	SeqDrumsSdTone:     seqByte("sd-tone", func(s *SequencerSettings) *uint8 { return &s.DrumsTone[1] }),
	SeqDrumsHhTone:     seqByte("hh-tone", func(s *SequencerSettings) *uint8 { return &s.DrumsTone[2] }),
	SeqDrumsBalance:    seqByte("drums-balance", func(s *SequencerSettings) *uint8 { return &s.DrumsBalance }),
	SeqDrumsBandwidth:  seqByte("drums-bandwidth", func(s *SequencerSettings) *uint8 { return &s.DrumsBandwidth }),
	SeqDrumsOverride:   seqByte("drums-override", func(s *SequencerSettings) *uint8 { return &s.DrumsOverride }),
	SeqDrumsBdPatternL: lowByte("bd-pattern-l", func(s *SequencerSettings) *uint16 { return &s.DrumsPattern[0] }),
	SeqDrumsBdPatternH: highByte("bd-pattern-h", func(s *SequencerSettings) *uint16 { return &s.DrumsPattern[0] }),
	SeqDrumsSdPatternL: lowByte("sd-pattern-l", func(s *SequencerSettings) *uint16 { return &s.DrumsPattern[1] }),
	SeqDrumsSdPatternH: highByte("sd-pattern-h", func(s *SequencerSettings) *uint16 { return &s.DrumsPattern[1] }),
	SeqDrumsHhPatternL: lowByte("hh-pattern-l", func(s *SequencerSettings) *uint16 { return &s.DrumsPattern[2] }),
	SeqDrumsHhPatternH: highByte("hh-pattern-h", func(s *SequencerSettings) *uint16 { return &s.DrumsPattern[2] }),
	SeqArpAcidity:      seqByte("acidity", func(s *SequencerSettings) *uint8 { return &s.Acidity }).limit(0, 15),
	SeqPadding1:        padding[SequencerSettings](),
	SeqPadding2:        padding[SequencerSettings](),
}

func (id SeqParam) String() string {
	if id < NumSeqParams && seqFields[id].name != "" {
		return seqFields[id].name
	}
	return fmt.Sprintf("seq[%d]", uint8(id))
}

func LookupSeqParam(name string) (SeqParam, bool) {
	for id, f := range seqFields {
		if f.name != "" && f.name == name {
			return SeqParam(id), true
		}
	}
	return 0, false
}

func (s *SequencerSettings) Get(id SeqParam) uint8 {
	if id >= NumSeqParams {
		return 0
	}
	return seqFields[id].get(s)
}

func (s *SequencerSettings) Set(id SeqParam, value uint8) {
	if id >= NumSeqParams {
		return
	}
	seqFields[id].set(s, value)
}

func (s *SequencerSettings) MarshalBinary() ([]byte, error) {
	return marshalFields(s, seqFields[:]), nil
}

func (s *SequencerSettings) UnmarshalBinary(data []byte) error {
	return unmarshalFields(s, seqFields[:], data)
}

// Special step values of a Sequence.
const (
	StepRest = 0xff
	StepTie  = 0xfe
)

const MaxSequenceLength = 128

// Sequence is a recorded step sequence. Accent and slide flags are stored
// as one bit per step.
type Sequence struct {
	NumNotes uint8
	Notes    [MaxSequenceLength]uint8
	Accents  [MaxSequenceLength / 8]uint8
	Slides   [MaxSequenceLength / 8]uint8
}

const sequenceSize = 1 + MaxSequenceLength + 2*MaxSequenceLength/8

func (s *Sequence) Reset() {
	*s = Sequence{NumNotes: 4}
	copy(s.Notes[:], []uint8{60, 60, 48, 48})
}

func (s *Sequence) Accent(step int) bool { return s.Accents[step>>3]&(1<<(step&7)) != 0 }

func (s *Sequence) Slide(step int) bool { return s.Slides[step>>3]&(1<<(step&7)) != 0 }

func (s *Sequence) SetAccent(step int) { s.Accents[step>>3] |= 1 << (step & 7) }

func (s *Sequence) SetSlide(step int) { s.Slides[step>>3] |= 1 << (step & 7) }

// Steps returns the active part of the sequence.
func (s *Sequence) Steps() []uint8 { return s.Notes[:s.NumNotes] }

// Append adds a step and reports whether the sequence is now full.
func (s *Sequence) Append(note uint8) bool {
	if int(s.NumNotes) >= MaxSequenceLength {
		return true
	}
	s.Notes[s.NumNotes] = note
	s.NumNotes++
	return int(s.NumNotes) == MaxSequenceLength
}

func (s *Sequence) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, sequenceSize)
	b = append(b, s.NumNotes)
	b = append(b, s.Notes[:]...)
	b = append(b, s.Accents[:]...)
	b = append(b, s.Slides[:]...)
	return b, nil
}

func (s *Sequence) UnmarshalBinary(data []byte) error {
	if len(data) < sequenceSize {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrShortRecord, sequenceSize, len(data))
	}
	if data[0] > MaxSequenceLength {
		return fmt.Errorf("sequence length %d exceeds %d steps", data[0], MaxSequenceLength)
	}
	s.NumNotes = data[0]
	data = data[1:]
	data = data[copy(s.Notes[:], data):]
	data = data[copy(s.Accents[:], data):]
	copy(s.Slides[:], data)
	return nil
}
