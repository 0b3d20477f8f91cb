package synth

// Bits of SystemSettings.MidiOutMode.
const (
	MidiOutThru        = 1 << 0
	MidiOutNotes       = 1 << 1
	MidiOutDrumNotes   = 1 << 2
	MidiOutTransport   = 1 << 3
	MidiOutControllers = 1 << 4
)

// Number of clock events per sequencer step for each ppqn setting, and
// the matching clock prescaler when the clock runs internally.
var (
	clockDivisions  = [...]uint8{1, 2, 6}
	clockPrescalers = [...]uint8{6, 3, 1}
)

// SystemSettings holds the MIDI configuration and the VCO calibration.
type SystemSettings struct {
	MidiChannel   uint8
	MidiOutMode   uint8
	ClockPpqn     uint8
	ReferenceNote uint8

	VcoCvOffset    uint16
	VcoCvScaleLow  uint16
	VcoCvScaleHigh uint16
}

var factorySystemSettings = SystemSettings{
	MidiOutMode:    0xff,
	ClockPpqn:      2,
	ReferenceNote:  60,
	VcoCvOffset:    7680,
	VcoCvScaleLow:  21333,
	VcoCvScaleHigh: 21333,
}

func (s *SystemSettings) Reset() { *s = factorySystemSettings }

// ChangePpqn cycles through the clock resolutions.
func (s *SystemSettings) ChangePpqn() {
	s.ClockPpqn = (s.ClockPpqn + 1) % uint8(len(clockDivisions))
}

// ClockDivision is the number of clock events per sequencer step.
func (s *SystemSettings) ClockDivision() uint8 {
	return clockDivisions[s.ClockPpqn%uint8(len(clockDivisions))]
}

func (s *SystemSettings) ClockPrescaler() uint8 {
	return clockPrescalers[s.ClockPpqn%uint8(len(clockPrescalers))]
}

var systemFields = [...]field[SystemSettings]{
	byteField("midi-channel", func(s *SystemSettings) *uint8 { return &s.MidiChannel }).limit(0, 16),
	byteField("midi-out", func(s *SystemSettings) *uint8 { return &s.MidiOutMode }),
	byteField("ppqn", func(s *SystemSettings) *uint8 { return &s.ClockPpqn }).limit(0, 2),
	byteField("reference-note", func(s *SystemSettings) *uint8 { return &s.ReferenceNote }).limit(0, 127),
	padding[SystemSettings](),
	padding[SystemSettings](),
	lowByte("offset-l", func(s *SystemSettings) *uint16 { return &s.VcoCvOffset }),
	highByte("offset-h", func(s *SystemSettings) *uint16 { return &s.VcoCvOffset }),
	lowByte("scale-low-l", func(s *SystemSettings) *uint16 { return &s.VcoCvScaleLow }),
	highByte("scale-low-h", func(s *SystemSettings) *uint16 { return &s.VcoCvScaleLow }),
	lowByte("scale-high-l", func(s *SystemSettings) *uint16 { return &s.VcoCvScaleHigh }),
	highByte("scale-high-h", func(s *SystemSettings) *uint16 { return &s.VcoCvScaleHigh }),
	padding[SystemSettings](),
	padding[SystemSettings](),
	padding[SystemSettings](),
	padding[SystemSettings](),
}

func (s *SystemSettings) MarshalBinary() ([]byte, error) {
	return marshalFields(s, systemFields[:]), nil
}

func (s *SystemSettings) UnmarshalBinary(data []byte) error {
	return unmarshalFields(s, systemFields[:], data)
}

// System owns the persisted SystemSettings.
type System struct {
	SystemSettings
	storage *Storage
}

func NewSystem(storage *Storage) *System {
	s := &System{storage: storage}
	s.Reset()
	if storage != nil {
		storage.Load(&s.SystemSettings)
	}
	return s
}

func (s *System) save() error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Save(&s.SystemSettings)
}

// ReceiveChannel reports whether messages on a channel are for the voice.
func (s *System) ReceiveChannel(channel uint8) bool {
	return channel == s.MidiChannel
}

func (s *System) SetMidiChannel(channel uint8) error {
	s.MidiChannel = channel
	return s.save()
}

// LearnMidiChannel sets the channel and the reference note from the first
// note received in learn mode.
func (s *System) LearnMidiChannel(channel, note uint8) error {
	s.MidiChannel = channel
	s.ReferenceNote = note
	return s.save()
}

func (s *System) SetMidiOutMode(mode uint8) error {
	s.MidiOutMode = mode
	return s.save()
}

func (s *System) SetPpqn(ppqn uint8) error {
	s.ClockPpqn = ppqn % uint8(len(clockDivisions))
	return s.save()
}

// SetCalibration stores the result of a tuning run.
func (s *System) SetCalibration(offset, scaleLow, scaleHigh uint16) error {
	s.VcoCvOffset = offset
	s.VcoCvScaleLow = scaleLow
	s.VcoCvScaleHigh = scaleHigh
	return s.save()
}

func (s *System) ResetToFactoryDefaults() error {
	s.Reset()
	return s.save()
}
