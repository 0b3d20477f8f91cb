package synth

import (
	"fmt"
	"sync/atomic"
)

// MIDI controllers handled by the voice itself.
const (
	ccModWheel = 1
	ccBreath   = 2
	ccVolume   = 7
)

// Fixed calibration of the filter CV, in 1/128 semitones.
const (
	vcfCvOffset = 60 * 128
	vcfCvScale  = 32000 / 3
)

// breakNote is the pitch, in 1/128 semitones, where the VCO calibration
// switches from the low to the high scale.
const breakNote = 60 * 128

// Voice turns notes, controllers and the patch into CV samples. Everything
// except ReadDACStateSample runs on the main loop.
type Voice struct {
	patch    Patch
	settings *SystemSettings
	storage  *Storage

	lfo        *Lfo
	vibratoLfo *Lfo

	vcfEnvelope Envelope
	modEnvelope Envelope
	vcaEnvelope Envelope

	dirty       bool
	retriggered bool
	gatePulse   bool
	lfo8Bits    uint8
	dcoPitch    int32

	pitchCounter   uint16
	pitchIncrement uint16
	pitchSource    int16
	pitchTarget    int16
	pitch          int16

	pitchBend  uint16
	modWheel   uint8
	modWheel2  uint8
	aftertouch uint8
	velocity   uint8
	accent     uint8
	volume     uint8

	ring dacRing

	// Tick context.
	current  DACState
	locked   atomic.Bool
	lockedTo atomic.Pointer[DACState]
}

func NewVoice(settings *SystemSettings, storage *Storage, random *Random) *Voice {
	v := &Voice{
		settings:   settings,
		storage:    storage,
		lfo:        NewLfo(random),
		vibratoLfo: NewLfo(random),
	}
	v.patch.Reset()
	v.Init()
	return v
}

// Init loads the patch from storage and resets the performance state.
func (v *Voice) Init() {
	if v.storage != nil {
		v.storage.Load(&v.patch)
	}
	v.vcfEnvelope.Init()
	v.vcaEnvelope.Init()
	v.modEnvelope.Init()

	v.pitch = 0
	v.locked.Store(false)
	v.dirty = false
	v.retriggered = false
	v.volume = 240

	v.ResetAllControllers()
	v.UpdateEnvelopeParameters()
}

func (v *Voice) ControlChange(controller, value uint8) {
	switch controller {
	case ccVolume:
		v.volume = value << 1
	case ccModWheel:
		v.modWheel = value
	case ccBreath:
		v.modWheel2 = value
	}
}

// SetValue writes one byte of the patch and marks the patch dirty when it
// changes.
func (v *Voice) SetValue(id PatchParam, value uint8) {
	previous := v.patch.Get(id)
	v.patch.Set(id, value)
	if id >= PatchEnvAttack && id < PatchEnvPadding1 {
		v.UpdateEnvelopeParameters()
	}
	if previous != value {
		v.dirty = true
	}
}

func (v *Voice) GetValue(id PatchParam) uint8 { return v.patch.Get(id) }

func (v *Voice) Patch() Patch { return v.patch }

// SetPatch replaces the whole patch, as when loading a preset.
func (v *Voice) SetPatch(p Patch) {
	v.patch = p
	v.dirty = true
	v.UpdateEnvelopeParameters()
}

// UpdateEnvelopeParameters derives the three envelopes from the patch. The
// VCA envelope morphs from the filter envelope towards an organ-like shape.
func (v *Voice) UpdateEnvelopeParameters() {
	p := &v.patch
	v.vcfEnvelope.Update(p.EnvAttack, p.EnvDecay, p.EnvSustain, p.EnvRelease)
	v.modEnvelope.Update(p.EnvAttack, p.EnvDecay, 0, p.EnvDecay)

	var a, d, s, r uint8
	if morph := p.EnvVcaMorph; morph < 128 {
		morph <<= 1
		a = u8Mix(p.EnvAttack, 0, morph)
		d = u8Mix(p.EnvDecay, p.EnvDecay>>1, morph)
		s = u8Mix(p.EnvSustain, 192, morph)
		r = u8Mix(p.EnvRelease, p.EnvRelease>>1, morph)
	} else {
		morph = (morph - 128) << 1
		d = u8Mix(p.EnvDecay>>1, 0, morph)
		s = u8Mix(192, 255, morph)
		r = u8Mix(p.EnvRelease>>1, 8, morph)
	}
	v.vcaEnvelope.Update(a, d, s, r)
}

// PitchBend takes the 14 bit bend value, centered on 8192.
func (v *Voice) PitchBend(value uint16) { v.pitchBend = value }

func (v *Voice) Aftertouch(value uint8) { v.aftertouch = value }

func (v *Voice) AllSoundOff() {
	v.vcaEnvelope.Trigger(SegmentDead)
	v.vcfEnvelope.Trigger(SegmentDead)
	v.modEnvelope.Trigger(SegmentDead)
}

func (v *Voice) ResetAllControllers() {
	v.pitchBend = 8192
	v.modWheel = 0
	v.modWheel2 = 0
	v.aftertouch = 0
}

// Refresh fills the DAC ring.
func (v *Voice) Refresh() {
	for v.ring.writable() > 0 {
		v.WriteDACStateSample()
	}
}

// WriteDACStateSample computes one sample of the four CVs into the next
// free ring slot.
func (v *Voice) WriteDACStateSample() {
	p := &v.patch
	out := v.ring.slot()

	v.lfo.SetShape(LfoShape(p.LfoShape))
	if p.LfoRate >= 2 {
		v.lfo.SetPhaseIncrement(lfoIncrements[p.LfoRate])
	}
	v.vibratoLfo.SetPhaseIncrement(lfoIncrements[96+int(p.VibratoRate>>1)])

	// The mod wheel is split between vibrato and filter growl.
	var wheelPitch, wheelGrowl uint8
	if dest := p.VibratoDestination; dest < 128 {
		wheelPitch = v.modWheel
		wheelGrowl = u8MulShift8(dest<<1, v.modWheel)
	} else {
		dest = ^dest
		wheelGrowl = v.modWheel
		wheelPitch = u8MulShift8(dest<<1, v.modWheel)
	}

	lfoUnsigned := v.lfo.Render()
	lfo := int16(lfoUnsigned - 32768)
	vibrato := int16(v.vibratoLfo.Render() - 32768)
	v.lfo8Bits = uint8(lfoUnsigned >> 8)
	modEnvelope := v.modEnvelope.Render()

	// VCO
	v.pitchCounter += v.pitchIncrement
	if v.pitchCounter < v.pitchIncrement {
		v.pitchCounter = 0xffff
		v.pitchIncrement = 0
	}
	if v.pitchCounter == 0xffff {
		v.pitch = v.pitchTarget
	} else {
		v.pitch = mixSigned(v.pitchSource, v.pitchTarget, v.pitchCounter)
	}
	pitch := int32(v.pitch)
	pitch += (int32(v.pitchBend) - 8192) >> 5
	pitch += int32(s8U8Mul(p.VcoDcoRange, 6)) << 8
	pitch += int32(p.VcoDcoFine)
	pitch += int32(s8U8MulShift8(int8(vibrato>>8), wheelPitch))
	v.dcoPitch = pitch

	pitch += int32(s8U8Mul(p.VcoDetune, 128))
	pitch += int32(p.VcoFine)
	pitch += int32(u16U8MulShift8(modEnvelope, p.VcoEnvAmount) >> 4)
	pitch += int32(s16U8MulShift8(lfo, p.VcoLfoAmount) >> 4)
	out.VCO = v.calibrate(pitch)

	// PW
	pw := int32(u16U8MulShift8(modEnvelope, p.PwEnvAmount) >> 2)
	pw += int32(u16U8MulShift8(lfoUnsigned, p.PwLfoAmount) >> 2)
	out.PW = clip12(pw >> 2)

	// VCF
	vcfEnvelope := v.vcfEnvelope.Render()
	cutoff := int32(60 * 128)
	cutoff += int32(s16U8MulShift8(clip16(v.dcoPitch-60*128), p.CutoffTracking)) << 1
	cutoff += int32(s8U8Mul(int8(p.CutoffBias+128), 64))
	growl := uint16(wheelGrowl) + uint16(v.modWheel2)
	if growl > 255 {
		growl = 255
	}
	cutoff += int32(s16U8MulShift8(vibrato, uint8(growl)) >> 3)
	envAmount := uint16(p.CutoffEnvAmount) + uint16(v.accent>>1)
	envAmount += uint16(u8MulShift8(v.velocity, p.KbdVelocityVcfAmount))
	if envAmount > 255 {
		envAmount = 255
	}
	cutoff += int32(u16U8MulShift8(vcfEnvelope, uint8(envAmount)) >> 2)
	cutoff += int32(s16U8MulShift8(lfo, p.CutoffLfoAmount) >> 3)
	out.VCF = clip12(int32((int64(cutoff-vcfCvOffset)*vcfCvScale)>>16) + 2048)

	// VCA
	vca := u16U8MulShift8(v.vcaEnvelope.Render(), u8Mix(255, v.velocity<<1, p.KbdVelocityVcaAmount))
	vca = u16U8MulShift8(vca, v.volume)
	out.VCA = vca >> 4

	out.Gate = v.vcaEnvelope.Gate()
	if v.gatePulse {
		out.Gate = false
		v.gatePulse = false
	}
	v.ring.commit()
}

// calibrate maps a pitch in 1/128 semitones to the VCO CV, with separate
// scales below and above the break note.
func (v *Voice) calibrate(pitch int32) uint16 {
	scale := int64(v.settings.VcoCvScaleHigh)
	if pitch < breakNote {
		scale = int64(v.settings.VcoCvScaleLow)
	}
	cv := (int64(pitch-int32(v.settings.VcoCvOffset)) * scale) >> 16
	return clip12(int32(cv) + 2048)
}

func clip16(v int32) int16 {
	if v < -32768 {
		return -32768
	}
	if v > 32767 {
		return 32767
	}
	return int16(v)
}

func (v *Voice) GateOn() {
	if v.Gate() {
		v.retriggered = true
		v.gatePulse = true
	}
	v.vcaEnvelope.Trigger(SegmentAttack)
	v.vcfEnvelope.Trigger(SegmentAttack)
	v.modEnvelope.Trigger(SegmentAttack)
}

func (v *Voice) GateOff() {
	v.vcaEnvelope.Trigger(SegmentRelease)
	v.vcfEnvelope.Trigger(SegmentRelease)
	v.modEnvelope.Trigger(SegmentRelease)
}

// NoteOn starts a note. A legato note doesn't retrigger the envelopes when
// the legato mode is enabled. Slide lengthens the glide and accent is added
// to the velocity.
func (v *Voice) NoteOn(note, velocity, slide, accent uint8, legato bool) {
	legatoMode := v.patch.EnvLegatoMode != 0
	if !legato || !legatoMode {
		v.GateOn()
	}
	v.pitchSource = v.pitch
	v.pitchTarget = int16(u8Mul(note, 128))
	vel := uint16(velocity) + uint16(accent)
	if vel > 127 {
		vel = 127
	}
	v.velocity = uint8(vel)
	v.accent = accent

	// In legato mode only notes played legato glide.
	if v.pitchSource == 0 || (!legato && legatoMode) {
		v.pitchSource = v.pitchTarget
	}
	slideTime := uint16(v.patch.KbdGlide) + uint16(slide)
	if slideTime > 255 {
		slideTime = 255
	}
	v.pitchIncrement = glideIncrements[slideTime]
	v.pitchCounter = 0
}

func (v *Voice) NoteOff(note uint8) {
	if note != NoNote {
		v.GateOff()
	}
}

// SetNote jumps to a note without glide or envelope.
func (v *Voice) SetNote(note uint8) {
	v.pitchTarget = int16(u8Mul(note, 128))
	v.pitch = v.pitchTarget
	v.pitchSource = v.pitchTarget
	v.pitchIncrement = 0
	v.pitchCounter = 0xffff
}

// SetLfoPllTargetPhase locks the LFO to the clock when its rate is set to
// one of the two sync positions. step counts clock events, 24 per cycle.
func (v *Voice) SetLfoPllTargetPhase(step uint8) {
	if v.patch.LfoRate < 2 {
		v.lfo.SetTargetPhase(uint16(step) * 2730)
	}
}

// SavePatch writes the patch to storage if it changed since the last save.
func (v *Voice) SavePatch() error {
	var err error
	if v.dirty && v.storage != nil {
		err = v.storage.Save(&v.patch)
	}
	v.dirty = false
	if err != nil {
		return fmt.Errorf("save patch: %w", err)
	}
	return nil
}

func (v *Voice) ResetToFactoryDefaults() error {
	if v.storage == nil {
		v.patch.Reset()
		return nil
	}
	return v.storage.ResetToFactoryDefaults(&v.patch)
}

func (v *Voice) Dirty() bool { return v.dirty }

// Gate reports whether the amplitude envelope is before its release.
func (v *Voice) Gate() bool { return v.vcaEnvelope.Gate() }

func (v *Voice) Retriggered() bool { return v.retriggered }

func (v *Voice) ClearRetriggeredFlag() { v.retriggered = false }

// AtRest reports whether the amplitude envelope has died out.
func (v *Voice) AtRest() bool { return v.vcaEnvelope.Segment() == SegmentDead }

// DCOPitch is the pitch of the oscillator before detune and modulation.
func (v *Voice) DCOPitch() int32 { return v.dcoPitch }

// LFO is the last output of the main LFO, 8 bits.
func (v *Voice) LFO() uint8 { return v.lfo8Bits }

// Lock overrides the pipeline output with fixed CVs until Unlock.
func (v *Voice) Lock(vco, pw, vcf, vca uint16) {
	v.lockedTo.Store(&DACState{VCO: vco, PW: pw, VCF: vcf, VCA: vca, Gate: true})
	v.locked.Store(true)
}

func (v *Voice) Unlock() { v.locked.Store(false) }

func (v *Voice) Locked() bool { return v.locked.Load() }

// ReadDACStateSample returns the next sample to send to the DAC. It runs in
// the tick context. On an empty ring the previous sample is repeated.
func (v *Voice) ReadDACStateSample() DACState {
	if v.locked.Load() {
		if s := v.lockedTo.Load(); s != nil {
			return *s
		}
	}
	if s, ok := v.ring.pop(); ok {
		v.current = s
	}
	return v.current
}
