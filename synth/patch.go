package synth

import (
	"errors"
	"fmt"
)

// ErrShortRecord is returned when decoding a record from too few bytes.
var ErrShortRecord = errors.New("short record")

// PatchParam identifies a patch byte. The values are the byte offsets of
// the stored patch.
type PatchParam uint8

const (
	PatchVcoDcoRange PatchParam = iota
	PatchVcoDcoFine
	PatchVcoDetune
	PatchVcoFine
	PatchVcoEnvAmount
	PatchVcoLfoAmount
	PatchPwEnvAmount
	PatchPwLfoAmount
	PatchCutoffBias
	PatchCutoffTracking
	PatchCutoffEnvAmount
	PatchCutoffLfoAmount
	PatchEnvAttack
	PatchEnvDecay
	PatchEnvSustain
	PatchEnvRelease
	PatchEnvVcaMorph
	PatchEnvLegatoMode
	PatchEnvPadding1
	PatchEnvPadding2
	PatchLfoShape
	PatchLfoRate
	PatchVibratoRate
	PatchVibratoDestination
	PatchKbdGlide
	PatchKbdVelocityVcfAmount
	PatchKbdVelocityVcaAmount
	PatchPadding
	NumPatchParams
)

type Patch struct {
	VcoDcoRange int8
	VcoDcoFine  int8
	VcoDetune   int8
	VcoFine     int8

	VcoEnvAmount uint8
	VcoLfoAmount uint8
	PwEnvAmount  uint8
	PwLfoAmount  uint8

	CutoffBias      uint8
	CutoffTracking  uint8
	CutoffEnvAmount uint8
	CutoffLfoAmount uint8

	EnvAttack     uint8
	EnvDecay      uint8
	EnvSustain    uint8
	EnvRelease    uint8
	EnvVcaMorph   uint8
	EnvLegatoMode uint8

	LfoShape           uint8
	LfoRate            uint8
	VibratoRate        uint8
	VibratoDestination uint8

	KbdGlide             uint8
	KbdVelocityVcfAmount uint8
	KbdVelocityVcaAmount uint8
}

var factoryPatch = Patch{
	PwLfoAmount:    128,
	CutoffBias:     128,
	CutoffTracking: 128,
	EnvDecay:       64,
	EnvSustain:     128,
	EnvRelease:     128,
	EnvVcaMorph:    128,
	LfoRate:        96,
	VibratoRate:    160,
}

func (p *Patch) Reset() { *p = factoryPatch }

// field is a named accessor for one byte of a stored record.
type field[T any] struct {
	name string
	get  func(*T) uint8
	set  func(*T, uint8)
	min  int
	max  int
}

func byteField[T any](name string, ptr func(*T) *uint8) field[T] {
	return field[T]{
		name: name,
		get:  func(v *T) uint8 { return *ptr(v) },
		set:  func(v *T, b uint8) { *ptr(v) = b },
		min:  0,
		max:  255,
	}
}

func int8Field[T any](name string, ptr func(*T) *int8, min, max int) field[T] {
	return field[T]{
		name: name,
		get:  func(v *T) uint8 { return uint8(*ptr(v)) },
		set:  func(v *T, b uint8) { *ptr(v) = int8(b) },
		min:  min,
		max:  max,
	}
}

func padding[T any]() field[T] {
	return field[T]{
		get: func(*T) uint8 { return 0 },
		set: func(*T, uint8) {},
	}
}

func (f field[T]) limit(min, max int) field[T] {
	f.min, f.max = min, max
	return f
}

var patchFields = [NumPatchParams]field[Patch]{
	PatchVcoDcoRange:          int8Field("dco-range", func(p *Patch) *int8 { return &p.VcoDcoRange }, -2, 2),
	PatchVcoDcoFine:           int8Field("dco-fine", func(p *Patch) *int8 { return &p.VcoDcoFine }, -127, 127),
	PatchVcoDetune:            int8Field("detune", func(p *Patch) *int8 { return &p.VcoDetune }, -128, 127),
	PatchVcoFine:              int8Field("fine", func(p *Patch) *int8 { return &p.VcoFine }, -128, 127),
	PatchVcoEnvAmount:         byteField("vco-env", func(p *Patch) *uint8 { return &p.VcoEnvAmount }),
	PatchVcoLfoAmount:         byteField("vco-lfo", func(p *Patch) *uint8 { return &p.VcoLfoAmount }),
	PatchPwEnvAmount:          byteField("pw-env", func(p *Patch) *uint8 { return &p.PwEnvAmount }),
	PatchPwLfoAmount:          byteField("pw-lfo", func(p *Patch) *uint8 { return &p.PwLfoAmount }),
	PatchCutoffBias:           byteField("cutoff", func(p *Patch) *uint8 { return &p.CutoffBias }),
	PatchCutoffTracking:       byteField("tracking", func(p *Patch) *uint8 { return &p.CutoffTracking }),
	PatchCutoffEnvAmount:      byteField("cutoff-env", func(p *Patch) *uint8 { return &p.CutoffEnvAmount }),
	PatchCutoffLfoAmount:      byteField("cutoff-lfo", func(p *Patch) *uint8 { return &p.CutoffLfoAmount }),
	PatchEnvAttack:            byteField("attack", func(p *Patch) *uint8 { return &p.EnvAttack }),
	PatchEnvDecay:             byteField("decay", func(p *Patch) *uint8 { return &p.EnvDecay }),
	PatchEnvSustain:           byteField("sustain", func(p *Patch) *uint8 { return &p.EnvSustain }),
	PatchEnvRelease:           byteField("release", func(p *Patch) *uint8 { return &p.EnvRelease }),
	PatchEnvVcaMorph:          byteField("vca-morph", func(p *Patch) *uint8 { return &p.EnvVcaMorph }),
	PatchEnvLegatoMode:        byteField("legato", func(p *Patch) *uint8 { return &p.EnvLegatoMode }),
	PatchEnvPadding1:          padding[Patch](),
	PatchEnvPadding2:          padding[Patch](),
	PatchLfoShape:             byteField("lfo-shape", func(p *Patch) *uint8 { return &p.LfoShape }).limit(0, int(LfoNoise)),
	PatchLfoRate:              byteField("lfo-rate", func(p *Patch) *uint8 { return &p.LfoRate }),
	PatchVibratoRate:          byteField("vibrato-rate", func(p *Patch) *uint8 { return &p.VibratoRate }),
	PatchVibratoDestination:   byteField("vibrato-dest", func(p *Patch) *uint8 { return &p.VibratoDestination }),
	PatchKbdGlide:             byteField("glide", func(p *Patch) *uint8 { return &p.KbdGlide }),
	PatchKbdVelocityVcfAmount: byteField("vcf-velocity", func(p *Patch) *uint8 { return &p.KbdVelocityVcfAmount }),
	PatchKbdVelocityVcaAmount: byteField("vca-velocity", func(p *Patch) *uint8 { return &p.KbdVelocityVcaAmount }),
	PatchPadding:              padding[Patch](),
}

func (id PatchParam) String() string {
	if id < NumPatchParams && patchFields[id].name != "" {
		return patchFields[id].name
	}
	return fmt.Sprintf("patch[%d]", uint8(id))
}

// LookupPatchParam finds a patch byte by name.
func LookupPatchParam(name string) (PatchParam, bool) {
	for id, f := range patchFields {
		if f.name != "" && f.name == name {
			return PatchParam(id), true
		}
	}
	return 0, false
}

func (p *Patch) Get(id PatchParam) uint8 {
	if id >= NumPatchParams {
		return 0
	}
	return patchFields[id].get(p)
}

func (p *Patch) Set(id PatchParam, value uint8) {
	if id >= NumPatchParams {
		return
	}
	patchFields[id].set(p, value)
}

func (p *Patch) MarshalBinary() ([]byte, error) {
	return marshalFields(p, patchFields[:]), nil
}

func (p *Patch) UnmarshalBinary(data []byte) error {
	return unmarshalFields(p, patchFields[:], data)
}

func marshalFields[T any](v *T, fields []field[T]) []byte {
	b := make([]byte, len(fields))
	for i, f := range fields {
		b[i] = f.get(v)
	}
	return b
}

func unmarshalFields[T any](v *T, fields []field[T], data []byte) error {
	if len(data) < len(fields) {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrShortRecord, len(fields), len(data))
	}
	for i, f := range fields {
		f.set(v, data[i])
	}
	return nil
}

// checkField validates a signed value against a field's range and returns
// its byte encoding.
func checkField[T any](f field[T], value int) (uint8, error) {
	if value < f.min || value > f.max {
		return 0, fmt.Errorf("%s: %d is not in range %d..%d", f.name, value, f.min, f.max)
	}
	return uint8(value), nil
}
