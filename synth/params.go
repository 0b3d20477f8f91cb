package synth

import "fmt"

type Domain uint8

const (
	DomainPatch Domain = iota
	DomainSequencer
)

// Unit tells how an 8 bit control position maps to a stored value.
type Unit uint8

const (
	UnitRaw Unit = iota
	UnitUint8
	UnitInt8
	UnitQuantizedPitch
	UnitCrossfade
	UnitTempo
)

// ParamID identifies a logical parameter. The numbering is the one used by
// the controller map and must not change.
type ParamID uint8

const (
	ParamVcoModBalance ParamID = iota
	ParamVcoEnvAmount
	ParamVcoLfoAmount
	ParamPwModBalance
	ParamPwEnvAmount
	ParamPwLfoAmount
	ParamCutoffBias
	ParamCutoffTracking
	ParamCutoffEnvAmount
	ParamCutoffLfoAmount
	ParamGlide
	ParamVcoDetune
	ParamVcoFine
	ParamLfoShape
	ParamLfoRate
	ParamEnvAttack
	ParamEnvDecay
	ParamEnvSustain
	ParamEnvRelease
	ParamEnvVcaMorph
	ParamEnvLegatoMode
	ParamSeqTempo
	ParamSeqSwing
	ParamArpMode
	ParamArpPattern
	ParamArpAcidity
	ParamVcoDcoRange
	ParamVcoDcoFine
	ParamVelocityMod
	ParamVcfVelocityAmount
	ParamVcaVelocityAmount
	ParamVibratoRate
	ParamVibratoDestination
	ParamDrumsX
	ParamDrumsY
	ParamDrumsBdDensity
	ParamDrumsSdDensity
	ParamDrumsHhDensity
	ParamDrumsBdTone
	ParamDrumsSdTone
	ParamDrumsHhTone
	ParamDrumsBalance
	ParamDrumsBandwidth
	ParamUnassigned
	NumParams
)

// ParamNone is returned by LookupCC for unmapped controllers.
const ParamNone ParamID = 0xff

type Parameter struct {
	Name   string
	Domain Domain
	// Offset is a PatchParam or a SeqParam, depending on Domain.
	Offset uint8
	Unit   Unit
	Min    int
	Max    int
}

func patchParam(name string, offset PatchParam, unit Unit, min, max int) Parameter {
	return Parameter{Name: name, Domain: DomainPatch, Offset: uint8(offset), Unit: unit, Min: min, Max: max}
}

func seqParam(name string, offset SeqParam, unit Unit, min, max int) Parameter {
	return Parameter{Name: name, Domain: DomainSequencer, Offset: uint8(offset), Unit: unit, Min: min, Max: max}
}

var parameters = [NumParams]Parameter{
	ParamVcoModBalance:      patchParam("vco-mod", PatchVcoEnvAmount, UnitCrossfade, 0, 0),
	ParamVcoEnvAmount:       patchParam("vco-env", PatchVcoEnvAmount, UnitRaw, 0, 0),
	ParamVcoLfoAmount:       patchParam("vco-lfo", PatchVcoLfoAmount, UnitRaw, 0, 0),
	ParamPwModBalance:       patchParam("pw-mod", PatchPwEnvAmount, UnitCrossfade, 0, 0),
	ParamPwEnvAmount:        patchParam("pw-env", PatchPwEnvAmount, UnitRaw, 0, 0),
	ParamPwLfoAmount:        patchParam("pw-lfo", PatchPwLfoAmount, UnitRaw, 0, 0),
	ParamCutoffBias:         patchParam("cutoff", PatchCutoffBias, UnitRaw, 0, 0),
	ParamCutoffTracking:     patchParam("tracking", PatchCutoffTracking, UnitRaw, 0, 0),
	ParamCutoffEnvAmount:    patchParam("cutoff-env", PatchCutoffEnvAmount, UnitRaw, 0, 0),
	ParamCutoffLfoAmount:    patchParam("cutoff-lfo", PatchCutoffLfoAmount, UnitRaw, 0, 0),
	ParamGlide:              patchParam("glide", PatchKbdGlide, UnitRaw, 0, 0),
	ParamVcoDetune:          patchParam("detune", PatchVcoDetune, UnitQuantizedPitch, 0, 0),
	ParamVcoFine:            patchParam("fine", PatchVcoFine, UnitInt8, -32, 32),
	ParamLfoShape:           patchParam("lfo-shape", PatchLfoShape, UnitUint8, int(LfoTriangle), int(LfoNoise)),
	ParamLfoRate:            patchParam("lfo-rate", PatchLfoRate, UnitRaw, 0, 0),
	ParamEnvAttack:          patchParam("attack", PatchEnvAttack, UnitRaw, 0, 0),
	ParamEnvDecay:           patchParam("decay", PatchEnvDecay, UnitRaw, 0, 0),
	ParamEnvSustain:         patchParam("sustain", PatchEnvSustain, UnitRaw, 0, 0),
	ParamEnvRelease:         patchParam("release", PatchEnvRelease, UnitRaw, 0, 0),
	ParamEnvVcaMorph:        patchParam("vca-morph", PatchEnvVcaMorph, UnitRaw, 0, 0),
	ParamEnvLegatoMode:      patchParam("legato", PatchEnvLegatoMode, UnitRaw, 0, 0),
	ParamSeqTempo:           seqParam("tempo", SeqTempo, UnitTempo, 20, 240),
	ParamSeqSwing:           seqParam("swing", SeqSwing, UnitRaw, 0, 0),
	ParamArpMode:            seqParam("arp-mode", SeqArpMode, UnitUint8, 0, 8),
	ParamArpPattern:         seqParam("arp-pattern", SeqArpPattern, UnitUint8, 0, 5),
	ParamArpAcidity:         seqParam("acidity", SeqArpAcidity, UnitUint8, 0, 15),
	ParamVcoDcoRange:        patchParam("dco-range", PatchVcoDcoRange, UnitInt8, -2, 2),
	ParamVcoDcoFine:         patchParam("dco-fine", PatchVcoDcoFine, UnitInt8, -127, 127),
	ParamVelocityMod:        patchParam("velocity-mod", PatchKbdVelocityVcfAmount, UnitCrossfade, 0, 0),
	ParamVcfVelocityAmount:  patchParam("vcf-velocity", PatchKbdVelocityVcfAmount, UnitRaw, 0, 0),
	ParamVcaVelocityAmount:  patchParam("vca-velocity", PatchKbdVelocityVcaAmount, UnitRaw, 0, 0),
	ParamVibratoRate:        patchParam("vibrato-rate", PatchVibratoRate, UnitRaw, 0, 0),
	ParamVibratoDestination: patchParam("vibrato-dest", PatchVibratoDestination, UnitRaw, 0, 0),
	ParamDrumsX:             seqParam("drums-x", SeqDrumsX, UnitRaw, 0, 0),
	ParamDrumsY:             seqParam("drums-y", SeqDrumsY, UnitRaw, 0, 0),
	ParamDrumsBdDensity:     seqParam("bd-density", SeqDrumsBdDensity, UnitRaw, 0, 0),
	ParamDrumsSdDensity:     seqParam("sd-density", SeqDrumsSdDensity, UnitRaw, 0, 0),
	ParamDrumsHhDensity:     seqParam("hh-density", SeqDrumsHhDensity, UnitRaw, 0, 0),
	ParamDrumsBdTone:        seqParam("bd-tone", SeqDrumsBdTone, UnitRaw, 0, 0),
	ParamDrumsSdTone:        seqParam("sd-tone", SeqDrumsSdTone, UnitRaw, 0, 0),
	ParamDrumsHhTone:        seqParam("hh-tone", SeqDrumsHhTone, UnitRaw, 0, 0),
	ParamDrumsBalance:       seqParam("drums-balance", SeqDrumsBalance, UnitRaw, 0, 0),
	ParamDrumsBandwidth:     seqParam("drums-bandwidth", SeqDrumsBandwidth, UnitRaw, 0, 0),
	ParamUnassigned:         seqParam("", SeqArpMode, UnitRaw, 0, 0),
}

var ccMap = func() [116]ParamID {
	var m [116]ParamID
	for i := range m {
		m[i] = ParamNone
	}
	assign := func(cc int, ids ...ParamID) { copy(m[cc:], ids) }
	assign(5, ParamGlide)
	assign(16, ParamVcoEnvAmount, ParamVcoLfoAmount, ParamPwEnvAmount, ParamPwLfoAmount,
		ParamCutoffEnvAmount, ParamCutoffLfoAmount, ParamCutoffBias, ParamCutoffTracking)
	assign(24, ParamEnvAttack, ParamEnvDecay, ParamEnvSustain, ParamEnvRelease,
		ParamEnvVcaMorph, ParamVcfVelocityAmount, ParamVcaVelocityAmount, ParamEnvLegatoMode)
	assign(48, ParamVcoDcoRange, ParamVcoDcoFine, ParamVcoDetune, ParamVcoFine,
		ParamVibratoRate, ParamVibratoDestination, ParamLfoShape, ParamLfoRate)
	assign(72, ParamEnvRelease, ParamEnvAttack, ParamCutoffBias, ParamEnvDecay,
		ParamLfoRate, ParamVcoLfoAmount)
	assign(102, ParamDrumsX, ParamDrumsY,
		ParamDrumsBdDensity, ParamDrumsSdDensity, ParamDrumsHhDensity,
		ParamDrumsBdTone, ParamDrumsSdTone, ParamDrumsHhTone,
		ParamDrumsBalance, ParamDrumsBandwidth)
	assign(112, ParamSeqSwing, ParamArpMode, ParamArpPattern, ParamArpAcidity)
	return m
}()

// LookupCC returns the parameter a MIDI controller is mapped to, or
// ParamNone.
func LookupCC(cc uint8) ParamID {
	if int(cc) >= len(ccMap) {
		return ParamNone
	}
	return ccMap[cc]
}

// LookupParameter finds a parameter by name.
func LookupParameter(name string) (ParamID, bool) {
	for id, p := range parameters {
		if p.Name != "" && p.Name == name {
			return ParamID(id), true
		}
	}
	return 0, false
}

func (id ParamID) String() string {
	if id < NumParams && parameters[id].Name != "" {
		return parameters[id].Name
	}
	return fmt.Sprintf("param[%d]", uint8(id))
}

// Definition returns the table entry of a parameter.
func (id ParamID) Definition() Parameter {
	if id >= NumParams {
		return parameters[ParamUnassigned]
	}
	return parameters[id]
}

// Scale maps an 8 bit control position to the stored value.
func (p Parameter) Scale(value uint8) uint8 {
	switch p.Unit {
	case UnitRaw, UnitCrossfade:
		return value
	case UnitQuantizedPitch:
		return wavPitchDeadband[value]
	}
	r := uint8(p.Max - p.Min + 1)
	scaled := u8MulShift8(r, value) + uint8(p.Min)
	if p.Unit == UnitTempo {
		if scaled >= 239 {
			scaled = 240
		}
		if scaled < 40 {
			scaled = 0
		}
	}
	return scaled
}

// Unscale returns a control position that scales to value. When no
// position gives value exactly, the position giving the nearest value is
// returned.
func (p Parameter) Unscale(value uint8) uint8 {
	if p.Unit == UnitRaw || p.Unit == UnitCrossfade {
		return value
	}
	signed := p.Unit == UnitInt8 || p.Unit == UnitQuantizedPitch
	distance := func(a, b uint8) int {
		d := int(a) - int(b)
		if signed {
			d = int(int8(a)) - int(int8(b))
		}
		if d < 0 {
			return -d
		}
		return d
	}
	best, bestDistance := uint8(0), 256
	for i := 0; i < 256; i++ {
		d := distance(p.Scale(uint8(i)), value)
		if d == 0 {
			return uint8(i)
		}
		if d < bestDistance {
			best, bestDistance = uint8(i), d
		}
	}
	return best
}
