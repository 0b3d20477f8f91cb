package synth

import "math"

const (
	// TickRate is the rate, in Hz, at which Engine.Tick is expected to run.
	TickRate = 20000000.0 / 510
	// ControlRate is the rate at which DAC samples are consumed.
	ControlRate = TickRate / 16

	controlTicks = 16
)

var (
	lfoIncrements   [256]uint32
	envIncrements   [256]uint32
	glideIncrements [256]uint16
	envExpo         [257]uint16

	// Maps a 0..255 control position to a crossfade position with a flat
	// region in the middle.
	wavDeadband [256]uint8
	// Maps a 0..255 control position to a semitone offset with plateaus on
	// every octave.
	wavPitchDeadband [256]uint8
)

// Groove templates, one signed offset per 16th note.
const (
	GrooveSwing = iota
	GrooveShuffle
	GroovePush
	GrooveLag
	GrooveHuman
	GrooveMonkey
	numGrooveTemplates
)

var grooveTemplates [numGrooveTemplates][16]int16

var arpPatterns = [...]uint16{
	xoxPattern("o-o- o-o- o-o- o-o-"),
	xoxPattern("o-o- oooo o-o- oooo"),
	xoxPattern("ooo- ooo- ooo- ooo-"),
	xoxPattern("o--o --o- -o-- o-o-"),
	xoxPattern("oo-o -oo- oo-o -oo-"),
	xoxPattern("oooo -oo- oooo -oo-"),
}

// Probability of sliding into, and accent level of, each step of an
// arpeggio. Both are scaled by the acidity setting.
var (
	arpSlideProbability = [16]uint8{1, 0, 4, 4, 2, 0, 8, 6, 1, 1, 0, 0, 0, 0, 15, 15}
	arpAccentLevel      = [16]uint8{16, 0, 2, 0, 1, 0, 0, 0, 8, 0, 1, 0, 4, 0, 2, 2}
)

func init() {
	initLfoIncrements()
	envIncrements = powerCurve32(12, 0.175)
	glideIncrements = powerCurve16(6, 0.1)
	initEnvExpo()
	initGrooveTemplates()
	initDeadbands()
}

func initLfoIncrements() {
	const (
		minFrequency = 1.0 / 16
		maxFrequency = 100.0
	)
	lo := math.Log(math.Exp2(32) * minFrequency / ControlRate)
	hi := math.Log(math.Exp2(32) * maxFrequency / ControlRate)
	for i := range lfoIncrements {
		lfoIncrements[i] = uint32(math.Exp(lerp(lo, hi, i, len(lfoIncrements))))
	}
	// The two slowest settings sync the LFO to the clock.
	lfoIncrements[0] = 0
	lfoIncrements[1] = 0
}

// powerCurve maps 256 positions to phase increments spanning 3 control
// samples to maxTime seconds, warped by gamma.
func powerCurve(full, maxTime, gamma float64) [256]float64 {
	minTime := 3 / ControlRate
	minIncrement := full / (maxTime * ControlRate)
	maxIncrement := full / (minTime * ControlRate)
	lo := math.Pow(maxIncrement, -gamma)
	hi := math.Pow(minIncrement, -gamma)

	var values [256]float64
	for i := range values {
		values[i] = math.Pow(lerp(lo, hi, i, len(values)), -1/gamma)
	}
	return values
}

func powerCurve32(maxTime, gamma float64) [256]uint32 {
	var out [256]uint32
	for i, v := range powerCurve(math.Exp2(32), maxTime, gamma) {
		out[i] = uint32(math.Min(v, math.MaxUint32))
	}
	return out
}

func powerCurve16(maxTime, gamma float64) [256]uint16 {
	var out [256]uint16
	for i, v := range powerCurve(65536, maxTime, gamma) {
		out[i] = uint16(math.Min(v, math.MaxUint16))
	}
	return out
}

func initEnvExpo() {
	var curve [257]float64
	for i := range curve {
		x := float64(i) / 256
		if i == len(curve)-1 {
			x = float64(i-1) / 256
		}
		curve[i] = 1 - math.Exp(-4*x)
	}
	peak := curve[len(curve)-1]
	for i, v := range curve {
		envExpo[i] = uint16(v / peak * 65535)
	}
}

func initGrooveTemplates() {
	raw := [numGrooveTemplates][16]float64{
		{1, 1, -1, -1, 1, 1, -1, -1, 1, 1, -1, -1, 1, 1, -1, -1},
		{1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1},
		{-0.5, -0.5, 1, 0, -1, 0, 0, 0.7, 0, 0, 0.7, -0.4, -0.7, 0, 0.7, 0.0},
		{0.1, 0.2, 0.4, 0, 0.15, -0.2, -0.35, -0.5,
			0.5, 0.15, -0.4, -0.2, 0.45, -0.2, 0.4, -0.2},
		{0.7, -0.8, 0.85, -0.75, 0.7, -0.7, 0.4, -0.3,
			0.5, -0.7, 0.8, -0.75, 0.8, -1, 0.5, -0.25},
		{0.5, -0.6, 0.6, -0.8, 0.6, -0.7, 0.8, -0.7,
			0.4, -0.5, 0.9, -0.6, 0.9, -0.8, 0.6, -0.6},
	}
	for t, values := range raw {
		grooveTemplates[t] = grooveTemplate(values)
	}
}

// grooveTemplate centers values, scales them to +/-127 and makes them sum
// to zero so a bar keeps its length.
func grooveTemplate(values [16]float64) [16]int16 {
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var peak float64
	for i := range values {
		values[i] -= mean
		peak = math.Max(peak, math.Abs(values[i]))
	}

	var out [16]int16
	var sum int16
	for i, v := range values {
		if peak > 0 {
			out[i] = int16(v * 127 / peak)
		}
		sum += out[i]
	}
	out[8] -= sum
	return out
}

func initDeadbands() {
	var ramp [124]float64
	for i := range ramp {
		ramp[i] = math.Pow(float64(i)/float64(len(ramp)-1), 3.2)
	}
	var deadband []float64
	for i := len(ramp) - 1; i >= 0; i-- {
		deadband = append(deadband, -ramp[i])
	}
	deadband = append(deadband, make([]float64, 8)...)
	deadband = append(deadband, ramp[:]...)
	for i, v := range deadband {
		wavDeadband[i] = uint8(math.RoundToEven((v + 1) / 2 * 255))
	}

	octave := make([]float64, 20, 60)
	for i := 0; i < 40; i++ {
		octave = append(octave, lerp(0, 12, i, 40))
	}
	var pitches []float64
	for _, shift := range []float64{-12, 0, 12, 24, 36} {
		for _, v := range octave {
			pitches = append(pitches, v+shift)
		}
	}
	for i := range wavPitchDeadband {
		wavPitchDeadband[i] = uint8(int8(pitches[i]))
	}
}

// lerp returns the i-th of n evenly spaced values between lo and hi.
func lerp(lo, hi float64, i, n int) float64 {
	return lo + (hi-lo)*float64(i)/float64(n-1)
}

func xoxPattern(s string) uint16 {
	var pattern uint16
	var i uint
	for _, c := range s {
		switch c {
		case 'o':
			pattern |= 1 << i
			i++
		case '-':
			i++
		}
	}
	return pattern
}

// Drum map nodes: 3 instruments x 16 steps of trigger levels.
var drumMapNodes = [9][48]uint8{
	{236, 0, 0, 138, 0, 0, 208, 0, 58, 28, 174, 0, 104, 0, 58, 0, 10, 66, 0, 8, 232, 0, 0, 38, 0, 148, 0, 14, 198, 0, 114, 0, 154, 98, 244, 34, 160, 108, 192, 24, 160, 98, 228, 20, 160, 92, 194, 44},
	{246, 10, 88, 14, 214, 10, 62, 8, 250, 8, 40, 14, 198, 14, 160, 120, 16, 186, 44, 52, 230, 12, 116, 18, 22, 154, 10, 18, 246, 88, 72, 58, 136, 130, 220, 64, 130, 120, 156, 32, 128, 112, 220, 32, 126, 106, 184, 88},
	{224, 0, 98, 0, 0, 68, 0, 198, 0, 136, 174, 0, 46, 28, 116, 12, 0, 94, 0, 0, 224, 160, 20, 34, 0, 52, 0, 0, 194, 0, 16, 118, 228, 104, 138, 90, 122, 102, 108, 76, 196, 160, 182, 160, 96, 36, 202, 22},
	{240, 204, 42, 0, 86, 108, 66, 104, 190, 22, 224, 0, 14, 148, 0, 36, 0, 0, 112, 62, 232, 180, 0, 34, 0, 48, 26, 18, 214, 18, 138, 38, 232, 186, 224, 182, 108, 60, 80, 62, 142, 42, 24, 34, 136, 14, 170, 26},
	{228, 14, 36, 24, 74, 54, 122, 26, 186, 14, 96, 34, 18, 30, 48, 12, 2, 0, 46, 38, 226, 0, 68, 0, 2, 0, 92, 30, 232, 166, 116, 22, 64, 12, 236, 128, 160, 30, 202, 74, 68, 28, 228, 120, 160, 28, 188, 82},
	{236, 24, 14, 54, 0, 0, 106, 0, 202, 220, 0, 178, 0, 160, 140, 8, 134, 82, 114, 160, 224, 0, 22, 44, 66, 40, 0, 0, 192, 22, 14, 158, 174, 86, 230, 58, 124, 64, 210, 58, 160, 76, 224, 22, 124, 34, 194, 26},
	{236, 0, 226, 0, 0, 0, 160, 0, 0, 0, 188, 0, 0, 0, 210, 0, 26, 188, 0, 62, 242, 102, 8, 160, 22, 216, 0, 48, 200, 112, 30, 22, 230, 212, 222, 228, 180, 14, 114, 32, 160, 38, 66, 12, 154, 22, 88, 36},
	{226, 0, 42, 0, 66, 0, 226, 14, 238, 0, 126, 0, 84, 10, 170, 22, 0, 0, 54, 0, 182, 0, 128, 36, 6, 10, 84, 10, 238, 8, 158, 26, 240, 46, 218, 24, 232, 0, 96, 0, 240, 28, 204, 30, 214, 0, 64, 0},
	{228, 0, 212, 0, 14, 0, 214, 0, 160, 52, 218, 0, 0, 0, 134, 32, 104, 0, 22, 84, 230, 22, 0, 58, 6, 0, 138, 20, 220, 18, 176, 34, 230, 26, 52, 24, 82, 28, 52, 118, 154, 26, 52, 24, 202, 212, 186, 196},
}

// drumMap arranges the nodes on a 3x3 grid addressed by the x/y settings.
var drumMap = [3][3]*[48]uint8{
	{&drumMapNodes[8], &drumMapNodes[3], &drumMapNodes[6]},
	{&drumMapNodes[2], &drumMapNodes[4], &drumMapNodes[0]},
	{&drumMapNodes[7], &drumMapNodes[1], &drumMapNodes[5]},
}

// readDrumMap returns the trigger level of an instrument at a step for a
// position on the map. Levels are blended bilinearly between nodes.
func readDrumMap(step, instrument, x, y uint8) uint8 {
	i, j := x>>7, y>>7
	offset := instrument<<4 + step
	a := drumMap[i][j][offset]
	b := drumMap[i+1][j][offset]
	c := drumMap[i][j+1][offset]
	d := drumMap[i+1][j+1][offset]
	return u8Mix(u8Mix(a, b, x<<1), u8Mix(c, d, x<<1), y<<1)
}
