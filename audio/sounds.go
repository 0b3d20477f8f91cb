package audio

import (
	"math"
	"math/rand"
)

const builtinSeed = 808

// builtinSounds synthesizes a kick, a snare and a closed hat.
func builtinSounds(sampleRate float64) [NumParts]*Sound {
	rng := rand.New(rand.NewSource(builtinSeed))
	return [NumParts]*Sound{
		BassDrum:  kick(sampleRate),
		SnareDrum: snare(sampleRate, rng),
		HiHat:     hat(sampleRate, rng),
	}
}

func kick(sampleRate float64) *Sound {
	n := int(0.8 * sampleRate)
	buf := make([]float64, n)
	var phase float64
	for i := range buf {
		t := float64(i) / sampleRate
		freq := 45 + 110*math.Exp(-t*30)
		phase += 2 * math.Pi * freq / sampleRate
		buf[i] = math.Sin(phase) * math.Exp(-t*5)
	}
	return &Sound{buf: buf}
}

func snare(sampleRate float64, rng *rand.Rand) *Sound {
	n := int(0.4 * sampleRate)
	buf := make([]float64, n)
	for i := range buf {
		t := float64(i) / sampleRate
		tone := math.Sin(2*math.Pi*185*t) * math.Exp(-t*25)
		noise := (rng.Float64()*2 - 1) * math.Exp(-t*12)
		buf[i] = 0.4*tone + 0.6*noise
	}
	return &Sound{buf: buf}
}

func hat(sampleRate float64, rng *rand.Rand) *Sound {
	n := int(0.3 * sampleRate)
	buf := make([]float64, n)
	var prev float64
	for i := range buf {
		t := float64(i) / sampleRate
		x := rng.Float64()*2 - 1
		// first difference as a crude highpass
		buf[i] = 0.5 * (x - prev) * math.Exp(-t*40)
		prev = x
	}
	return &Sound{buf: buf}
}
