// Package testutil holds deterministic signal generators and tolerance
// assertions shared by the package tests.
package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a sine wave starting at phase 0.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates uniform white noise in [-amplitude, amplitude)
// with a fixed seed.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// DecayingNoise generates an exponentially decaying noise burst that looks
// like a synthetic room impulse response. decay is the 1/e time constant in
// samples.
func DecayingNoise(seed int64, amplitude float64, length int, decay float64) []float64 {
	out := DeterministicNoise(seed, amplitude, length)
	for i := range out {
		out[i] *= math.Exp(-float64(i) / decay)
	}
	return out
}

// Impulse generates a unit impulse at pos.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// Sources returns n independent noise sources of the given length, seeded
// from seed, seed+1, ...
func Sources(seed int64, n, length int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = DeterministicNoise(seed+int64(i), 0.5, length)
	}
	return out
}
