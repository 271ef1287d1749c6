package level

import (
	"errors"
	"fmt"
	"math"
)

// ErrShapeMismatch indicates images of different lengths.
var ErrShapeMismatch = errors.New("level: image lengths differ")

// ClipThreshold is the absolute amplitude counted as clipped.
const ClipThreshold = 32767.0 / 32768

// Stats holds the level summary of one signal. dB fields are relative to
// full scale and -Inf for silence.
type Stats struct {
	Length   int
	DC       float64
	RMS      float64
	RMSdB    float64
	Peak     float64
	PeakdB   float64
	PeakPos  int
	CrestdB  float64 // peak over RMS
	Clipped  int     // samples at or beyond ClipThreshold
	Variance float64
}

// toDB converts an amplitude to dB.
func toDB(a float64) float64 {
	a = math.Abs(a)
	if a == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(a)
}

// Measure computes Stats in one pass; the variance uses Welford's update.
func Measure(x []float64) Stats {
	s := Stats{
		Length: len(x),
		RMSdB:  math.Inf(-1),
		PeakdB: math.Inf(-1),
	}
	if len(x) == 0 {
		return s
	}

	var mean, m2, sumSq float64
	for i, v := range x {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)

		sumSq += v * v

		if a := math.Abs(v); a > s.Peak {
			s.Peak = a
			s.PeakPos = i
		}

		if math.Abs(v) >= ClipThreshold {
			s.Clipped++
		}
	}

	n := float64(len(x))
	s.DC = mean
	s.Variance = m2 / n
	s.RMS = math.Sqrt(sumSq / n)
	s.RMSdB = toDB(s.RMS)
	s.PeakdB = toDB(s.Peak)

	if s.RMS > 0 {
		s.CrestdB = s.PeakdB - s.RMSdB
	}

	return s
}

// MeasureChannels measures every row of x.
func MeasureChannels(x [][]float64) []Stats {
	out := make([]Stats, len(x))
	for i, ch := range x {
		out[i] = Measure(ch)
	}
	return out
}

// InputSIR returns, for every source image observed at one microphone,
// the energy ratio in dB of that image over the sum of all other images.
// A lone source has +Inf SIR; a silent source -Inf.
func InputSIR(images [][]float64) ([]float64, error) {
	if len(images) == 0 {
		return nil, nil
	}

	n := len(images[0])
	for i, img := range images {
		if len(img) != n {
			return nil, fmt.Errorf("%w: image %d has %d samples, want %d", ErrShapeMismatch, i, len(img), n)
		}
	}

	out := make([]float64, len(images))
	other := make([]float64, n)

	for i := range images {
		clear(other)
		for k, img := range images {
			if k == i {
				continue
			}
			for t, v := range img {
				other[t] += v
			}
		}

		out[i] = ratioDB(energy(images[i]), energy(other))
	}

	return out, nil
}

func energy(x []float64) float64 {
	var e float64
	for _, v := range x {
		e += v * v
	}
	return e
}

func ratioDB(num, den float64) float64 {
	switch {
	case num == 0:
		return math.Inf(-1)
	case den == 0:
		return math.Inf(1)
	}
	return 10 * math.Log10(num/den)
}
