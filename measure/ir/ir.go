package ir

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by IR analysis functions.
var (
	ErrEmptyIR           = errors.New("ir: impulse response is empty")
	ErrInvalidSampleRate = errors.New("ir: sample rate must be positive")
	ErrSilentIR          = errors.New("ir: impulse response has no energy")
)

// Metrics holds the parameters of one impulse response. Decay times are
// in seconds and are 0 when the response does not decay far enough.
type Metrics struct {
	RT60      float64 // T30 extrapolated to -60 dB, T20 when T30 is unavailable
	EDT       float64 // early decay time (0 to -10 dB)
	T20       float64
	T30       float64
	C50       float64 // clarity in dB
	D50       float64 // definition, 0..1
	PeakIndex int     // absolute maximum, relative to the input start
	Delay     float64 // PeakIndex in seconds
}

// Analyzer computes IR metrics at a fixed sample rate.
type Analyzer struct {
	SampleRate float64
}

// NewAnalyzer creates an IR analyzer with the given sample rate.
func NewAnalyzer(sampleRate float64) *Analyzer {
	return &Analyzer{SampleRate: sampleRate}
}

// Analyze computes the metrics of ir. Energy parameters are measured from
// the peak onward.
func (a *Analyzer) Analyze(ir []float64) (Metrics, error) {
	if len(ir) == 0 {
		return Metrics{}, ErrEmptyIR
	}

	if a.SampleRate <= 0 {
		return Metrics{}, ErrInvalidSampleRate
	}

	peak := peakIndex(ir)
	tail := backwardEnergy(ir[peak:])

	total := tail[0]
	if total <= 0 {
		return Metrics{}, ErrSilentIR
	}

	m := Metrics{
		PeakIndex: peak,
		Delay:     float64(peak) / a.SampleRate,
	}

	// tail[i] is the energy from sample i onward; early energy up to 50 ms
	// is the complement of tail at the boundary.
	boundary := int(math.Round(0.05 * a.SampleRate))
	late := 0.0
	if boundary < len(tail) {
		late = tail[boundary]
	}
	early := total - late

	m.D50 = early / total
	switch {
	case late <= 0:
		m.C50 = math.Inf(1)
	case early <= 0:
		m.C50 = math.Inf(-1)
	default:
		m.C50 = 10 * math.Log10(early/late)
	}

	decay := make([]float64, len(tail))
	for i, e := range tail {
		decay[i] = toDB(e / total)
	}

	m.EDT = a.decayTime(decay, 0, -10)
	m.T20 = a.decayTime(decay, -5, -25)
	m.T30 = a.decayTime(decay, -5, -35)

	m.RT60 = m.T30
	if m.RT60 == 0 {
		m.RT60 = m.T20
	}

	return m, nil
}

// AnalyzeChannels analyzes every channel of a [channel][tap] response.
func (a *Analyzer) AnalyzeChannels(channels [][]float64) ([]Metrics, error) {
	if len(channels) == 0 {
		return nil, ErrEmptyIR
	}

	out := make([]Metrics, len(channels))
	for ch, ir := range channels {
		m, err := a.Analyze(ir)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		out[ch] = m
	}

	return out, nil
}

// DecayCurve returns the Schroeder backward-integrated energy decay of ir
// in dB relative to the total energy.
func (a *Analyzer) DecayCurve(ir []float64) ([]float64, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyIR
	}

	tail := backwardEnergy(ir)
	if tail[0] <= 0 {
		return nil, ErrSilentIR
	}

	out := make([]float64, len(tail))
	for i, e := range tail {
		out[i] = toDB(e / tail[0])
	}

	return out, nil
}

// Mean averages the decay and energy parameters over channels. Channels
// without a decay estimate do not contribute to the decay averages.
func Mean(ms []Metrics) Metrics {
	var out Metrics
	if len(ms) == 0 {
		return out
	}

	var nRT, nEDT int
	for _, m := range ms {
		if m.RT60 > 0 {
			out.RT60 += m.RT60
			nRT++
		}
		if m.EDT > 0 {
			out.EDT += m.EDT
			nEDT++
		}
		out.C50 += m.C50
		out.D50 += m.D50
		out.Delay += m.Delay
	}

	if nRT > 0 {
		out.RT60 /= float64(nRT)
	}
	if nEDT > 0 {
		out.EDT /= float64(nEDT)
	}

	n := float64(len(ms))
	out.C50 /= n
	out.D50 /= n
	out.Delay /= n

	return out
}

// decayTime fits a line to the decay curve between startDB and endDB and
// extrapolates it to -60 dB.
func (a *Analyzer) decayTime(decay []float64, startDB, endDB float64) float64 {
	start, end := -1, -1
	for i, v := range decay {
		if start < 0 && v <= startDB {
			start = i
		}
		if start >= 0 && v <= endDB {
			end = i
			break
		}
	}

	if start < 0 || end <= start {
		return 0
	}

	var sumX, sumY, sumXX, sumXY float64
	for i := start; i <= end; i++ {
		x := float64(i - start)
		y := decay[i]
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
	}

	n := float64(end - start + 1)

	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}

	slope := (n*sumXY - sumX*sumY) / den // dB per sample
	if slope >= 0 {
		return 0
	}

	return -60 / (slope * a.SampleRate)
}

func backwardEnergy(ir []float64) []float64 {
	out := make([]float64, len(ir))

	var sum float64
	for i := len(ir) - 1; i >= 0; i-- {
		sum += ir[i] * ir[i]
		out[i] = sum
	}

	return out
}

func toDB(ratio float64) float64 {
	if ratio <= 0 {
		return -200
	}
	return 10 * math.Log10(ratio)
}

func peakIndex(ir []float64) int {
	idx := 0
	peak := 0.0

	for i, v := range ir {
		if av := math.Abs(v); av > peak {
			peak = av
			idx = i
		}
	}

	return idx
}
