package resample

import (
	"errors"
)

// ErrInvalidRatio indicates an invalid up/down ratio.
var ErrInvalidRatio = errors.New("resample: invalid ratio")

const (
	defaultKaiserBeta = 5.0
	defaultHalfLength = 10
)

type config struct {
	kaiserBeta float64
	halfLength int
}

// Option configures the resampling filter.
type Option func(*config)

// WithKaiserBeta overrides the Kaiser window beta parameter.
func WithKaiserBeta(beta float64) Option {
	return func(cfg *config) {
		if beta >= 0 {
			cfg.kaiserBeta = beta
		}
	}
}

// WithHalfLength sets the filter half length as a multiple of max(up, down).
func WithHalfLength(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.halfLength = n
		}
	}
}

func defaultConfig() config {
	return config{
		kaiserBeta: defaultKaiserBeta,
		halfLength: defaultHalfLength,
	}
}

// Poly resamples x by the rational factor up/down.
//
// The ratio is reduced by its gcd first; an identity ratio returns a copy of
// x. The output has length ceil(len(x)*up/down) and is aligned with the
// input (zero-phase filtering).
func Poly(x []float64, up, down int, opts ...Option) ([]float64, error) {
	if up <= 0 || down <= 0 {
		return nil, ErrInvalidRatio
	}

	g := gcd(up, down)
	up /= g
	down /= g

	if up == 1 && down == 1 {
		out := make([]float64, len(x))
		copy(out, x)
		return out, nil
	}

	if len(x) == 0 {
		return nil, nil
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	taps, err := designLowpass(up, down, cfg)
	if err != nil {
		return nil, err
	}

	nIn := len(x)
	nOut := OutputLen(nIn, up, down)

	// Pad the filter in front so the group delay lands on an output sample,
	// and behind so enough output is produced after removing that delay.
	halfLen := (len(taps) - 1) / 2
	nPrePad := down - halfLen%down
	nPreRemove := (halfLen + nPrePad) / down

	nPostPad := 0
	for upfirdnLen(len(taps)+nPrePad+nPostPad, nIn, up, down) < nOut+nPreRemove {
		nPostPad++
	}

	h := make([]float64, nPrePad+len(taps)+nPostPad)
	copy(h[nPrePad:], taps)

	return upfirdn(h, x, up, down, nPreRemove, nOut), nil
}

// OutputLen returns the number of samples Poly produces for an input of n
// samples and an already reduced up/down ratio.
func OutputLen(n, up, down int) int {
	if n <= 0 {
		return 0
	}
	return (n*up + down - 1) / down
}

// upfirdnLen is the length of upsample -> filter -> downsample for a filter
// of hLen taps and nIn input samples.
func upfirdnLen(hLen, nIn, up, down int) int {
	return ((nIn-1)*up+hLen-1)/down + 1
}

// upfirdn computes n output samples of upsample(x, up) * h, decimated by
// down, starting at decimated index first.
//
// Only the polyphase branch that hits non-zero upsampled samples is
// evaluated for each output.
func upfirdn(h, x []float64, up, down, first, n int) []float64 {
	out := make([]float64, n)
	hLen := len(h)
	last := len(x) - 1

	for k := range out {
		t := (first + k) * down

		// Input samples i with 0 <= t - i*up < hLen.
		iHi := t / up
		if iHi > last {
			iHi = last
		}
		iLo := 0
		if t-hLen+1 > 0 {
			iLo = (t - hLen + 1 + up - 1) / up
		}

		var y float64
		for i := iLo; i <= iHi; i++ {
			y += x[i] * h[t-i*up]
		}
		out[k] = y
	}

	return out
}
