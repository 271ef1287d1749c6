package stft

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-bss/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

var (
	// ErrInvalidFFTSize indicates a non power-of-two or too small FFT size.
	ErrInvalidFFTSize = errors.New("stft: FFT size must be a power of two >= 2")
	// ErrInvalidHop indicates a hop outside (0, FFTSize].
	ErrInvalidHop = errors.New("stft: hop size must be in (0, FFTSize]")
	// ErrShape indicates a spectrum whose bin count does not match the transform.
	ErrShape = errors.New("stft: spectrum shape mismatch")
)

const normFloor = 1e-10

// Config describes the analysis/synthesis frame layout.
type Config struct {
	FFTSize int
	HopSize int
	Window  window.Type
}

// DefaultConfig is a 4096-point Hann STFT with 50 % overlap.
func DefaultConfig() Config {
	return Config{FFTSize: 4096, HopSize: 2048, Window: window.TypeHann}
}

// Spectrogram is a multichannel STFT laid out [channel][bin][frame].
type Spectrogram [][][]complex128

// Transform computes forward and inverse STFTs for one Config.
// It reuses internal buffers and must not be shared between goroutines.
type Transform struct {
	cfg    Config
	win    []float64
	winSum float64
	plan   *algofft.Plan[complex128]

	frame []float64
	buf   []complex128
}

// New validates cfg and prepares the FFT plan and window.
func New(cfg Config) (*Transform, error) {
	if cfg.FFTSize < 2 || cfg.FFTSize&(cfg.FFTSize-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFFTSize, cfg.FFTSize)
	}

	if cfg.HopSize <= 0 || cfg.HopSize > cfg.FFTSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHop, cfg.HopSize)
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("stft: failed to create FFT plan: %w", err)
	}

	win := window.Generate(cfg.Window, cfg.FFTSize, window.WithPeriodic())

	winSum := window.Sum(win)
	if winSum == 0 {
		return nil, fmt.Errorf("stft: window %s sums to zero", cfg.Window)
	}

	return &Transform{
		cfg:    cfg,
		win:    win,
		winSum: winSum,
		plan:   plan,
		frame:  make([]float64, cfg.FFTSize),
		buf:    make([]complex128, cfg.FFTSize),
	}, nil
}

// Config returns the transform configuration.
func (t *Transform) Config() Config { return t.cfg }

// Bins returns the number of non-negative frequency bins, FFTSize/2+1.
func (t *Transform) Bins() int { return t.cfg.FFTSize/2 + 1 }

// Frames returns the number of frames Forward produces for n samples.
func (t *Transform) Frames(n int) int {
	nfft, hop := t.cfg.FFTSize, t.cfg.HopSize
	padded := n + 2*(nfft/2)
	padded += tailPad(padded, nfft, hop)

	return (padded-nfft)/hop + 1
}

// Forward returns the STFT of x laid out [bin][frame].
func (t *Transform) Forward(x []float64) ([][]complex128, error) {
	nfft, hop := t.cfg.FFTSize, t.cfg.HopSize
	half := nfft / 2

	padded := make([]float64, len(x)+2*half)
	copy(padded[half:], x)
	padded = append(padded, make([]float64, tailPad(len(padded), nfft, hop))...)

	frames := (len(padded)-nfft)/hop + 1
	bins := t.Bins()

	out := make([][]complex128, bins)
	for k := range out {
		out[k] = make([]complex128, frames)
	}

	scale := 1 / t.winSum

	for m := range frames {
		pos := m * hop
		if err := window.ApplyCoefficients(t.frame, padded[pos:pos+nfft], t.win); err != nil {
			return nil, err
		}

		for i, v := range t.frame {
			t.buf[i] = complex(v, 0)
		}

		if err := t.plan.Forward(t.buf, t.buf); err != nil {
			return nil, fmt.Errorf("stft: forward FFT failed: %w", err)
		}

		for k := range bins {
			out[k][m] = t.buf[k] * complex(scale, 0)
		}
	}

	return out, nil
}

// Inverse reconstructs a signal from X laid out [bin][frame].
//
// The result is truncated to length samples, or has its natural length
// (frames-1)*hop when length <= 0. Samples past the reconstructed span are
// zero.
func (t *Transform) Inverse(X [][]complex128, length int) ([]float64, error) {
	nfft, hop := t.cfg.FFTSize, t.cfg.HopSize
	half := nfft / 2
	bins := t.Bins()

	if len(X) != bins {
		return nil, fmt.Errorf("%w: %d bins, want %d", ErrShape, len(X), bins)
	}

	frames := len(X[0])
	for k := range X {
		if len(X[k]) != frames {
			return nil, fmt.Errorf("%w: bin %d has %d frames, want %d", ErrShape, k, len(X[k]), frames)
		}
	}

	if frames == 0 {
		return make([]float64, max(length, 0)), nil
	}

	total := (frames-1)*hop + nfft
	acc := make([]float64, total)
	norm := make([]float64, total)

	for m := range frames {
		for k := range bins {
			t.buf[k] = X[k][m]
		}

		// Hermitian extension; DC and Nyquist are real for a real signal.
		t.buf[0] = complex(real(t.buf[0]), 0)
		t.buf[half] = complex(real(t.buf[half]), 0)
		for k := 1; k < half; k++ {
			v := t.buf[k]
			t.buf[nfft-k] = complex(real(v), -imag(v))
		}

		if err := t.plan.Inverse(t.buf, t.buf); err != nil {
			return nil, fmt.Errorf("stft: inverse FFT failed: %w", err)
		}

		for i := range t.frame {
			t.frame[i] = real(t.buf[i]) * t.winSum
		}

		vecmath.MulBlockInPlace(t.frame, t.win)

		pos := m * hop
		for i, v := range t.frame {
			acc[pos+i] += v
			norm[pos+i] += t.win[i] * t.win[i]
		}
	}

	for i := range acc {
		if norm[i] > normFloor {
			acc[i] /= norm[i]
		}
	}

	natural := acc[half : total-half]
	if length <= 0 {
		length = len(natural)
	}

	out := make([]float64, length)
	copy(out, natural)

	return out, nil
}

// ForwardMulti transforms every channel of x.
func (t *Transform) ForwardMulti(x [][]float64) (Spectrogram, error) {
	out := make(Spectrogram, len(x))
	for ch := range x {
		spec, err := t.Forward(x[ch])
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		out[ch] = spec
	}

	return out, nil
}

// InverseMulti reconstructs every channel of s, truncated to length.
func (t *Transform) InverseMulti(s Spectrogram, length int) ([][]float64, error) {
	out := make([][]float64, len(s))
	for ch := range s {
		x, err := t.Inverse(s[ch], length)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		out[ch] = x
	}

	return out, nil
}

// Dims returns the channel, bin and frame counts of s.
func (s Spectrogram) Dims() (channels, bins, frames int) {
	channels = len(s)
	if channels == 0 {
		return 0, 0, 0
	}

	bins = len(s[0])
	if bins == 0 {
		return channels, 0, 0
	}

	return channels, bins, len(s[0][0])
}

// NewSpectrogram allocates a zeroed spectrogram.
func NewSpectrogram(channels, bins, frames int) Spectrogram {
	s := make(Spectrogram, channels)
	for ch := range s {
		s[ch] = make([][]complex128, bins)
		for k := range s[ch] {
			s[ch][k] = make([]complex128, frames)
		}
	}

	return s
}

// tailPad returns the zeros appended to an n-sample padded signal so the
// last frame ends on a hop boundary.
func tailPad(n, nfft, hop int) int {
	if n < nfft {
		return nfft - n
	}

	return (hop - (n-nfft)%hop) % hop
}
