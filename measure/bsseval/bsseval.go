package bsseval

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

var (
	// ErrEmpty indicates no sources or zero-length sources.
	ErrEmpty = errors.New("bsseval: empty input")
	// ErrShapeMismatch indicates differing source counts or lengths.
	ErrShapeMismatch = errors.New("bsseval: reference and estimate shapes differ")
	// ErrSilentSource indicates an all-zero reference or estimate.
	ErrSilentSource = errors.New("bsseval: silent source")
)

// DefaultFilterLength is the distortion filter length in taps.
const DefaultFilterLength = 512

// Result holds per-reference metrics in dB.
//
// Entry k describes reference k scored against estimate Perm[k].
type Result struct {
	SDR  []float64
	SIR  []float64
	SAR  []float64
	Perm []int
}

// Option configures EvalSources.
type Option func(*config)

type config struct {
	filterLength int
	permute      bool
}

// WithFilterLength sets the distortion filter length in taps.
func WithFilterLength(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.filterLength = n
		}
	}
}

// WithoutPermutation scores estimate k against reference k.
func WithoutPermutation() Option {
	return func(c *config) {
		c.permute = false
	}
}

// EvalSources scores estimated against reference, both laid out
// [source][sample].
func EvalSources(reference, estimated [][]float64, opts ...Option) (Result, error) {
	cfg := config{filterLength: DefaultFilterLength, permute: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := validate(reference, estimated); err != nil {
		return Result{}, err
	}

	nsrc := len(reference)

	p, err := newProjector(reference, cfg.filterLength)
	if err != nil {
		return Result{}, err
	}

	// metrics[e][r] for estimate e against reference r.
	sdr := newGrid(nsrc)
	sir := newGrid(nsrc)
	sar := newGrid(nsrc)

	candidates := func(e int) []int {
		if cfg.permute {
			all := make([]int, nsrc)
			for i := range all {
				all[i] = i
			}
			return all
		}
		return []int{e}
	}

	for e := range estimated {
		dec, err := p.decompose(estimated[e], candidates(e))
		if err != nil {
			return Result{}, fmt.Errorf("estimate %d: %w", e, err)
		}

		for r, d := range dec {
			sdr[e][r], sir[e][r], sar[e][r] = d.criteria()
		}
	}

	perm := identity(nsrc)
	if cfg.permute {
		perm = bestPermutation(sir)
	}

	res := Result{
		SDR:  make([]float64, nsrc),
		SIR:  make([]float64, nsrc),
		SAR:  make([]float64, nsrc),
		Perm: perm,
	}
	for k, e := range perm {
		res.SDR[k] = sdr[e][k]
		res.SIR[k] = sir[e][k]
		res.SAR[k] = sar[e][k]
	}

	return res, nil
}

// SDR returns only the per-reference SDR of EvalSources.
func SDR(reference, estimated [][]float64, opts ...Option) ([]float64, error) {
	res, err := EvalSources(reference, estimated, opts...)
	if err != nil {
		return nil, err
	}
	return res.SDR, nil
}

func validate(reference, estimated [][]float64) error {
	if len(reference) == 0 || len(estimated) == 0 {
		return ErrEmpty
	}

	if len(reference) != len(estimated) {
		return fmt.Errorf("%w: %d references, %d estimates", ErrShapeMismatch, len(reference), len(estimated))
	}

	n := len(reference[0])
	if n == 0 {
		return ErrEmpty
	}

	for i := range reference {
		if len(reference[i]) != n || len(estimated[i]) != n {
			return fmt.Errorf("%w: source %d has %d/%d samples, want %d",
				ErrShapeMismatch, i, len(reference[i]), len(estimated[i]), n)
		}

		if energy(reference[i]) == 0 {
			return fmt.Errorf("%w: reference %d", ErrSilentSource, i)
		}

		if energy(estimated[i]) == 0 {
			return fmt.Errorf("%w: estimate %d", ErrSilentSource, i)
		}
	}

	return nil
}

// decomposition holds the error components of one estimate with respect
// to one reference, each of length nsampl+flen-1.
type decomposition struct {
	target  []float64 // s_true + e_spat
	interf  []float64
	artif   []float64
	scratch []float64
}

func (d decomposition) criteria() (sdr, sir, sar float64) {
	num := energy(d.target)

	for i := range d.scratch {
		d.scratch[i] = d.interf[i] + d.artif[i]
	}
	sdr = safeDB(num, energy(d.scratch))

	sir = safeDB(num, energy(d.interf))

	for i := range d.scratch {
		d.scratch[i] = d.target[i] + d.interf[i]
	}
	sar = safeDB(energy(d.scratch), energy(d.artif))

	return sdr, sir, sar
}

func safeDB(num, den float64) float64 {
	if den == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(num/den)
}

func energy(x []float64) float64 {
	sq := make([]float64, len(x))
	vecmath.MulBlock(sq, x, x)

	var sum float64
	for _, v := range sq {
		sum += v
	}
	return sum
}

func newGrid(n int) [][]float64 {
	g := make([][]float64, n)
	for i := range g {
		g[i] = make([]float64, n)
		for j := range g[i] {
			g[i][j] = math.Inf(-1)
		}
	}
	return g
}

func identity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// bestPermutation returns perm maximizing mean(sir[perm[k]][k]). Ties keep
// the first permutation in lexicographic order.
func bestPermutation(sir [][]float64) []int {
	n := len(sir)
	best := identity(n)
	bestScore := math.Inf(-1)

	permutations(n, func(perm []int) {
		var score float64
		for k, e := range perm {
			score += sir[e][k]
		}
		score /= float64(n)

		if score > bestScore {
			bestScore = score
			copy(best, perm)
		}
	})

	return best
}

// permutations calls fn with every permutation of 0..n-1 in lexicographic
// order. fn must not retain perm.
func permutations(n int, fn func([]int)) {
	perm := make([]int, 0, n)
	used := make([]bool, n)

	var rec func()
	rec = func() {
		if len(perm) == n {
			fn(perm)
			return
		}

		for i := range n {
			if used[i] {
				continue
			}

			used[i] = true
			perm = append(perm, i)
			rec()
			perm = perm[:len(perm)-1]
			used[i] = false
		}
	}

	rec()
}
