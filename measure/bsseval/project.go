package bsseval

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-bss/dsp/conv"
	"gonum.org/v1/gonum/mat"
)

// projector computes least-squares projections of an estimate onto the
// span of FIR-filtered references. The Gram matrices depend only on the
// references and are factorized once.
type projector struct {
	refs   [][]float64
	nsampl int
	flen   int
	nfft   int

	plan    *algofft.Plan[complex128]
	refSpec [][]complex128
	buf     []complex128

	all    *gramSolver
	single []*gramSolver
}

func newProjector(refs [][]float64, flen int) (*projector, error) {
	nsampl := len(refs[0])
	nfft := nextPowerOf2(nsampl + flen - 1)

	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return nil, fmt.Errorf("bsseval: failed to create FFT plan: %w", err)
	}

	p := &projector{
		refs:    refs,
		nsampl:  nsampl,
		flen:    flen,
		nfft:    nfft,
		plan:    plan,
		refSpec: make([][]complex128, len(refs)),
		buf:     make([]complex128, nfft),
	}

	for i, r := range refs {
		if p.refSpec[i], err = p.spectrum(r); err != nil {
			return nil, err
		}
	}

	nsrc := len(refs)
	size := nsrc * flen
	gram := mat.NewSymDense(size, nil)

	for i := range nsrc {
		for j := i; j < nsrc; j++ {
			r, err := p.xcorr(p.refSpec[i], p.refSpec[j])
			if err != nil {
				return nil, err
			}

			// Block (i, j) is Toeplitz with entry [a][b] = R_ij[b-a].
			for a := range flen {
				for b := range flen {
					v := r[(b-a+nfft)%nfft]
					if i == j && b < a {
						continue
					}
					gram.SetSym(i*flen+a, j*flen+b, v)
				}
			}
		}
	}

	p.all = newGramSolver(gram)

	p.single = make([]*gramSolver, nsrc)
	for j := range nsrc {
		block := mat.NewSymDense(flen, nil)
		for a := range flen {
			for b := a; b < flen; b++ {
				block.SetSym(a, b, gram.At(j*flen+a, j*flen+b))
			}
		}
		p.single[j] = newGramSolver(block)
	}

	return p, nil
}

// decompose splits est into target, interference and artifact components
// for each reference index in refIdx.
func (p *projector) decompose(est []float64, refIdx []int) (map[int]decomposition, error) {
	estSpec, err := p.spectrum(est)
	if err != nil {
		return nil, err
	}

	nsrc := len(p.refs)
	rhs := make([][]float64, nsrc)
	for i := range nsrc {
		r, err := p.xcorr(p.refSpec[i], estSpec)
		if err != nil {
			return nil, err
		}

		d := make([]float64, p.flen)
		for a := range d {
			d[a] = r[(p.nfft-a)%p.nfft]
		}
		rhs[i] = d
	}

	full := make([]float64, 0, nsrc*p.flen)
	for _, d := range rhs {
		full = append(full, d...)
	}

	coeffs, err := p.all.solve(full)
	if err != nil {
		return nil, err
	}

	all := make([]int, nsrc)
	for i := range all {
		all[i] = i
	}

	projAll, err := p.synthesize(coeffs, all)
	if err != nil {
		return nil, err
	}

	length := p.nsampl + p.flen - 1

	// e_artif does not depend on the reference.
	artif := make([]float64, length)
	copy(artif, est)
	for i := range artif {
		artif[i] -= projAll[i]
	}

	out := make(map[int]decomposition, len(refIdx))
	for _, j := range refIdx {
		c, err := p.single[j].solve(rhs[j])
		if err != nil {
			return nil, err
		}

		target, err := p.synthesize(c, []int{j})
		if err != nil {
			return nil, err
		}

		interf := make([]float64, length)
		for i := range interf {
			interf[i] = projAll[i] - target[i]
		}

		out[j] = decomposition{
			target:  target,
			interf:  interf,
			artif:   artif,
			scratch: make([]float64, length),
		}
	}

	return out, nil
}

// synthesize returns sum_k conv(coeffs[k-th block], refs[idx[k]]).
func (p *projector) synthesize(coeffs []float64, idx []int) ([]float64, error) {
	out := make([]float64, p.nsampl+p.flen-1)

	for k, i := range idx {
		y, err := conv.Convolve(p.refs[i], coeffs[k*p.flen:(k+1)*p.flen])
		if err != nil {
			return nil, err
		}

		for n := range out {
			out[n] += y[n]
		}
	}

	return out, nil
}

func (p *projector) spectrum(x []float64) ([]complex128, error) {
	spec := make([]complex128, p.nfft)
	for i, v := range x {
		spec[i] = complex(v, 0)
	}

	if err := p.plan.Forward(spec, spec); err != nil {
		return nil, fmt.Errorf("bsseval: forward FFT failed: %w", err)
	}

	return spec, nil
}

// xcorr returns the circular cross-correlation ifft(a * conj(b)).
func (p *projector) xcorr(a, b []complex128) ([]float64, error) {
	for k := range p.buf {
		bk := b[k]
		p.buf[k] = a[k] * complex(real(bk), -imag(bk))
	}

	if err := p.plan.Inverse(p.buf, p.buf); err != nil {
		return nil, fmt.Errorf("bsseval: inverse FFT failed: %w", err)
	}

	out := make([]float64, p.nfft)
	for k, v := range p.buf {
		out[k] = real(v)
	}

	return out, nil
}

// gramSolver solves G c = d for a symmetric Gram matrix, by Cholesky when
// G is positive definite and by a general solve otherwise.
type gramSolver struct {
	gram  *mat.SymDense
	chol  mat.Cholesky
	useLU bool
}

func newGramSolver(g *mat.SymDense) *gramSolver {
	s := &gramSolver{gram: g}
	if ok := s.chol.Factorize(g); !ok {
		s.useLU = true
	}
	return s
}

func (s *gramSolver) solve(d []float64) ([]float64, error) {
	n := len(d)
	rhs := mat.NewVecDense(n, d)

	var x mat.VecDense
	if !s.useLU {
		if err := s.chol.SolveVecTo(&x, rhs); err == nil {
			return x.RawVector().Data, nil
		}
	}

	var dense mat.Dense
	dense.CloneFrom(s.gram)

	if err := x.SolveVec(&dense, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("bsseval: projection solve failed: %w", err)
		}
	}

	return x.RawVector().Data, nil
}

func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
