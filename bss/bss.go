package bss

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-bss/dsp/stft"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch indicates spectrogram or filter dimensions that do
	// not line up.
	ErrShapeMismatch = errors.New("bss: shape mismatch")
	// ErrReferenceID indicates a reference channel outside the reference.
	ErrReferenceID = errors.New("bss: reference channel out of range")
)

// Spatial algorithm names whose state is a demixing filter rather than a
// separated spectrogram.
const (
	AlgorithmIP  = "IP"
	AlgorithmIP1 = "IP1"
	AlgorithmIP2 = "IP2"
)

// UsesDemixFilter reports whether the named spatial algorithm exposes its
// result as a demixing filter.
func UsesDemixFilter(algorithm string) bool {
	switch algorithm {
	case AlgorithmIP, AlgorithmIP1, AlgorithmIP2:
		return true
	default:
		return false
	}
}

// DemixFilter is a per-bin demixing matrix laid out [bin][source][channel].
type DemixFilter [][][]complex128

// NewIdentityFilter returns an identity demixing filter.
func NewIdentityFilter(bins, n int) DemixFilter {
	w := make(DemixFilter, bins)
	for f := range w {
		w[f] = make([][]complex128, n)
		for i := range w[f] {
			w[f][i] = make([]complex128, n)
			w[f][i][i] = 1
		}
	}
	return w
}

// Separate applies Y(f,t) = W(f) X(f,t) and returns Y laid out
// [source][bin][frame].
func Separate(input stft.Spectrogram, w DemixFilter) (stft.Spectrogram, error) {
	nch, bins, frames := input.Dims()
	if nch == 0 || bins == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrShapeMismatch)
	}

	if len(w) != bins {
		return nil, fmt.Errorf("%w: filter has %d bins, input %d", ErrShapeMismatch, len(w), bins)
	}

	nsrc := len(w[0])
	out := stft.NewSpectrogram(nsrc, bins, frames)

	for f := range bins {
		if len(w[f]) != nsrc {
			return nil, fmt.Errorf("%w: bin %d has %d sources, want %d", ErrShapeMismatch, f, len(w[f]), nsrc)
		}

		for n := range nsrc {
			row := w[f][n]
			if len(row) != nch {
				return nil, fmt.Errorf("%w: bin %d source %d has %d channels, want %d",
					ErrShapeMismatch, f, n, len(row), nch)
			}

			dst := out[n][f]
			for m, wm := range row {
				if wm == 0 {
					continue
				}

				src := input[m][f]
				for t := range dst {
					dst[t] += wm * src[t]
				}
			}
		}
	}

	return out, nil
}

// OracleFilter returns the per-bin demixing filter that maps mix onto
// target with least squared error, W(f) = S Xᴴ (X Xᴴ)⁻¹, where X holds the
// mixture and S the target spectrograms. It bounds what a linear
// frequency-domain separator can achieve.
func OracleFilter(mix, target stft.Spectrogram) (DemixFilter, error) {
	nch, bins, frames := mix.Dims()
	nsrc, tbins, tframes := target.Dims()

	if nch == 0 || bins == 0 || nsrc == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrShapeMismatch)
	}

	if tbins != bins || tframes != frames {
		return nil, fmt.Errorf("%w: mixture %dx%d, target %dx%d", ErrShapeMismatch, bins, frames, tbins, tframes)
	}

	w := make(DemixFilter, bins)
	x := make([][]complex128, nch)

	for f := range bins {
		for m := range nch {
			x[m] = mix[m][f]
		}

		w[f] = make([][]complex128, nsrc)
		for n := range nsrc {
			w[f][n] = projectionRow(x, target[n][f])
		}
	}

	return w, nil
}

// Interpolate returns (1-alpha) w + alpha to, element by element.
func (w DemixFilter) Interpolate(to DemixFilter, alpha float64) (DemixFilter, error) {
	if len(w) != len(to) {
		return nil, fmt.Errorf("%w: %d and %d bins", ErrShapeMismatch, len(w), len(to))
	}

	a, b := complex(1-alpha, 0), complex(alpha, 0)
	out := make(DemixFilter, len(w))

	for f := range w {
		if len(w[f]) != len(to[f]) {
			return nil, fmt.Errorf("%w: bin %d has %d and %d rows", ErrShapeMismatch, f, len(w[f]), len(to[f]))
		}

		out[f] = make([][]complex128, len(w[f]))
		for n := range w[f] {
			if len(w[f][n]) != len(to[f][n]) {
				return nil, fmt.Errorf("%w: bin %d row %d", ErrShapeMismatch, f, n)
			}

			row := make([]complex128, len(w[f][n]))
			for m := range row {
				row[m] = a*w[f][n][m] + b*to[f][n][m]
			}
			out[f][n] = row
		}
	}

	return out, nil
}

// ProjectionBack rescales each separated source so that it matches its
// contribution to channel refID of reference.
//
// For every bin the least-squares mixing row a = x Yᴴ (Y Yᴴ)⁻¹ is solved,
// where Y holds the estimates and x the reference channel; source n is then
// multiplied by a[n]. Bins whose Gram matrix is singular fall back to a
// per-source projection.
func ProjectionBack(est, reference stft.Spectrogram, refID int) (stft.Spectrogram, error) {
	nsrc, bins, frames := est.Dims()
	nch, rbins, rframes := reference.Dims()

	if nsrc == 0 || bins == 0 {
		return nil, fmt.Errorf("%w: empty estimate", ErrShapeMismatch)
	}

	if refID < 0 || refID >= nch {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrReferenceID, refID, nch)
	}

	if rbins != bins || rframes != frames {
		return nil, fmt.Errorf("%w: estimate %dx%d, reference %dx%d", ErrShapeMismatch, bins, frames, rbins, rframes)
	}

	out := stft.NewSpectrogram(nsrc, bins, frames)
	y := make([][]complex128, nsrc)

	for f := range bins {
		for n := range nsrc {
			y[n] = est[n][f]
		}

		a := projectionRow(y, reference[refID][f])

		for n := range nsrc {
			dst := out[n][f]
			for t, v := range y[n] {
				dst[t] = a[n] * v
			}
		}
	}

	return out, nil
}

// projectionRow solves a (Y Yᴴ) = x Yᴴ for the row vector a.
func projectionRow(y [][]complex128, x []complex128) []complex128 {
	n := len(y)

	// G = Y Yᴴ is Hermitian; b = x Yᴴ.
	g := make([][]complex128, n)
	for i := range g {
		g[i] = make([]complex128, n)
	}

	b := make([]complex128, n)
	for i := range n {
		for j := i; j < n; j++ {
			var s complex128
			for t := range y[i] {
				s += y[i][t] * cmplx.Conj(y[j][t])
			}
			g[i][j] = s
			g[j][i] = cmplx.Conj(s)
		}

		var s complex128
		for t := range x {
			s += x[t] * cmplx.Conj(y[i][t])
		}
		b[i] = s
	}

	// a G = b  <=>  Gᵀ aᵀ = bᵀ, and Gᵀ = conj(G).
	if a, ok := solveComplex(g, b, true); ok {
		return a
	}

	a := make([]complex128, n)
	for i := range n {
		if d := real(g[i][i]); d > 0 {
			a[i] = b[i] / complex(d, 0)
		}
	}

	return a
}

// solveComplex solves M z = c (M conjugated when conj is set) through the
// real embedding [[Re, -Im], [Im, Re]]. ok is false when M is singular.
func solveComplex(m [][]complex128, c []complex128, conj bool) ([]complex128, bool) {
	n := len(c)
	sign := 1.0
	if conj {
		sign = -1
	}

	big := mat.NewDense(2*n, 2*n, nil)
	rhs := mat.NewVecDense(2*n, nil)
	for i := range n {
		for j := range n {
			re, im := real(m[i][j]), sign*imag(m[i][j])
			big.Set(i, j, re)
			big.Set(i, n+j, -im)
			big.Set(n+i, j, im)
			big.Set(n+i, n+j, re)
		}
		rhs.SetVec(i, real(c[i]))
		rhs.SetVec(n+i, imag(c[i]))
	}

	var lu mat.LU
	lu.Factorize(big)
	if logDet, _ := lu.LogDet(); math.IsInf(logDet, -1) {
		return nil, false
	}

	// Condition errors are treated as singular too.
	var z mat.VecDense
	if err := lu.SolveVecTo(&z, false, rhs); err != nil {
		return nil, false
	}

	out := make([]complex128, n)
	for i := range n {
		re, im := z.AtVec(i), z.AtVec(n+i)
		if math.IsNaN(re) || math.IsNaN(im) || math.IsInf(re, 0) || math.IsInf(im, 0) {
			return nil, false
		}
		out[i] = complex(re, im)
	}

	return out, true
}
