package resample

import (
	"errors"
	"fmt"
	"math"
)

// designLowpass returns the anti-aliasing/anti-imaging filter for an
// up/down conversion: 2*halfLen+1 Kaiser-windowed sinc taps with cutoff
// 1/max(up, down) of Nyquist, normalized to unit DC gain and scaled by up
// to make up for the inserted zeros.
func designLowpass(up, down int, cfg config) ([]float64, error) {
	if cfg.halfLength <= 0 {
		return nil, errors.New("resample: half length must be > 0")
	}

	maxRate := max(up, down)
	fc := 1 / float64(maxRate)
	if fc <= 0 || fc > 1 {
		return nil, fmt.Errorf("resample: invalid cutoff %.6f", fc)
	}

	halfLen := cfg.halfLength * maxRate
	nTaps := 2*halfLen + 1
	taps := make([]float64, nTaps)

	center := float64(halfLen)
	for n := range nTaps {
		t := float64(n) - center
		taps[n] = fc * sinc(fc*t) * kaiserWindow(n, nTaps, cfg.kaiserBeta)
	}

	var sum float64
	for _, v := range taps {
		sum += v
	}

	if sum == 0 {
		return nil, errors.New("resample: designed zero-sum filter")
	}

	scale := float64(up) / sum
	for i := range taps {
		taps[i] *= scale
	}

	return taps, nil
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}

	if b < 0 {
		b = -b
	}

	for b != 0 {
		a, b = b, a%b
	}

	if a == 0 {
		return 1
	}

	return a
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}

	pix := math.Pi * x

	return math.Sin(pix) / pix
}

func kaiserWindow(i, n int, beta float64) float64 {
	if n <= 1 || beta == 0 {
		return 1
	}

	t := 2*float64(i)/float64(n-1) - 1
	a := math.Sqrt(math.Max(0, 1-t*t))

	return i0(beta*a) / i0(beta)
}

// i0 is the zeroth-order modified Bessel function of the first kind,
// evaluated by its power series.
func i0(x float64) float64 {
	sum := 1.0
	term := 1.0

	x2 := (x * x) / 4
	for k := 1; k < 64; k++ {
		term *= x2 / float64(k*k)

		sum += term
		if term < 1e-16*sum {
			break
		}
	}

	return sum
}
