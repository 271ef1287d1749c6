package window

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestGenerate(t *testing.T) {
	for _, typ := range []Type{TypeRectangular, TypeHann, TypeHamming, TypeBlackman, TypeKaiser} {
		t.Run(typ.String(), func(t *testing.T) {
			w := Generate(typ, 64)
			if len(w) != 64 {
				t.Fatalf("len=%d, want 64", len(w))
			}

			for i, v := range w {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("coefficient[%d] invalid: %v", i, v)
				}
				if !almostEqual(v, w[len(w)-1-i], 1e-12) {
					t.Fatalf("symmetric window not symmetric at %d", i)
				}
			}
		})
	}

	if w := Generate(TypeHann, 0); w != nil {
		t.Fatalf("Generate(0) = %v, want nil", w)
	}
}

func TestPeriodicHann(t *testing.T) {
	// scipy.signal.get_window("hann", 4) == [0, 0.5, 1, 0.5]
	w := Generate(TypeHann, 4, WithPeriodic())
	want := []float64{0, 0.5, 1, 0.5}

	for i := range want {
		if !almostEqual(w[i], want[i], 1e-12) {
			t.Fatalf("Generate(hann, periodic)[%d] = %v, want %v", i, w[i], want[i])
		}
	}

	sym := Generate(TypeHann, 16)
	per := Generate(TypeHann, 16, WithPeriodic())
	if almostEqual(sym[15], per[15], 1e-12) {
		t.Fatal("expected different end coefficient for periodic form")
	}
}

func TestPeriodicHannOverlapAddIsConstant(t *testing.T) {
	const n, hop = 64, 32
	w := Generate(TypeHann, n, WithPeriodic())

	for i := range hop {
		if s := w[i] + w[i+hop]; !almostEqual(s, 1, 1e-12) {
			t.Fatalf("w[%d]+w[%d] = %v, want 1", i, i+hop, s)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Type
	}{
		{"hann", TypeHann},
		{"Hanning", TypeHann},
		{"boxcar", TypeRectangular},
		{"rectangular", TypeRectangular},
		{" hamming ", TypeHamming},
		{"BLACKMAN", TypeBlackman},
		{"kaiser", TypeKaiser},
	}

	for _, tc := range tests {
		got, err := Parse(tc.name)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}

	if _, err := Parse("flattop"); !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("Parse(flattop) error = %v, want ErrUnknownWindow", err)
	}
}

func TestApply(t *testing.T) {
	buf := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	Apply(TypeRectangular, buf)

	for i, v := range buf {
		if v != float64(i+1) {
			t.Fatalf("rectangular should be passthrough at %d: %v", i, v)
		}
	}

	Apply(TypeHann, buf)
	if buf[0] != 0 {
		t.Fatalf("hann first sample should be 0, got %v", buf[0])
	}
}

func TestApplyCoefficients(t *testing.T) {
	dst := make([]float64, 3)
	if err := ApplyCoefficients(dst, []float64{1, 2, 3}, []float64{2, 0.5, -1}); err != nil {
		t.Fatalf("ApplyCoefficients() error = %v", err)
	}

	want := []float64{2, 1, -3}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}

	if err := ApplyCoefficients(dst, []float64{1}, []float64{1, 2}); !errors.Is(err, ErrMismatchedLength) {
		t.Fatalf("ApplyCoefficients() error = %v, want ErrMismatchedLength", err)
	}
}

func TestMetadataAndENBW(t *testing.T) {
	m := Info(TypeHann)
	if m.Name != "Hann" {
		t.Fatalf("name=%q", m.Name)
	}

	enbw, err := EquivalentNoiseBandwidth(Generate(TypeHann, 2048))
	if err != nil {
		t.Fatalf("EquivalentNoiseBandwidth error: %v", err)
	}

	if !almostEqual(enbw, m.ENBW, 0.01) {
		t.Fatalf("hann ENBW=%v, want ~%v", enbw, m.ENBW)
	}

	if _, err := EquivalentNoiseBandwidth(nil); err == nil {
		t.Fatal("expected error for empty coefficients")
	}
}

func TestSumPeriodicHann(t *testing.T) {
	if s := Sum(Generate(TypeHann, 4096, WithPeriodic())); !almostEqual(s, 2048, 1e-9) {
		t.Fatalf("Sum() = %v, want 2048", s)
	}
}
