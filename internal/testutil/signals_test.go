package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
}

func TestDeterministicNoiseReproducible(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
		if a[i] < -1 || a[i] >= 1 {
			t.Fatalf("a[%d] = %v out of range", i, a[i])
		}
	}
}

func TestDecayingNoise(t *testing.T) {
	d := DecayingNoise(3, 1, 2000, 100)
	head, tail := 0.0, 0.0
	for i := 0; i < 100; i++ {
		head += d[i] * d[i]
		tail += d[len(d)-1-i] * d[len(d)-1-i]
	}
	if tail >= head*1e-6 {
		t.Fatalf("tail energy %v not decayed relative to head %v", tail, head)
	}
}

func TestImpulse(t *testing.T) {
	imp := Impulse(8, 3)
	for i, v := range imp {
		want := 0.0
		if i == 3 {
			want = 1
		}
		if v != want {
			t.Fatalf("imp[%d] = %v, want %v", i, v, want)
		}
	}

	for i, v := range Impulse(4, 10) {
		if v != 0 {
			t.Fatalf("imp[%d] = %v, want all zeros for out-of-bounds pos", i, v)
		}
	}
}

func TestSourcesIndependent(t *testing.T) {
	src := Sources(1, 3, 32)
	if len(src) != 3 {
		t.Fatalf("len = %d, want 3", len(src))
	}
	if src[0][0] == src[1][0] && src[0][1] == src[1][1] {
		t.Fatal("sources share a seed")
	}
}
