package dataset

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-bss/internal/testutil"
)

func sampleCache(t *testing.T) *Cache {
	t.Helper()

	c := NewCache(SampleRate, 2, 3)
	c.SetVector("b", testutil.DeterministicNoise(1, 1, 100))
	c.SetVector("a", testutil.DeterministicSine(440, SampleRate, 0.5, 64))
	if err := c.SetMatrix("m", [][]float64{{1, 2, 3}, {4, 5, 6}}); err != nil {
		t.Fatalf("SetMatrix() error = %v", err)
	}

	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := sampleCache(t)

	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := DecodeCache(&buf)
	if err != nil {
		t.Fatalf("DecodeCache() error = %v", err)
	}

	if got.SampleRate != SampleRate || got.NSources != 2 || got.NChannels != 3 {
		t.Fatalf("metadata = %d/%d/%d", got.SampleRate, got.NSources, got.NChannels)
	}

	b, err := got.Vector("b")
	if err != nil {
		t.Fatalf("Vector() error = %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, b, testutil.DeterministicNoise(1, 1, 100), 0)

	m, err := got.Matrix("m")
	if err != nil {
		t.Fatalf("Matrix() error = %v", err)
	}
	testutil.RequireMatrixNearlyEqual(t, m, [][]float64{{1, 2, 3}, {4, 5, 6}}, 0)
}

func TestCacheEncodeDeterministic(t *testing.T) {
	var first, second bytes.Buffer
	if err := sampleCache(t).Encode(&first); err != nil {
		t.Fatal(err)
	}
	if err := sampleCache(t).Encode(&second); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatal("equal caches encoded to different bytes")
	}

	if string(first.Bytes()[:4]) != "BSSC" || first.Bytes()[4] != 1 {
		t.Fatalf("header = %q", first.Bytes()[:5])
	}
}

func TestDecodeCacheCorrupt(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleCache(t).Encode(&buf); err != nil {
		t.Fatal(err)
	}
	good := buf.Bytes()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"empty", func([]byte) []byte { return nil }},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"bad version", func(b []byte) []byte { b[4] = 9; return b }},
		{"bad checksum", func(b []byte) []byte { b[6] ^= 0xff; return b }},
		{"truncated payload", func(b []byte) []byte { return b[:len(b)-7] }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.mutate(append([]byte(nil), good...))
			if _, err := DecodeCache(bytes.NewReader(data)); !errors.Is(err, ErrCorruptCache) {
				t.Fatalf("DecodeCache() error = %v, want ErrCorruptCache", err)
			}
		})
	}
}

func TestCacheAccessErrors(t *testing.T) {
	c := sampleCache(t)

	if _, err := c.Vector("missing"); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("Vector() error = %v, want ErrMissingKey", err)
	}
	if _, err := c.Matrix("missing"); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("Matrix() error = %v, want ErrMissingKey", err)
	}
	if err := c.SetMatrix("ragged", [][]float64{{1, 2}, {3}}); err == nil {
		t.Fatal("expected error for ragged rows")
	}
}

func TestSaveLoadCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "c.bssc")

	if err := SaveCache(path, sampleCache(t)); err != nil {
		t.Fatalf("SaveCache() error = %v", err)
	}

	got, err := LoadCache(path)
	if err != nil {
		t.Fatalf("LoadCache() error = %v", err)
	}

	a, err := got.Vector("a")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Fatalf("len(a) = %d, want 64", len(a))
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".tmp-*"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestImageCacheRoundTrip(t *testing.T) {
	im := &Image{
		SampleRate: SampleRate,
		Data: [][][]float64{
			{{1, 2}, {3, 4}},
			{{5, 6}, {7, 8}},
		},
	}

	c, err := im.Cache()
	if err != nil {
		t.Fatalf("Cache() error = %v", err)
	}

	got, err := ImageFromCache(c)
	if err != nil {
		t.Fatalf("ImageFromCache() error = %v", err)
	}

	for i := range im.Data {
		testutil.RequireMatrixNearlyEqual(t, got.Data[i], im.Data[i], 0)
	}
}
