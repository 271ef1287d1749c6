package dataset

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-bss/internal/testutil"
)

func TestPrepareSiSEC2010Idempotent(t *testing.T) {
	srv := newArchiveServer(t)
	url := srv.add("/dev1.zip", sisecZip(t, "dev1_female3", 3, 2000))
	root := t.TempDir()

	opts := SiSEC2010Options{Root: root, NSources: 3, Tag: "dev1_female3", URL: url}

	path, err := PrepareSiSEC2010(context.Background(), opts)
	if err != nil {
		t.Fatalf("PrepareSiSEC2010() error = %v", err)
	}

	if want := filepath.Join(root, "SiSEC2010-dev1_female3-3ch.bssc"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	again, err := PrepareSiSEC2010(context.Background(), opts)
	if err != nil {
		t.Fatalf("second PrepareSiSEC2010() error = %v", err)
	}

	second, err := os.ReadFile(again)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if srv.total() != 1 {
		t.Fatalf("downloads = %d, want 1", srv.total())
	}
	if !bytes.Equal(first, second) {
		t.Fatal("cache changed on second call")
	}

	c, err := LoadCache(path)
	if err != nil {
		t.Fatalf("LoadCache() error = %v", err)
	}

	if c.SampleRate != SampleRate || c.NSources != 3 || c.NChannels != 3 {
		t.Fatalf("metadata = %d/%d/%d", c.SampleRate, c.NSources, c.NChannels)
	}

	want := testutil.Sources(100, 3, 2000)
	for i := range 3 {
		got, err := c.Vector(SourceKey(i))
		if err != nil {
			t.Fatalf("Vector(%s) error = %v", SourceKey(i), err)
		}
		testutil.RequireSliceNearlyEqual(t, got, want[i], 1.0/32768)
	}
}

func TestPrepareSiSEC2010RebuildsCacheFromArchive(t *testing.T) {
	srv := newArchiveServer(t)
	url := srv.add("/dev1.zip", sisecZip(t, "dev1_female4", 2, 500))
	root := t.TempDir()

	opts := SiSEC2010Options{Root: root, NSources: 2, Tag: "dev1_female4", URL: url}

	path, err := PrepareSiSEC2010(context.Background(), opts)
	if err != nil {
		t.Fatalf("PrepareSiSEC2010() error = %v", err)
	}

	first, _ := os.ReadFile(path)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	if _, err := PrepareSiSEC2010(context.Background(), opts); err != nil {
		t.Fatalf("PrepareSiSEC2010() error = %v", err)
	}
	second, _ := os.ReadFile(path)

	if srv.total() != 1 {
		t.Fatalf("downloads = %d, want 1 (archive kept)", srv.total())
	}
	if !bytes.Equal(first, second) {
		t.Fatal("rebuilt cache differs")
	}
}

func TestPrepareSiSEC2010Validation(t *testing.T) {
	srv := newArchiveServer(t)

	_, err := PrepareSiSEC2010(context.Background(), SiSEC2010Options{Root: t.TempDir(), Tag: "dev2_male3", URL: srv.URL})
	if !errors.Is(err, ErrUnsupportedTag) {
		t.Fatalf("PrepareSiSEC2010() error = %v, want ErrUnsupportedTag", err)
	}

	_, err = PrepareSiSEC2010(context.Background(), SiSEC2010Options{Root: t.TempDir(), NSources: -1, URL: srv.URL})
	if !errors.Is(err, ErrInvalidSourceCount) {
		t.Fatalf("PrepareSiSEC2010() error = %v, want ErrInvalidSourceCount", err)
	}

	if srv.total() != 0 {
		t.Fatalf("downloads = %d, want none before validation passes", srv.total())
	}
}

func TestPrepareSiSEC2010HTTPError(t *testing.T) {
	srv := newArchiveServer(t)
	root := t.TempDir()

	_, err := PrepareSiSEC2010(context.Background(), SiSEC2010Options{Root: root, URL: srv.URL + "/missing.zip"})
	if err == nil {
		t.Fatal("expected error for 404")
	}

	if exists(filepath.Join(root, "dev1.zip")) {
		t.Fatal("failed download left an archive behind")
	}
}

func TestPrepareMIRD(t *testing.T) {
	srv := newArchiveServer(t)
	degrees := []int{0, 15, 345}
	url := srv.add("/mird.zip", mirdZip(t, degrees, 9600))
	root := t.TempDir()

	opts := MIRDOptions{Root: root, NSources: 3, URL: url}

	path, err := PrepareMIRD(context.Background(), opts)
	if err != nil {
		t.Fatalf("PrepareMIRD() error = %v", err)
	}

	if want := filepath.Join(root, "MIRD_0-15-345_3-4-2.bssc"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	c, err := LoadCache(path)
	if err != nil {
		t.Fatalf("LoadCache() error = %v", err)
	}

	for i := range 3 {
		rir, err := c.Matrix(SourceKey(i))
		if err != nil {
			t.Fatalf("Matrix() error = %v", err)
		}
		if len(rir) != 3 || len(rir[0]) != RIRLength() {
			t.Fatalf("rir shape = %dx%d, want 3x%d", len(rir), len(rir[0]), RIRLength())
		}
		testutil.RequireFinite(t, rir[0])
	}

	if _, err := PrepareMIRD(context.Background(), opts); err != nil {
		t.Fatalf("second PrepareMIRD() error = %v", err)
	}
	if srv.total() != 1 {
		t.Fatalf("downloads = %d, want 1", srv.total())
	}
}

func TestMIRDValidation(t *testing.T) {
	tests := []struct {
		name string
		opts MIRDOptions
		want error
	}{
		{"too few channels", MIRDOptions{NSources: 3, Channels: []int{0, 1}}, ErrNotDetermined},
		{"too few degrees", MIRDOptions{NSources: 3, Degrees: []int{0}}, ErrSourceCountMismatch},
		{"negative sources", MIRDOptions{NSources: -2}, ErrInvalidSourceCount},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.opts.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() error = %v, want %v", err, tc.want)
			}
		})
	}

	if err := (MIRDOptions{NSources: 8}).Validate(); err != nil {
		t.Fatalf("Validate(8 sources) error = %v", err)
	}
}

func TestMIRDFileName(t *testing.T) {
	want := "Impulse_response_Acoustic_Lab_Bar-Ilan_University_(Reverberation_0.160s)_3-3-3-8-3-3-3_1m_015.mat"
	if got := MIRDFileName(0.16, 15); got != want {
		t.Fatalf("MIRDFileName() = %q, want %q", got, want)
	}
	if RIRLength() != 2560 {
		t.Fatalf("RIRLength() = %d, want 2560", RIRLength())
	}
}

func TestResampleRIRSameRate(t *testing.T) {
	// Equal rates return the stored columns, transposed to [channel][tap].
	dir := t.TempDir()
	data := mirdZip(t, []int{0}, 300)

	zipPath := filepath.Join(dir, "m.zip")
	if err := os.WriteFile(zipPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Extract(zipPath, dir); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	rir, err := ResampleRIR(filepath.Join(dir, MIRDFileName(mirdRT60, 0)), mirdNativeRate)
	if err != nil {
		t.Fatalf("ResampleRIR() error = %v", err)
	}

	if len(rir) != 8 || len(rir[0]) != 300 {
		t.Fatalf("shape = %dx%d, want 8x300", len(rir), len(rir[0]))
	}

	for ch := range rir {
		testutil.RequireSliceNearlyEqual(t, rir[ch], testutil.DecayingNoise(int64(ch), 0.5, 300, 1500), 0)
	}
}

func TestPrepareMixture(t *testing.T) {
	srv := newArchiveServer(t)
	sisecURL := srv.add("/dev1.zip", sisecZip(t, "dev1_female3", 3, 4000))
	mirdURL := srv.add("/mird.zip", mirdZip(t, []int{0, 15, 345}, 9600))
	root := t.TempDir()

	opts := MixtureOptions{
		Root:       root,
		NSources:   3,
		MaxSamples: 3000,
		SiSEC2010:  SiSEC2010Options{Root: filepath.Join(root, "SiSEC2010"), URL: sisecURL},
		MIRD:       MIRDOptions{Root: filepath.Join(root, "MIRD"), URL: mirdURL},
	}

	im, path, err := PrepareMixture(context.Background(), opts)
	if err != nil {
		t.Fatalf("PrepareMixture() error = %v", err)
	}

	if want := filepath.Join(root, "mixture-dev1_female3-0-15-345-3-4-2-3000.bssc"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	if s, c, n := im.Shape(); s != 3 || c != 3 || n != 3000 {
		t.Fatalf("Shape() = (%d, %d, %d), want (3, 3, 3000)", s, c, n)
	}

	again, _, err := PrepareMixture(context.Background(), opts)
	if err != nil {
		t.Fatalf("second PrepareMixture() error = %v", err)
	}

	if srv.total() != 2 {
		t.Fatalf("downloads = %d, want 2", srv.total())
	}

	for i := range im.Data {
		testutil.RequireMatrixNearlyEqual(t, again.Data[i], im.Data[i], 0)
	}
}

func TestMixtureValidationBeforeIO(t *testing.T) {
	srv := newArchiveServer(t)

	_, _, err := PrepareMixture(context.Background(), MixtureOptions{
		Root:      t.TempDir(),
		SiSEC2010: SiSEC2010Options{Tag: "nope", URL: srv.URL},
		MIRD:      MIRDOptions{URL: srv.URL},
	})
	if !errors.Is(err, ErrUnsupportedTag) {
		t.Fatalf("PrepareMixture() error = %v, want ErrUnsupportedTag", err)
	}

	_, _, err = PrepareMixture(context.Background(), MixtureOptions{
		Root:      t.TempDir(),
		SiSEC2010: SiSEC2010Options{NSources: 2, URL: srv.URL},
		MIRD:      MIRDOptions{NSources: 3, URL: srv.URL},
	})
	if !errors.Is(err, ErrSourceCountMismatch) {
		t.Fatalf("PrepareMixture() error = %v, want ErrSourceCountMismatch", err)
	}

	if srv.total() != 0 {
		t.Fatalf("downloads = %d, want 0", srv.total())
	}
}

func TestPrepareCMUArctic(t *testing.T) {
	srv := newArchiveServer(t)
	root := t.TempDir()

	tags := []string{"awb", "bdl"}
	for i, tag := range tags {
		srv.add("/cmu_us_"+tag+"_arctic-0.95-release.tar.gz", tarGz(t, map[string][]byte{
			"cmu_us_" + tag + "_arctic/wav/arctic_a000" + itoa(i+1) + ".wav": wavBytes(t, testutil.DeterministicNoise(int64(i), 0.3, 800)),
		}))
	}

	opts := CMUArcticOptions{
		Root:        root,
		Tags:        tags,
		URLTemplate: srv.URL + "/cmu_us_%s_arctic-0.95-release.tar.gz",
	}

	path, err := PrepareCMUArctic(context.Background(), opts)
	if err != nil {
		t.Fatalf("PrepareCMUArctic() error = %v", err)
	}

	if want := filepath.Join(root, "cmu_arctic_awb-bdl.bssc"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	c, err := LoadCache(path)
	if err != nil {
		t.Fatalf("LoadCache() error = %v", err)
	}

	if c.NSources != 2 {
		t.Fatalf("NSources = %d, want 2", c.NSources)
	}

	src, err := c.Vector(SourceKey(1))
	if err != nil {
		t.Fatalf("Vector() error = %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, src, testutil.DeterministicNoise(1, 0.3, 800), 1.0/32768)

	if _, err := PrepareCMUArctic(context.Background(), opts); err != nil {
		t.Fatalf("second PrepareCMUArctic() error = %v", err)
	}
	if srv.total() != 2 {
		t.Fatalf("downloads = %d, want 2", srv.total())
	}
}

func TestSynthesizeZeroSource(t *testing.T) {
	sources := NewCache(SampleRate, 1, 2)
	sources.SetVector(SourceKey(0), make([]float64, 1000))

	rirs := NewCache(SampleRate, 1, 2)
	if err := rirs.SetMatrix(SourceKey(0), [][]float64{
		testutil.DecayingNoise(1, 1, 256, 40),
		testutil.DecayingNoise(2, 1, 256, 40),
	}); err != nil {
		t.Fatal(err)
	}

	im, err := Synthesize(sources, rirs, 0)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	for ch, y := range im.Data[0] {
		if len(y) != 1000 {
			t.Fatalf("len(image[0][%d]) = %d, want 1000", ch, len(y))
		}
		for i, v := range y {
			if v != 0 {
				t.Fatalf("image[0][%d][%d] = %v, want 0", ch, i, v)
			}
		}
	}
}

func TestSynthesizeShape(t *testing.T) {
	const n = 160000

	sources := NewCache(SampleRate, 3, 3)
	rirs := NewCache(SampleRate, 3, 3)
	for i, src := range testutil.Sources(7, 3, n+500) {
		sources.SetVector(SourceKey(i), src)

		rir := make([][]float64, 3)
		for ch := range rir {
			rir[ch] = testutil.DecayingNoise(int64(10*i+ch), 1, RIRLength(), 300)
		}
		if err := rirs.SetMatrix(SourceKey(i), rir); err != nil {
			t.Fatal(err)
		}
	}

	im, err := Synthesize(sources, rirs, n)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if s, c, l := im.Shape(); s != 3 || c != 3 || l != n {
		t.Fatalf("Shape() = (%d, %d, %d), want (3, 3, %d)", s, c, l, n)
	}

	mix := im.Mixture()
	if len(mix) != 3 || len(mix[0]) != n {
		t.Fatalf("Mixture() shape = %dx%d", len(mix), len(mix[0]))
	}

	want := im.Data[0][1][1234] + im.Data[1][1][1234] + im.Data[2][1][1234]
	if math.Abs(mix[1][1234]-want) > 1e-12 {
		t.Fatalf("mix[1][1234] = %v, want %v", mix[1][1234], want)
	}

	refs, err := im.ReferenceImages(2)
	if err != nil {
		t.Fatalf("ReferenceImages() error = %v", err)
	}
	if len(refs) != 3 || &refs[1][0] != &im.Data[1][2][0] {
		t.Fatal("ReferenceImages(2) must return channel 2 of every source")
	}

	if _, err := im.ReferenceImages(3); !errors.Is(err, ErrChannelRange) {
		t.Fatalf("ReferenceImages(3) error = %v, want %v", err, ErrChannelRange)
	}
}

func TestSynthesizeMatchesDirectConvolution(t *testing.T) {
	src := testutil.DeterministicNoise(3, 1, 50)
	h := []float64{1, 0.5, 0, -0.25}

	sources := NewCache(SampleRate, 1, 1)
	sources.SetVector(SourceKey(0), src)
	rirs := NewCache(SampleRate, 1, 1)
	_ = rirs.SetMatrix(SourceKey(0), [][]float64{h})

	im, err := Synthesize(sources, rirs, 0)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	want := make([]float64, len(src))
	for n := range want {
		for k, hk := range h {
			if n-k >= 0 {
				want[n] += hk * src[n-k]
			}
		}
	}

	testutil.RequireSliceNearlyEqual(t, im.Data[0][0], want, 1e-12)
}

func TestSynthesizeErrors(t *testing.T) {
	two := NewCache(SampleRate, 2, 2)
	one := NewCache(SampleRate, 1, 1)

	if _, err := Synthesize(two, one, 0); !errors.Is(err, ErrSourceCountMismatch) {
		t.Fatalf("Synthesize() error = %v, want ErrSourceCountMismatch", err)
	}

	rirs := NewCache(SampleRate, 2, 1)
	_ = rirs.SetMatrix(SourceKey(0), [][]float64{{1}})
	_ = rirs.SetMatrix(SourceKey(1), [][]float64{{1}})

	if _, err := Synthesize(two, rirs, 0); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("Synthesize() error = %v, want ErrMissingKey", err)
	}

	two.SetVector(SourceKey(0), make([]float64, 10))
	two.SetVector(SourceKey(1), make([]float64, 12))
	if _, err := Synthesize(two, rirs, 0); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("Synthesize() error = %v, want ErrLengthMismatch", err)
	}

	// Truncation equalizes the lengths.
	if _, err := Synthesize(two, rirs, 10); err != nil {
		t.Fatalf("Synthesize(max=10) error = %v", err)
	}
}

func TestSynthesizeRaggedChannels(t *testing.T) {
	sources := NewCache(SampleRate, 2, 2)
	sources.SetVector(SourceKey(0), make([]float64, 10))
	sources.SetVector(SourceKey(1), make([]float64, 10))

	rirs := NewCache(SampleRate, 2, 2)
	_ = rirs.SetMatrix(SourceKey(0), [][]float64{{1}, {0.5}})
	_ = rirs.SetMatrix(SourceKey(1), [][]float64{{1}})

	if _, err := Synthesize(sources, rirs, 0); !errors.Is(err, ErrNotDetermined) {
		t.Fatalf("Synthesize() error = %v, want %v", err, ErrNotDetermined)
	}
}

func TestPrepareMIRDChannelRange(t *testing.T) {
	srv := newArchiveServer(t)
	url := srv.add("/mird.zip", mirdZip(t, []int{0, 15, 345}, 960))

	opts := MIRDOptions{Root: t.TempDir(), NSources: 3, Channels: []int{0, 1, 8}, URL: url}
	if _, err := PrepareMIRD(context.Background(), opts); !errors.Is(err, ErrChannelRange) {
		t.Fatalf("PrepareMIRD() error = %v, want %v", err, ErrChannelRange)
	}
}
