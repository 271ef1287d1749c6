package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-bss/dataset/matfile"
	"github.com/cwbudde/algo-bss/dsp/resample"
	"github.com/cwbudde/algo-bss/measure/ir"
)

// MIRDURL is the Bar-Ilan multichannel impulse response archive with
// 160 ms reverberation and 3-3-3-8-3-3-3 cm microphone spacing.
const MIRDURL = "https://www.iks.rwth-aachen.de/fileadmin/user_upload/downloads/forschung/tools-downloads/" + mirdArchive

const (
	mirdArchive    = "Impulse_response_Acoustic_Lab_Bar-Ilan_University__Reverberation_0.160s__3-3-3-8-3-3-3.zip"
	mirdNativeRate = 48000
	mirdRT60       = 0.160
	mirdVariable   = "impulse_response"
)

// MIRD defaults: source directions in degrees and microphone indices, in
// the order they are assigned to sources.
var (
	DefaultMIRDDegrees  = []int{0, 15, 345, 30, 330, 45, 315, 60, 300, 75, 285, 90, 270}
	DefaultMIRDChannels = []int{3, 4, 2, 5, 1, 6, 0, 7}
)

// MIRDOptions selects source directions and microphones.
type MIRDOptions struct {
	Root     string // default ".data/MIRD"
	NSources int    // default 3
	Degrees  []int  // default DefaultMIRDDegrees
	Channels []int  // default DefaultMIRDChannels
	URL      string // default MIRDURL
}

func (o MIRDOptions) withDefaults() MIRDOptions {
	if o.Root == "" {
		o.Root = filepath.Join(".data", "MIRD")
	}
	if o.NSources == 0 {
		o.NSources = 3
	}
	if o.Degrees == nil {
		o.Degrees = DefaultMIRDDegrees
	}
	if o.Channels == nil {
		o.Channels = DefaultMIRDChannels
	}
	if o.URL == "" {
		o.URL = MIRDURL
	}

	o.Degrees = o.Degrees[:min(o.NSources, len(o.Degrees))]
	o.Channels = o.Channels[:min(o.NSources, len(o.Channels))]

	return o
}

// Validate checks the options without touching the filesystem.
func (o MIRDOptions) Validate() error {
	if o.NSources < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSourceCount, o.NSources)
	}

	o = o.withDefaults()

	if len(o.Degrees) != o.NSources {
		return fmt.Errorf("%w: %d directions for %d sources", ErrSourceCountMismatch, len(o.Degrees), o.NSources)
	}

	if len(o.Channels) != o.NSources {
		return fmt.Errorf("%w: %d channels, %d sources", ErrNotDetermined, len(o.Channels), o.NSources)
	}

	return nil
}

// MIRDCachePath returns the cache file PrepareMIRD builds.
func MIRDCachePath(opts MIRDOptions) string {
	o := opts.withDefaults()
	return filepath.Join(o.Root, fmt.Sprintf("MIRD_%s_%s%s", joinInts(o.Degrees), joinInts(o.Channels), cacheExt))
}

// MIRDFileName returns the archive member holding the responses for one
// source direction.
func MIRDFileName(rt60 float64, degree int) string {
	return fmt.Sprintf("Impulse_response_Acoustic_Lab_Bar-Ilan_University_(Reverberation_%.3fs)_3-3-3-8-3-3-3_1m_%03d.mat", rt60, degree)
}

// RIRLength is the number of taps kept per response.
func RIRLength() int {
	return int(SampleRate * mirdRT60)
}

// PrepareMIRD makes sure the RIR cache for opts exists and returns its
// path. Source i is stored under SourceKey(i) as a [channel][tap] matrix.
func PrepareMIRD(ctx context.Context, opts MIRDOptions, options ...Option) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}

	o := opts.withDefaults()
	e := newEnv(options)
	log := e.logger.With("dataset", "MIRD")

	cachePath := MIRDCachePath(o)
	if exists(cachePath) {
		log.Debug("cache present", "path", cachePath)
		return cachePath, nil
	}

	if err := os.MkdirAll(o.Root, 0o755); err != nil {
		return "", err
	}

	archive := filepath.Join(o.Root, mirdArchive)
	if _, err := e.fetch(ctx, o.URL, archive); err != nil {
		return "", err
	}

	if !exists(filepath.Join(o.Root, MIRDFileName(mirdRT60, 0))) {
		log.Info("unpacking", "archive", archive)
		if err := Extract(archive, o.Root); err != nil {
			return "", err
		}
	}

	taps := RIRLength()
	analyzer := ir.NewAnalyzer(SampleRate)
	cache := NewCache(SampleRate, o.NSources, len(o.Channels))

	for i, degree := range o.Degrees {
		rir, err := ResampleRIR(filepath.Join(o.Root, MIRDFileName(mirdRT60, degree)), SampleRate)
		if err != nil {
			return "", err
		}

		selected := make([][]float64, len(o.Channels))
		for k, ch := range o.Channels {
			if ch < 0 || ch >= len(rir) {
				return "", fmt.Errorf("%w: channel %d not in [0, %d)", ErrChannelRange, ch, len(rir))
			}

			row := make([]float64, taps)
			copy(row, rir[ch])
			selected[k] = row
		}

		if ms, err := analyzer.AnalyzeChannels(selected); err == nil {
			mean := ir.Mean(ms)
			log.Debug("rir", "source", i, "degree", degree, "rt60", mean.RT60, "c50", mean.C50)
		}

		if err := cache.SetMatrix(SourceKey(i), selected); err != nil {
			return "", err
		}
	}

	if err := SaveCache(cachePath, cache); err != nil {
		return "", err
	}

	log.Info("cache built", "path", cachePath, "sources", o.NSources, "taps", taps)

	return cachePath, nil
}

// ResampleRIR loads the impulse_response variable (taps x channels at
// 48 kHz) from a MAT file and resamples every channel to sampleRateOut.
// The result is laid out [channel][tap].
func ResampleRIR(path string, sampleRateOut int) ([][]float64, error) {
	f, err := matfile.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m, err := f.Var(mirdVariable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	cols := m.Columns()
	out := make([][]float64, len(cols))
	for ch, col := range cols {
		y, err := resample.Poly(col, sampleRateOut, mirdNativeRate)
		if err != nil {
			return nil, err
		}
		out[ch] = y
	}

	return out, nil
}
