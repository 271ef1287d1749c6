package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/cwbudde/algo-bss/dsp/conv"
	"github.com/cwbudde/algo-bss/measure/level"
)

// DefaultMaxSamples caps dry sources at 10 s of 16 kHz audio.
const DefaultMaxSamples = 160000

// Image holds reverberant source images laid out [source][channel][sample].
type Image struct {
	SampleRate int
	Data       [][][]float64
}

// Shape returns the source, channel and sample counts.
func (im *Image) Shape() (sources, channels, samples int) {
	sources = len(im.Data)
	if sources == 0 {
		return 0, 0, 0
	}

	channels = len(im.Data[0])
	if channels == 0 {
		return sources, 0, 0
	}

	return sources, channels, len(im.Data[0][0])
}

// Mixture sums the source images per microphone, laid out [channel][sample].
func (im *Image) Mixture() [][]float64 {
	_, nch, n := im.Shape()

	out := make([][]float64, nch)
	for ch := range out {
		out[ch] = make([]float64, n)
		for _, src := range im.Data {
			for t, v := range src[ch] {
				out[ch][t] += v
			}
		}
	}

	return out
}

// ReferenceImages returns every source as observed at microphone ch, laid
// out [source][sample]. The slices alias the image data.
func (im *Image) ReferenceImages(ch int) ([][]float64, error) {
	_, nch, _ := im.Shape()
	if ch < 0 || ch >= nch {
		return nil, fmt.Errorf("%w: reference channel %d not in [0, %d)", ErrChannelRange, ch, nch)
	}

	out := make([][]float64, len(im.Data))
	for i, src := range im.Data {
		out[i] = src[ch]
	}

	return out, nil
}

// Synthesize convolves every dry source with its per-channel RIRs and
// truncates each result to the dry length. Sources longer than maxSamples
// are cut first; maxSamples <= 0 keeps them whole.
func Synthesize(sources, rirs *Cache, maxSamples int) (*Image, error) {
	if sources.NSources != rirs.NSources {
		return nil, fmt.Errorf("%w: %d sources, %d RIR sets", ErrSourceCountMismatch, sources.NSources, rirs.NSources)
	}

	im := &Image{
		SampleRate: sources.SampleRate,
		Data:       make([][][]float64, sources.NSources),
	}

	length, nch := -1, -1
	for i := range sources.NSources {
		key := SourceKey(i)

		src, err := sources.Vector(key)
		if err != nil {
			return nil, err
		}

		if maxSamples > 0 && len(src) > maxSamples {
			src = src[:maxSamples]
		}

		if length >= 0 && len(src) != length {
			return nil, fmt.Errorf("%w: %s has %d samples, want %d", ErrLengthMismatch, key, len(src), length)
		}
		length = len(src)

		rir, err := rirs.Matrix(key)
		if err != nil {
			return nil, err
		}

		if nch >= 0 && len(rir) != nch {
			return nil, fmt.Errorf("%w: %s has %d RIR channels, want %d", ErrNotDetermined, key, len(rir), nch)
		}
		nch = len(rir)
		if nch == 0 {
			return nil, fmt.Errorf("%w: %s has no RIR channels", ErrNotDetermined, key)
		}

		channels := make([][]float64, len(rir))
		for ch, h := range rir {
			y, err := conv.Truncated(src, h, len(src))
			if err != nil {
				return nil, fmt.Errorf("%s channel %d: %w", key, ch, err)
			}
			channels[ch] = y
		}

		im.Data[i] = channels
	}

	return im, nil
}

// Cache converts the image to a cache with one [channel][sample] matrix
// per source.
func (im *Image) Cache() (*Cache, error) {
	nsrc, nch, _ := im.Shape()

	c := NewCache(im.SampleRate, nsrc, nch)
	for i, src := range im.Data {
		if err := c.SetMatrix(SourceKey(i), src); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ImageFromCache is the inverse of Image.Cache.
func ImageFromCache(c *Cache) (*Image, error) {
	im := &Image{
		SampleRate: c.SampleRate,
		Data:       make([][][]float64, c.NSources),
	}

	for i := range c.NSources {
		m, err := c.Matrix(SourceKey(i))
		if err != nil {
			return nil, err
		}
		im.Data[i] = m
	}

	return im, nil
}

// MixtureOptions configures PrepareMixture. NSources, when set, overrides
// the source counts of both datasets.
type MixtureOptions struct {
	Root       string // mixture cache directory, default ".data"
	NSources   int
	MaxSamples int // default DefaultMaxSamples
	SiSEC2010  SiSEC2010Options
	MIRD       MIRDOptions
}

func (o MixtureOptions) withDefaults() MixtureOptions {
	if o.Root == "" {
		o.Root = ".data"
	}
	if o.MaxSamples == 0 {
		o.MaxSamples = DefaultMaxSamples
	}
	if o.NSources != 0 {
		o.SiSEC2010.NSources = o.NSources
		o.MIRD.NSources = o.NSources
	}
	o.SiSEC2010 = o.SiSEC2010.withDefaults()
	return o
}

// Validate checks both dataset configurations before any I/O.
func (o MixtureOptions) Validate() error {
	o = o.withDefaults()

	if err := o.SiSEC2010.Validate(); err != nil {
		return err
	}

	if err := o.MIRD.Validate(); err != nil {
		return err
	}

	if o.SiSEC2010.NSources != o.MIRD.withDefaults().NSources {
		return fmt.Errorf("%w: %d dry sources, %d RIR sets", ErrSourceCountMismatch,
			o.SiSEC2010.NSources, o.MIRD.withDefaults().NSources)
	}

	return nil
}

// MixtureCachePath returns the cache file PrepareMixture builds.
func MixtureCachePath(opts MixtureOptions) string {
	o := opts.withDefaults()
	m := o.MIRD.withDefaults()

	name := fmt.Sprintf("mixture-%s-%s-%s-%s%s",
		o.SiSEC2010.Tag, joinInts(m.Degrees), joinInts(m.Channels), strconv.Itoa(o.MaxSamples), cacheExt)

	return filepath.Join(o.Root, name)
}

// PrepareMixture prepares the SiSEC 2010 and MIRD caches, synthesizes the
// reverberant source images and caches them. It returns the image and the
// path of its cache.
func PrepareMixture(ctx context.Context, opts MixtureOptions, options ...Option) (*Image, string, error) {
	if err := opts.Validate(); err != nil {
		return nil, "", err
	}

	o := opts.withDefaults()
	e := newEnv(options)
	cachePath := MixtureCachePath(o)

	if exists(cachePath) {
		c, err := LoadCache(cachePath)
		if err != nil {
			return nil, "", err
		}

		im, err := ImageFromCache(c)
		if err != nil {
			return nil, "", err
		}

		e.logger.Debug("mixture cache present", "path", cachePath)

		return im, cachePath, nil
	}

	srcPath, err := PrepareSiSEC2010(ctx, o.SiSEC2010, options...)
	if err != nil {
		return nil, "", err
	}

	rirPath, err := PrepareMIRD(ctx, o.MIRD, options...)
	if err != nil {
		return nil, "", err
	}

	sources, err := LoadCache(srcPath)
	if err != nil {
		return nil, "", err
	}

	rirs, err := LoadCache(rirPath)
	if err != nil {
		return nil, "", err
	}

	im, err := Synthesize(sources, rirs, o.MaxSamples)
	if err != nil {
		return nil, "", err
	}

	c, err := im.Cache()
	if err != nil {
		return nil, "", err
	}

	if err := SaveCache(cachePath, c); err != nil {
		return nil, "", err
	}

	for ch, st := range level.MeasureChannels(im.Mixture()) {
		e.logger.Debug("mixture level", "channel", ch, "rms_db", st.RMSdB, "peak_db", st.PeakdB, "clipped", st.Clipped)
	}

	nsrc, nch, n := im.Shape()
	e.logger.Info("mixture built", "path", cachePath, "sources", nsrc, "channels", nch, "samples", n)

	return im, cachePath, nil
}
