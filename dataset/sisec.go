package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// SiSEC2010URL is the SiSEC 2010 underdetermined-speech development set.
const SiSEC2010URL = "http://www.irisa.fr/metiss/SiSEC10/underdetermined/dev1.zip"

// SiSEC2010Tags lists the supported SiSEC 2010 recordings.
var SiSEC2010Tags = []string{"dev1_female3", "dev1_female4"}

// SiSEC2010Options selects the dry sources to cache.
type SiSEC2010Options struct {
	Root     string // default ".data/SiSEC2010"
	NSources int    // default 3
	Tag      string // default "dev1_female3"
	URL      string // default SiSEC2010URL
}

func (o SiSEC2010Options) withDefaults() SiSEC2010Options {
	if o.Root == "" {
		o.Root = filepath.Join(".data", "SiSEC2010")
	}
	if o.NSources == 0 {
		o.NSources = 3
	}
	if o.Tag == "" {
		o.Tag = SiSEC2010Tags[0]
	}
	if o.URL == "" {
		o.URL = SiSEC2010URL
	}
	return o
}

// Validate checks the options without touching the filesystem.
func (o SiSEC2010Options) Validate() error {
	o = o.withDefaults()

	if err := checkTag(o.Tag, SiSEC2010Tags); err != nil {
		return err
	}

	if o.NSources < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSourceCount, o.NSources)
	}

	return nil
}

// SiSEC2010CachePath returns the cache file PrepareSiSEC2010 builds.
func SiSEC2010CachePath(opts SiSEC2010Options) string {
	o := opts.withDefaults()
	return filepath.Join(o.Root, fmt.Sprintf("SiSEC2010-%s-%dch%s", o.Tag, o.NSources, cacheExt))
}

// PrepareSiSEC2010 makes sure the dry-source cache for opts exists and
// returns its path. Sources are stored under SourceKey(i) as 1-D arrays.
func PrepareSiSEC2010(ctx context.Context, opts SiSEC2010Options, options ...Option) (string, error) {
	o := opts.withDefaults()
	if err := o.Validate(); err != nil {
		return "", err
	}

	e := newEnv(options)
	log := e.logger.With("dataset", "SiSEC2010", "tag", o.Tag)

	cachePath := SiSEC2010CachePath(o)
	if exists(cachePath) {
		log.Debug("cache present", "path", cachePath)
		return cachePath, nil
	}

	if err := os.MkdirAll(o.Root, 0o755); err != nil {
		return "", err
	}

	archive := filepath.Join(o.Root, "dev1.zip")
	if _, err := e.fetch(ctx, o.URL, archive); err != nil {
		return "", err
	}

	if !exists(filepath.Join(o.Root, o.Tag+"_inst_matrix.mat")) {
		log.Info("unpacking", "archive", archive)
		if err := Extract(archive, o.Root); err != nil {
			return "", err
		}
	}

	// The dry set is determined by construction: one channel per source.
	cache := NewCache(SampleRate, o.NSources, o.NSources)
	for i := range o.NSources {
		path := filepath.Join(o.Root, o.Tag+"_src_"+strconv.Itoa(i+1)+".wav")

		samples, _, err := ReadWAV(path)
		if err != nil {
			return "", err
		}

		cache.SetVector(SourceKey(i), samples)
	}

	if err := SaveCache(cachePath, cache); err != nil {
		return "", err
	}

	log.Info("cache built", "path", cachePath, "sources", o.NSources)

	return cachePath, nil
}
