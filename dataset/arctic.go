package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CMUArcticURLTemplate formats the archive URL of one speaker.
const CMUArcticURLTemplate = "http://festvox.org/cmu_arctic/cmu_arctic/packed/cmu_us_%s_arctic-0.95-release.tar.bz2"

// DefaultCMUArcticTags are the speakers used when none are given.
var DefaultCMUArcticTags = []string{"awb", "bdl", "clb"}

// CMUArcticOptions selects the speakers to cache; speaker k contributes
// its utterance arctic_a<k+1>.
type CMUArcticOptions struct {
	Root string   // default ".data/cmu_arctic"
	Tags []string // default DefaultCMUArcticTags
	// URLTemplate is formatted with the speaker tag; default
	// CMUArcticURLTemplate.
	URLTemplate string
}

func (o CMUArcticOptions) withDefaults() CMUArcticOptions {
	if o.Root == "" {
		o.Root = filepath.Join(".data", "cmu_arctic")
	}
	if len(o.Tags) == 0 {
		o.Tags = DefaultCMUArcticTags
	}
	if o.URLTemplate == "" {
		o.URLTemplate = CMUArcticURLTemplate
	}
	return o
}

// CMUArcticCachePath returns the cache file PrepareCMUArctic builds.
func CMUArcticCachePath(opts CMUArcticOptions) string {
	o := opts.withDefaults()
	return filepath.Join(o.Root, "cmu_arctic_"+strings.Join(o.Tags, "-")+cacheExt)
}

// PrepareCMUArctic makes sure the dry-source cache for the CMU ARCTIC
// speakers exists and returns its path.
func PrepareCMUArctic(ctx context.Context, opts CMUArcticOptions, options ...Option) (string, error) {
	o := opts.withDefaults()
	e := newEnv(options)
	log := e.logger.With("dataset", "cmu_arctic")

	cachePath := CMUArcticCachePath(o)
	if exists(cachePath) {
		log.Debug("cache present", "path", cachePath)
		return cachePath, nil
	}

	if err := os.MkdirAll(o.Root, 0o755); err != nil {
		return "", err
	}

	for _, tag := range o.Tags {
		if tag == "" || strings.ContainsAny(tag, `/\`) {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedTag, tag)
		}

		url := fmt.Sprintf(o.URLTemplate, tag)
		archive := filepath.Join(o.Root, filepath.Base(url))

		if _, err := e.fetch(ctx, url, archive); err != nil {
			return "", err
		}

		if !exists(filepath.Join(o.Root, speakerDir(tag), "wav")) {
			log.Info("unpacking", "archive", archive)
			if err := Extract(archive, o.Root); err != nil {
				return "", err
			}
		}
	}

	n := len(o.Tags)
	cache := NewCache(SampleRate, n, n)
	for i, tag := range o.Tags {
		path := filepath.Join(o.Root, speakerDir(tag), "wav", fmt.Sprintf("arctic_a%04d.wav", i+1))

		samples, _, err := ReadWAV(path)
		if err != nil {
			return "", err
		}

		cache.SetVector(SourceKey(i), samples)
	}

	if err := SaveCache(cachePath, cache); err != nil {
		return "", err
	}

	log.Info("cache built", "path", cachePath, "speakers", n)

	return cachePath, nil
}

func speakerDir(tag string) string {
	return "cmu_us_" + tag + "_arctic"
}
