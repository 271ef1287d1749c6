// Package config loads the YAML study description used by bssstudy.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/cwbudde/algo-bss/dataset"
	"github.com/cwbudde/algo-bss/dsp/stft"
	"github.com/cwbudde/algo-bss/dsp/window"
	"github.com/cwbudde/algo-bss/reporter"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid study")

// Study describes datasets, transform and reporter settings of a study.
type Study struct {
	DataRoot   string `yaml:"data_root"`
	NSources   int    `yaml:"n_sources"`
	MaxSamples int    `yaml:"max_samples"`

	SiSEC2010 SiSEC2010 `yaml:"sisec2010"`
	MIRD      MIRD      `yaml:"mird"`
	Arctic    Arctic    `yaml:"cmu_arctic"`
	STFT      STFT      `yaml:"stft"`
	Reporter  Reporter  `yaml:"reporter"`

	// RunStore is the run database directory, relative to DataRoot unless
	// absolute.
	RunStore string `yaml:"run_store"`
}

// SiSEC2010 selects the dry sources.
type SiSEC2010 struct {
	Tag string `yaml:"tag"`
	URL string `yaml:"url,omitempty"`
}

// MIRD selects source directions and microphones.
type MIRD struct {
	Degrees  []int  `yaml:"degrees"`
	Channels []int  `yaml:"channels"`
	URL      string `yaml:"url,omitempty"`
}

// Arctic selects CMU ARCTIC speakers.
type Arctic struct {
	Tags        []string `yaml:"tags"`
	URLTemplate string   `yaml:"url_template,omitempty"`
}

// STFT is the analysis frame layout.
type STFT struct {
	FFTSize int    `yaml:"fft_size"`
	HopSize int    `yaml:"hop_size"`
	Window  string `yaml:"window"`
}

// Reporter configures SDRi scoring.
type Reporter struct {
	ReferenceID   int     `yaml:"reference_id"`
	SaveFrequency int     `yaml:"save_frequency"`
	Offset        float64 `yaml:"offset"` // seconds
}

// Default returns the study defaults.
func Default() Study {
	return Study{
		DataRoot:   ".data",
		NSources:   3,
		MaxSamples: dataset.DefaultMaxSamples,
		SiSEC2010:  SiSEC2010{Tag: dataset.SiSEC2010Tags[0]},
		MIRD: MIRD{
			Degrees:  append([]int(nil), dataset.DefaultMIRDDegrees...),
			Channels: append([]int(nil), dataset.DefaultMIRDChannels...),
		},
		Arctic: Arctic{Tags: append([]string(nil), dataset.DefaultCMUArcticTags...)},
		STFT:   STFT{FFTSize: 4096, HopSize: 2048, Window: "hann"},
		Reporter: Reporter{
			SaveFrequency: reporter.DefaultSaveFrequency,
		},
		RunStore: "runs",
	}
}

// Load reads the study at path over the defaults. An empty path returns
// the defaults. Unknown fields are rejected.
func Load(path string) (Study, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Study{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.UnmarshalWithOptions(data, &s, yaml.DisallowUnknownField()); err != nil {
		return Study{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return s, nil
}

// Validate checks the study without touching the filesystem.
func (s Study) Validate() error {
	if s.NSources < 1 {
		return fmt.Errorf("%w: n_sources %d", ErrInvalid, s.NSources)
	}
	if s.MaxSamples < 1 {
		return fmt.Errorf("%w: max_samples %d", ErrInvalid, s.MaxSamples)
	}

	if err := s.MixtureOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if _, err := s.STFTConfig(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if s.Reporter.ReferenceID < 0 || s.Reporter.ReferenceID >= s.NSources {
		return fmt.Errorf("%w: reference_id %d not in [0, %d)", ErrInvalid, s.Reporter.ReferenceID, s.NSources)
	}
	if s.Reporter.SaveFrequency < 1 {
		return fmt.Errorf("%w: save_frequency %d", ErrInvalid, s.Reporter.SaveFrequency)
	}

	return nil
}

// MixtureOptions maps the study onto dataset preparation options.
func (s Study) MixtureOptions() dataset.MixtureOptions {
	return dataset.MixtureOptions{
		Root:       s.DataRoot,
		NSources:   s.NSources,
		MaxSamples: s.MaxSamples,
		SiSEC2010: dataset.SiSEC2010Options{
			Root:     filepath.Join(s.DataRoot, "SiSEC2010"),
			NSources: s.NSources,
			Tag:      s.SiSEC2010.Tag,
			URL:      s.SiSEC2010.URL,
		},
		MIRD: dataset.MIRDOptions{
			Root:     filepath.Join(s.DataRoot, "MIRD"),
			NSources: s.NSources,
			Degrees:  s.MIRD.Degrees,
			Channels: s.MIRD.Channels,
			URL:      s.MIRD.URL,
		},
	}
}

// ArcticOptions maps the study onto CMU ARCTIC preparation options.
func (s Study) ArcticOptions() dataset.CMUArcticOptions {
	return dataset.CMUArcticOptions{
		Root:        filepath.Join(s.DataRoot, "cmu_arctic"),
		Tags:        s.Arctic.Tags,
		URLTemplate: s.Arctic.URLTemplate,
	}
}

// STFTConfig returns the validated transform layout.
func (s Study) STFTConfig() (stft.Config, error) {
	w, err := window.Parse(s.STFT.Window)
	if err != nil {
		return stft.Config{}, err
	}

	cfg := stft.Config{FFTSize: s.STFT.FFTSize, HopSize: s.STFT.HopSize, Window: w}
	if _, err := stft.New(cfg); err != nil {
		return stft.Config{}, err
	}

	return cfg, nil
}

// ReporterOptions returns the reporter settings as options.
func (s Study) ReporterOptions() ([]reporter.Option, error) {
	cfg, err := s.STFTConfig()
	if err != nil {
		return nil, err
	}

	return []reporter.Option{
		reporter.WithSTFT(cfg),
		reporter.WithReferenceID(s.Reporter.ReferenceID),
		reporter.WithSaveFrequency(s.Reporter.SaveFrequency),
		reporter.WithOffset(time.Duration(s.Reporter.Offset * float64(time.Second))),
	}, nil
}

// RunStoreDir resolves the run database directory.
func (s Study) RunStoreDir() string {
	if filepath.IsAbs(s.RunStore) {
		return s.RunStore
	}
	return filepath.Join(s.DataRoot, s.RunStore)
}
