package dataset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedTag indicates a dataset tag outside the allow-list.
	ErrUnsupportedTag = errors.New("dataset: unsupported tag")
	// ErrNotDetermined indicates a channel count different from the source count.
	ErrNotDetermined = errors.New("dataset: mixing system must be determined")
	// ErrInvalidSourceCount indicates a non-positive source count.
	ErrInvalidSourceCount = errors.New("dataset: source count must be positive")
	// ErrMissingKey indicates an array missing from a cache.
	ErrMissingKey = errors.New("dataset: missing key")
	// ErrSourceCountMismatch indicates caches with different source counts.
	ErrSourceCountMismatch = errors.New("dataset: source count mismatch")
	// ErrLengthMismatch indicates sources that cannot be stacked.
	ErrLengthMismatch = errors.New("dataset: source length mismatch")
	// ErrChannelRange indicates a microphone index outside the array.
	ErrChannelRange = errors.New("dataset: channel out of range")
)

// SampleRate is the rate of every cached waveform and RIR.
const SampleRate = 16000

// Option configures network and logging behavior of the Prepare functions.
type Option func(*env)

type env struct {
	client   *http.Client
	progress io.Writer
	logger   *slog.Logger
}

func newEnv(opts []Option) *env {
	e := &env{
		client:   http.DefaultClient,
		progress: io.Discard,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e
}

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(e *env) {
		if c != nil {
			e.client = c
		}
	}
}

// WithProgress renders download progress bars to w.
func WithProgress(w io.Writer) Option {
	return func(e *env) {
		if w != nil {
			e.progress = w
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *env) {
		if l != nil {
			e.logger = l
		}
	}
}

// SourceKey returns the cache key of source index i ("src_1" for i = 0).
func SourceKey(i int) string {
	return "src_" + strconv.Itoa(i+1)
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "-")
}

func checkTag(tag string, allowed []string) error {
	for _, t := range allowed {
		if t == tag {
			return nil
		}
	}
	return fmt.Errorf("%w: %q, choose from %v", ErrUnsupportedTag, tag, allowed)
}
