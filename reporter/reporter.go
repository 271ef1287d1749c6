package reporter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cwbudde/algo-bss/bss"
	"github.com/cwbudde/algo-bss/dsp/stft"
	"github.com/cwbudde/algo-bss/measure/bsseval"
)

var (
	// ErrNoReference indicates an empty or ragged reference image.
	ErrNoReference = errors.New("reporter: invalid reference image")
	// ErrInvalidStride indicates a non-positive save frequency.
	ErrInvalidStride = errors.New("reporter: save frequency must be positive")
)

// DefaultSaveFrequency is the default stride between scored calls.
const DefaultSaveFrequency = 10

// Method is the view of a separation algorithm the reporter needs.
type Method interface {
	// SpatialAlgorithm names the spatial update, e.g. bss.AlgorithmIP.
	SpatialAlgorithm() string
	// Input is the mixture spectrogram laid out [channel][bin][frame].
	Input() stft.Spectrogram
	// Output is the current estimate laid out [source][bin][frame].
	Output() stft.Spectrogram
	// DemixFilter is the current filter; used when
	// bss.UsesDemixFilter(SpatialAlgorithm()) holds.
	DemixFilter() bss.DemixFilter
	// Record receives the scored entries.
	Record() *Record
}

// Evaluator returns one SDR per source in dB.
type Evaluator func(reference, estimated [][]float64) ([]float64, error)

// Clock returns the current time.
type Clock func() time.Time

// Option configures an SDRiReporter.
type Option func(*SDRiReporter)

// WithSTFT sets the transform parameters used to synthesize waveforms.
func WithSTFT(cfg stft.Config) Option {
	return func(r *SDRiReporter) { r.stftCfg = cfg }
}

// WithReferenceID selects the microphone whose source images are the
// ground truth and onto which estimates are projected back.
func WithReferenceID(id int) Option {
	return func(r *SDRiReporter) { r.refID = id }
}

// WithSaveFrequency scores every n-th call.
func WithSaveFrequency(n int) Option {
	return func(r *SDRiReporter) { r.stride = n }
}

// WithOffset is added to every recorded elapsed time.
func WithOffset(d time.Duration) Option {
	return func(r *SDRiReporter) { r.offset = d }
}

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(r *SDRiReporter) {
		if c != nil {
			r.now = c
		}
	}
}

// WithEvaluator replaces bsseval.SDR.
func WithEvaluator(e Evaluator) Option {
	return func(r *SDRiReporter) {
		if e != nil {
			r.eval = e
		}
	}
}

// WithLogger sets the logger for per-call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *SDRiReporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// SDRiReporter records SDR improvement against elapsed algorithm time.
//
// The first call starts the clock. Calls whose index is a multiple of the
// save frequency are scored; the time spent scoring is excluded from the
// recorded elapsed times. The first scored call also scores the mixture
// itself, caches that baseline and records an improvement of 0.
//
// An SDRiReporter is not safe for concurrent use.
type SDRiReporter struct {
	reference [][]float64
	nSamples  int

	stftCfg stft.Config
	refID   int
	stride  int
	offset  time.Duration
	now     Clock
	eval    Evaluator
	logger  *slog.Logger

	transform *stft.Transform
	calls     int
	started   bool
	start     time.Time
	scoring   time.Duration
	baseline  []float64
}

// New returns a reporter for source images laid out
// [source][channel][sample]. The ground truth is channel WithReferenceID of
// every source.
func New(images [][][]float64, opts ...Option) (*SDRiReporter, error) {
	r := &SDRiReporter{
		stftCfg: stft.DefaultConfig(),
		stride:  DefaultSaveFrequency,
		now:     time.Now,
		eval: func(reference, estimated [][]float64) ([]float64, error) {
			return bsseval.SDR(reference, estimated)
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if r.stride < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStride, r.stride)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no sources", ErrNoReference)
	}

	r.reference = make([][]float64, len(images))
	for i, src := range images {
		if r.refID < 0 || r.refID >= len(src) {
			return nil, fmt.Errorf("%w: source %d has %d channels, reference %d", bss.ErrReferenceID, i, len(src), r.refID)
		}

		r.reference[i] = src[r.refID]
		if len(r.reference[i]) != len(r.reference[0]) {
			return nil, fmt.Errorf("%w: source %d has %d samples, want %d",
				ErrNoReference, i, len(r.reference[i]), len(r.reference[0]))
		}
	}

	r.nSamples = len(r.reference[0])
	if r.nSamples == 0 {
		return nil, fmt.Errorf("%w: zero-length sources", ErrNoReference)
	}

	t, err := stft.New(r.stftCfg)
	if err != nil {
		return nil, err
	}
	r.transform = t

	return r, nil
}

// Calls returns how many times Report has been invoked.
func (r *SDRiReporter) Calls() int {
	return r.calls
}

// Baseline returns the cached per-source SDR of the unprocessed mixture,
// or nil before the first scored call.
func (r *SDRiReporter) Baseline() []float64 {
	return r.baseline
}

// Report is invoked once per algorithm iteration.
func (r *SDRiReporter) Report(m Method) error {
	if !r.started {
		r.start = r.now()
		r.started = true
	}

	iter := r.calls
	r.calls++

	if iter%r.stride != 0 {
		return nil
	}

	scoreStart := r.now()

	sdri, err := r.score(m)
	if err != nil {
		return fmt.Errorf("reporter: iteration %d: %w", iter, err)
	}

	scoreEnd := r.now()
	r.scoring += scoreEnd.Sub(scoreStart)

	elapsed := scoreEnd.Sub(r.start) - r.scoring + r.offset
	m.Record().Append(Entry{Iteration: iter, Elapsed: elapsed, SDRi: sdri})

	r.logger.Debug("scored", "iteration", iter, "sdri", sdri, "elapsed", elapsed)

	return nil
}

func (r *SDRiReporter) score(m Method) (float64, error) {
	mix := m.Input()

	if r.baseline == nil {
		waveform, err := r.transform.InverseMulti(mix, r.nSamples)
		if err != nil {
			return 0, fmt.Errorf("mixture: %w", err)
		}

		base, err := r.eval(r.reference, waveform)
		if err != nil {
			return 0, fmt.Errorf("mixture: %w", err)
		}

		r.baseline = base
		r.logger.Debug("baseline", "sdr", base)

		return 0, nil
	}

	est := m.Output()
	if bss.UsesDemixFilter(m.SpatialAlgorithm()) {
		var err error
		est, err = bss.Separate(mix, m.DemixFilter())
		if err != nil {
			return 0, err
		}
	}

	est, err := bss.ProjectionBack(est, mix, r.refID)
	if err != nil {
		return 0, err
	}

	waveform, err := r.transform.InverseMulti(est, r.nSamples)
	if err != nil {
		return 0, fmt.Errorf("estimate: %w", err)
	}

	sdr, err := r.eval(r.reference, waveform)
	if err != nil {
		return 0, fmt.Errorf("estimate: %w", err)
	}

	if len(sdr) != len(r.baseline) {
		return 0, fmt.Errorf("%w: %d scores, baseline has %d", bss.ErrShapeMismatch, len(sdr), len(r.baseline))
	}

	mean := 0.0
	for i := range sdr {
		mean += sdr[i] - r.baseline[i]
	}

	return mean / float64(len(sdr)), nil
}
