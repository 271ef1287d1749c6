package plot

import (
	"errors"
	"slices"

	"github.com/cwbudde/algo-bss/runstore"
)

// ErrNoRuns indicates RenderRuns was given nothing to draw.
var ErrNoRuns = errors.New("plot: no runs")

// RenderOptions configures RenderRuns.
type RenderOptions struct {
	Palette string // default "deep"
	Title   string // default "SDR improvement"
	Markers bool   // draw a marker at every recorded entry
}

// Charts holds the figures RenderRuns produces.
type Charts struct {
	// Curves plots SDRi over elapsed time, one line per run.
	Curves *Figure
	// Final is a box chart of the last SDRi of every run, per method.
	Final *Figure
}

// RenderRuns draws runs colored by method. Runs without entries are
// skipped; if none remain ErrNoRuns is returned.
func RenderRuns(runs []runstore.Run, opts RenderOptions) (*Charts, error) {
	if opts.Palette == "" {
		opts.Palette = "deep"
	}
	if opts.Title == "" {
		opts.Title = "SDR improvement"
	}

	finals := map[string][]float64{}
	for _, run := range runs {
		if v, ok := run.Final(); ok {
			finals[run.Method] = append(finals[run.Method], v)
		}
	}
	if len(finals) == 0 {
		return nil, ErrNoRuns
	}

	methods := make([]string, 0, len(finals))
	for m := range finals {
		methods = append(methods, m)
	}
	slices.Sort(methods)

	colors, err := Colors(opts.Palette, len(methods))
	if err != nil {
		return nil, err
	}

	charts := &Charts{
		Curves: NewFigure(opts.Title, "Time [s]", "SDRi [dB]"),
		Final:  NewFigure(opts.Title, "Method", "Final SDRi [dB]"),
	}

	labelled := map[string]bool{}
	for _, run := range runs {
		if len(run.Entries) == 0 {
			continue
		}

		rec := run.Record()
		c := colors[slices.Index(methods, run.Method)]

		name := ""
		if !labelled[run.Method] {
			name = run.Method
			labelled[run.Method] = true
		}

		if err := charts.Curves.AddLine(name, rec.Times(), rec.SDRi(), c); err != nil {
			return nil, err
		}

		if opts.Markers {
			if err := charts.Curves.AddMarkers("", rec.Times(), rec.SDRi(), c); err != nil {
				return nil, err
			}
		}
	}

	for i, m := range methods {
		if err := charts.Final.AddBox(m, finals[m], colors[i]); err != nil {
			return nil, err
		}
	}

	return charts, nil
}
