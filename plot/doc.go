// Package plot renders separation results.
//
// Palette maps seaborn-style palette names to CSS rgb() strings, Colors to
// color.Color values. Figure wraps a gonum/plot chart with line, marker and
// box traces, and RenderRuns draws the SDRi curves of stored runs.
package plot
