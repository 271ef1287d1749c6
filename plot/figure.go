package plot

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	// ErrLengthMismatch indicates x and y series of different length.
	ErrLengthMismatch = errors.New("plot: x and y lengths differ")
	// ErrEmptySeries indicates a trace without points.
	ErrEmptySeries = errors.New("plot: empty series")
)

// Default figure size.
const (
	DefaultWidth  = 16 * vg.Centimeter
	DefaultHeight = 10 * vg.Centimeter
)

// Figure is a single chart.
type Figure struct {
	Width, Height vg.Length

	p     *gplot.Plot
	boxes []string
}

// NewFigure returns an empty figure with a grid.
func NewFigure(title, xLabel, yLabel string) *Figure {
	p := gplot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	return &Figure{Width: DefaultWidth, Height: DefaultHeight, p: p}
}

// Plot exposes the underlying gonum plot.
func (f *Figure) Plot() *gplot.Plot {
	return f.p
}

func xys(x, y []float64) (plotter.XYs, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d and %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return nil, ErrEmptySeries
	}

	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X, pts[i].Y = x[i], y[i]
	}

	return pts, nil
}

// AddLine draws y over x. An empty name leaves the trace out of the
// legend.
func (f *Figure) AddLine(name string, x, y []float64, c color.Color) error {
	pts, err := xys(x, y)
	if err != nil {
		return err
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = vg.Points(1.5)

	f.p.Add(line)
	if name != "" {
		f.p.Legend.Add(name, line)
	}

	return nil
}

// AddMarkers draws one circle per point.
func (f *Figure) AddMarkers(name string, x, y []float64, c color.Color) error {
	pts, err := xys(x, y)
	if err != nil {
		return err
	}

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Radius = vg.Points(2.5)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}

	f.p.Add(sc)
	if name != "" {
		f.p.Legend.Add(name, sc)
	}

	return nil
}

// AddBox draws a box plot of values at the next category slot, labelled
// name on the x axis.
func (f *Figure) AddBox(name string, values []float64, c color.Color) error {
	if len(values) == 0 {
		return ErrEmptySeries
	}

	box, err := plotter.NewBoxPlot(vg.Points(24), float64(len(f.boxes)), plotter.Values(values))
	if err != nil {
		return err
	}
	box.FillColor = c

	f.p.Add(box)
	f.boxes = append(f.boxes, name)
	f.p.NominalX(f.boxes...)

	return nil
}

// Boxes returns the category labels added by AddBox.
func (f *Figure) Boxes() []string {
	return append([]string(nil), f.boxes...)
}

// WriteTo renders the figure in format ("png", "svg", "pdf", ...) to w.
func (f *Figure) WriteTo(w io.Writer, format string) (int64, error) {
	wt, err := f.p.WriterTo(f.Width, f.Height, format)
	if err != nil {
		return 0, err
	}

	return wt.WriteTo(w)
}

// Save renders the figure to path; the extension selects the format.
func (f *Figure) Save(path string) error {
	if filepath.Ext(path) == "" {
		return fmt.Errorf("plot: %q has no extension", path)
	}

	return f.p.Save(f.Width, f.Height, path)
}
