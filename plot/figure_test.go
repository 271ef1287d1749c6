package plot

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-bss/reporter"
	"github.com/cwbudde/algo-bss/runstore"
)

var red = color.NRGBA{R: 200, A: 255}

func TestFigureTraces(t *testing.T) {
	f := NewFigure("t", "x", "y")

	if err := f.AddLine("line", []float64{0, 1, 2}, []float64{0, 1, 4}, red); err != nil {
		t.Fatalf("AddLine() error = %v", err)
	}
	if err := f.AddMarkers("pts", []float64{0, 1}, []float64{1, 0}, red); err != nil {
		t.Fatalf("AddMarkers() error = %v", err)
	}

	if err := f.AddLine("bad", []float64{0, 1}, []float64{0}, red); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("AddLine() error = %v, want ErrLengthMismatch", err)
	}
	if err := f.AddMarkers("empty", nil, nil, red); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("AddMarkers() error = %v, want ErrEmptySeries", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf, "svg"); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("<svg")) {
		t.Fatal("svg output missing <svg element")
	}
}

func TestFigureBoxes(t *testing.T) {
	f := NewFigure("", "", "")

	if err := f.AddBox("a", []float64{1, 2, 3, 4}, red); err != nil {
		t.Fatalf("AddBox() error = %v", err)
	}
	if err := f.AddBox("b", []float64{2, 2, 5}, red); err != nil {
		t.Fatalf("AddBox() error = %v", err)
	}
	if err := f.AddBox("c", nil, red); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("AddBox() error = %v, want ErrEmptySeries", err)
	}

	if got := f.Boxes(); len(got) != 2 || got[1] != "b" {
		t.Fatalf("Boxes() = %v, want [a b]", got)
	}
}

func TestFigureSave(t *testing.T) {
	f := NewFigure("t", "x", "y")
	if err := f.AddLine("l", []float64{0, 1}, []float64{1, 2}, red); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "chart.png")
	if err := f.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatal("Save() did not write a PNG")
	}

	if err := f.Save(filepath.Join(t.TempDir(), "chart")); err == nil {
		t.Fatal("expected error for path without extension")
	}
}

func TestRenderRuns(t *testing.T) {
	entries := func(final float64) []reporter.Entry {
		return []reporter.Entry{
			{Iteration: 0, Elapsed: 0, SDRi: 0},
			{Iteration: 10, Elapsed: time.Second, SDRi: final / 2},
			{Iteration: 20, Elapsed: 2 * time.Second, SDRi: final},
		}
	}

	runs := []runstore.Run{
		{ID: "1", Method: "ILRMA", Entries: entries(8)},
		{ID: "2", Method: "AuxIVA-IP", Entries: entries(5)},
		{ID: "3", Method: "ILRMA", Entries: entries(9)},
		{ID: "4", Method: "empty"},
	}

	charts, err := RenderRuns(runs, RenderOptions{Markers: true})
	if err != nil {
		t.Fatalf("RenderRuns() error = %v", err)
	}

	if got := charts.Final.Boxes(); len(got) != 2 || got[0] != "AuxIVA-IP" || got[1] != "ILRMA" {
		t.Fatalf("Final boxes = %v, want [AuxIVA-IP ILRMA]", got)
	}

	var buf bytes.Buffer
	if _, err := charts.Curves.WriteTo(&buf, "svg"); err != nil {
		t.Fatalf("Curves.WriteTo() error = %v", err)
	}

	if _, err := RenderRuns(runs[3:], RenderOptions{}); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("RenderRuns() error = %v, want ErrNoRuns", err)
	}

	if _, err := RenderRuns(runs, RenderOptions{Palette: "nope"}); !errors.Is(err, ErrUnknownPalette) {
		t.Fatalf("RenderRuns() error = %v, want ErrUnknownPalette", err)
	}
}
