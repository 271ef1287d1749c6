package matfile

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrFormat indicates a malformed or unsupported MAT file.
	ErrFormat = errors.New("matfile: invalid format")
	// ErrNotFound indicates a variable missing from the file.
	ErrNotFound = errors.New("matfile: variable not found")
)

// Matrix is a real numeric array stored column-major.
type Matrix struct {
	Name string
	Dims []int
	Data []float64
	// Complex is set when the stored array had an imaginary part, which
	// is discarded.
	Complex bool
}

// NewMatrix wraps column-major data as a rows x cols matrix.
func NewMatrix(name string, rows, cols int, data []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrFormat, len(data), rows, cols)
	}

	return &Matrix{Name: name, Dims: []int{rows, cols}, Data: data}, nil
}

// FromColumns builds a matrix whose column j is cols[j].
func FromColumns(name string, cols [][]float64) (*Matrix, error) {
	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0])
	}

	data := make([]float64, 0, rows*len(cols))
	for j, c := range cols {
		if len(c) != rows {
			return nil, fmt.Errorf("%w: column %d has %d rows, want %d", ErrFormat, j, len(c), rows)
		}
		data = append(data, c...)
	}

	return NewMatrix(name, rows, len(cols), data)
}

// Rows returns the first dimension.
func (m *Matrix) Rows() int {
	if len(m.Dims) == 0 {
		return 0
	}
	return m.Dims[0]
}

// Cols returns the product of all dimensions after the first.
func (m *Matrix) Cols() int {
	if len(m.Dims) == 0 {
		return 0
	}

	n := 1
	for _, d := range m.Dims[1:] {
		n *= d
	}
	return n
}

// At returns element (i, j).
func (m *Matrix) At(i, j int) float64 {
	return m.Data[j*m.Rows()+i]
}

// Column returns a copy of column j.
func (m *Matrix) Column(j int) []float64 {
	rows := m.Rows()
	out := make([]float64, rows)
	copy(out, m.Data[j*rows:(j+1)*rows])
	return out
}

// Columns returns every column, laid out [col][row].
func (m *Matrix) Columns() [][]float64 {
	out := make([][]float64, m.Cols())
	for j := range out {
		out[j] = m.Column(j)
	}
	return out
}

// File is a decoded MAT file.
type File struct {
	Header string
	Vars   map[string]*Matrix
}

// Var returns the named variable.
func (f *File) Var(name string) (*Matrix, error) {
	m, ok := f.Vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return m, nil
}

// ReadFile reads the MAT file at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mf, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return mf, nil
}

// WriteFile writes matrices to path.
func WriteFile(path string, mats []*Matrix, opts ...WriteOption) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Write(f, mats, opts...); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
