package matfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/klauspost/compress/zlib"
)

const headerLen = 128

// Data element types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
)

// Numeric array classes span mxDOUBLE..mxUINT64.
const (
	mxDOUBLE = 6
	mxUINT64 = 15
)

const complexFlag = 0x0800

// Read decodes a MAT file.
func Read(r io.Reader) (*File, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(raw) < headerLen {
		return nil, fmt.Errorf("%w: short header", ErrFormat)
	}

	var order binary.ByteOrder
	switch string(raw[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad endian indicator %q", ErrFormat, raw[126:128])
	}

	if v := order.Uint16(raw[124:126]); v != 0x0100 {
		return nil, fmt.Errorf("%w: unsupported version 0x%04x", ErrFormat, v)
	}

	f := &File{
		Header: strings.TrimRight(string(raw[:116]), " \x00"),
		Vars:   make(map[string]*Matrix),
	}

	if err := decodeElements(raw[headerLen:], order, f); err != nil {
		return nil, err
	}

	return f, nil
}

func decodeElements(buf []byte, order binary.ByteOrder, f *File) error {
	s := stream{buf: buf, order: order}

	for !s.done() {
		typ, data, err := s.next()
		if err != nil {
			return err
		}

		switch typ {
		case miCOMPRESSED:
			zr, err := zlib.NewReader(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrFormat, err)
			}

			inner, err := io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrFormat, err)
			}

			if err := decodeElements(inner, order, f); err != nil {
				return err
			}
		case miMATRIX:
			m, err := decodeMatrix(data, order)
			if err != nil {
				return err
			}
			if m != nil {
				f.Vars[m.Name] = m
			}
		}
	}

	return nil
}

// decodeMatrix returns nil for array classes that are not numeric.
func decodeMatrix(buf []byte, order binary.ByteOrder) (*Matrix, error) {
	if len(buf) == 0 {
		return nil, nil
	}

	s := stream{buf: buf, order: order}

	typ, flags, err := s.next()
	if err != nil {
		return nil, err
	}
	if typ != miUINT32 || len(flags) < 8 {
		return nil, fmt.Errorf("%w: bad array flags", ErrFormat)
	}

	word := order.Uint32(flags)
	class := word & 0xFF
	if class < mxDOUBLE || class > mxUINT64 {
		return nil, nil
	}

	typ, dimData, err := s.next()
	if err != nil {
		return nil, err
	}
	if typ != miINT32 {
		return nil, fmt.Errorf("%w: bad dimensions", ErrFormat)
	}

	dims := make([]int, len(dimData)/4)
	total := 1
	for i := range dims {
		dims[i] = int(int32(order.Uint32(dimData[4*i:])))
		if dims[i] < 0 {
			return nil, fmt.Errorf("%w: negative dimension", ErrFormat)
		}
		total *= dims[i]
	}

	_, name, err := s.next()
	if err != nil {
		return nil, err
	}

	typ, realData, err := s.next()
	if err != nil {
		return nil, err
	}

	values, err := decodeNumeric(typ, realData, order)
	if err != nil {
		return nil, err
	}

	if len(values) != total {
		return nil, fmt.Errorf("%w: %q has %d values, dimensions need %d", ErrFormat, name, len(values), total)
	}

	return &Matrix{
		Name:    string(name),
		Dims:    dims,
		Data:    values,
		Complex: word&complexFlag != 0,
	}, nil
}

func decodeNumeric(typ uint32, data []byte, order binary.ByteOrder) ([]float64, error) {
	var size int
	switch typ {
	case miINT8, miUINT8:
		size = 1
	case miINT16, miUINT16:
		size = 2
	case miINT32, miUINT32, miSINGLE:
		size = 4
	case miDOUBLE, miINT64, miUINT64:
		size = 8
	default:
		return nil, fmt.Errorf("%w: unsupported data type %d", ErrFormat, typ)
	}

	out := make([]float64, len(data)/size)
	for i := range out {
		b := data[i*size:]
		switch typ {
		case miINT8:
			out[i] = float64(int8(b[0]))
		case miUINT8:
			out[i] = float64(b[0])
		case miINT16:
			out[i] = float64(int16(order.Uint16(b)))
		case miUINT16:
			out[i] = float64(order.Uint16(b))
		case miINT32:
			out[i] = float64(int32(order.Uint32(b)))
		case miUINT32:
			out[i] = float64(order.Uint32(b))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(order.Uint32(b)))
		case miDOUBLE:
			out[i] = math.Float64frombits(order.Uint64(b))
		case miINT64:
			out[i] = float64(int64(order.Uint64(b)))
		case miUINT64:
			out[i] = float64(order.Uint64(b))
		}
	}

	return out, nil
}

// stream walks tagged data elements.
type stream struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

func (s *stream) done() bool {
	return s.pos >= len(s.buf)
}

func (s *stream) next() (uint32, []byte, error) {
	if len(s.buf)-s.pos < 8 {
		return 0, nil, fmt.Errorf("%w: truncated tag at %d", ErrFormat, s.pos)
	}

	first := s.order.Uint32(s.buf[s.pos:])

	// Small data element: type and size packed in the first word, data in
	// the second.
	if first>>16 != 0 {
		n := int(first >> 16)
		if n > 4 {
			return 0, nil, fmt.Errorf("%w: small element of %d bytes", ErrFormat, n)
		}

		data := s.buf[s.pos+4 : s.pos+4+n]
		s.pos += 8
		return first & 0xFFFF, data, nil
	}

	n := int(s.order.Uint32(s.buf[s.pos+4:]))
	start := s.pos + 8
	if n < 0 || start+n > len(s.buf) {
		return 0, nil, fmt.Errorf("%w: element of %d bytes overruns data", ErrFormat, n)
	}

	s.pos = start + n
	if first != miCOMPRESSED {
		s.pos = start + pad8(n)
	}

	return first, s.buf[start : start+n], nil
}

func pad8(n int) int {
	return (n + 7) &^ 7
}
