package matfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

const headerText = "MATLAB 5.0 MAT-file, Platform: GLNXA64, written by algo-bss"

// WriteOption configures Write.
type WriteOption func(*writeConfig)

type writeConfig struct {
	compress bool
}

// WithCompression stores each variable as a zlib-compressed element.
func WithCompression() WriteOption {
	return func(c *writeConfig) {
		c.compress = true
	}
}

// Write encodes matrices as little-endian double arrays.
func Write(w io.Writer, mats []*Matrix, opts ...WriteOption) error {
	var cfg writeConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	header := make([]byte, headerLen)
	for i := range 116 {
		header[i] = ' '
	}
	copy(header, headerText)
	binary.LittleEndian.PutUint16(header[124:], 0x0100)
	copy(header[126:], "IM")

	if _, err := w.Write(header); err != nil {
		return err
	}

	for _, m := range mats {
		elem, err := encodeMatrix(m)
		if err != nil {
			return err
		}

		if cfg.compress {
			var zbuf bytes.Buffer
			zw := zlib.NewWriter(&zbuf)
			if _, err := zw.Write(elem); err != nil {
				return err
			}
			if err := zw.Close(); err != nil {
				return err
			}

			elem = appendTag(nil, miCOMPRESSED, zbuf.Len())
			elem = append(elem, zbuf.Bytes()...)
		}

		if _, err := w.Write(elem); err != nil {
			return err
		}
	}

	return nil
}

func encodeMatrix(m *Matrix) ([]byte, error) {
	total := 1
	for _, d := range m.Dims {
		total *= d
	}
	if len(m.Dims) < 2 || total != len(m.Data) {
		return nil, fmt.Errorf("%w: %q has %d values for dims %v", ErrFormat, m.Name, len(m.Data), m.Dims)
	}

	var body []byte

	flags := make([]byte, 8)
	binary.LittleEndian.PutUint32(flags, mxDOUBLE)
	body = appendElement(body, miUINT32, flags)

	dims := make([]byte, 4*len(m.Dims))
	for i, d := range m.Dims {
		binary.LittleEndian.PutUint32(dims[4*i:], uint32(d))
	}
	body = appendElement(body, miINT32, dims)

	body = appendElement(body, miINT8, []byte(m.Name))

	data := make([]byte, 8*len(m.Data))
	for i, v := range m.Data {
		binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
	}
	body = appendElement(body, miDOUBLE, data)

	out := appendTag(nil, miMATRIX, len(body))
	return append(out, body...), nil
}

func appendTag(dst []byte, typ uint32, n int) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, typ)
	return binary.LittleEndian.AppendUint32(dst, uint32(n))
}

func appendElement(dst []byte, typ uint32, data []byte) []byte {
	dst = appendTag(dst, typ, len(data))
	dst = append(dst, data...)
	for range pad8(len(data)) - len(data) {
		dst = append(dst, 0)
	}
	return dst
}
