package dataset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	cacheMagic   = "BSSC"
	cacheVersion = 1
	cacheExt     = ".bssc"
)

// ErrCorruptCache indicates a cache file that fails to decode or verify.
var ErrCorruptCache = errors.New("dataset: corrupt cache")

// Array is a dense row-major float64 array.
type Array struct {
	Shape []int     `msgpack:"shape"`
	Data  []float64 `msgpack:"data"`
}

// Cache is the on-disk container for prepared waveforms and RIRs.
type Cache struct {
	SampleRate int              `msgpack:"sample_rate"`
	NSources   int              `msgpack:"n_sources"`
	NChannels  int              `msgpack:"n_channels"`
	Arrays     map[string]Array `msgpack:"arrays"`
}

// NewCache returns an empty cache with the given metadata.
func NewCache(sampleRate, nSources, nChannels int) *Cache {
	return &Cache{
		SampleRate: sampleRate,
		NSources:   nSources,
		NChannels:  nChannels,
		Arrays:     make(map[string]Array),
	}
}

// SetVector stores a 1-D array under key.
func (c *Cache) SetVector(key string, v []float64) {
	c.Arrays[key] = Array{Shape: []int{len(v)}, Data: v}
}

// SetMatrix stores a 2-D array laid out [row][col] under key. Rows must
// have equal length.
func (c *Cache) SetMatrix(key string, m [][]float64) error {
	cols := 0
	if len(m) > 0 {
		cols = len(m[0])
	}

	data := make([]float64, 0, len(m)*cols)
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%w: %s row %d has %d values, want %d", ErrLengthMismatch, key, i, len(row), cols)
		}
		data = append(data, row...)
	}

	c.Arrays[key] = Array{Shape: []int{len(m), cols}, Data: data}

	return nil
}

// Vector returns the 1-D array under key.
func (c *Cache) Vector(key string) ([]float64, error) {
	a, ok := c.Arrays[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	if len(a.Shape) != 1 {
		return nil, fmt.Errorf("%w: %s has shape %v, want 1-D", ErrCorruptCache, key, a.Shape)
	}
	return a.Data, nil
}

// Matrix returns the 2-D array under key as [row][col] views of the data.
func (c *Cache) Matrix(key string) ([][]float64, error) {
	a, ok := c.Arrays[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	if len(a.Shape) != 2 || a.Shape[0]*a.Shape[1] != len(a.Data) {
		return nil, fmt.Errorf("%w: %s has shape %v, want 2-D", ErrCorruptCache, key, a.Shape)
	}

	rows, cols := a.Shape[0], a.Shape[1]
	out := make([][]float64, rows)
	for i := range out {
		out[i] = a.Data[i*cols : (i+1)*cols : (i+1)*cols]
	}

	return out, nil
}

// Encode writes c in the cache format: magic, version, xxhash64 of the
// msgpack payload, then the zstd-compressed payload. Map keys are sorted so
// equal caches encode to equal bytes.
func (c *Cache) Encode(w io.Writer) error {
	var payload bytes.Buffer

	enc := msgpack.NewEncoder(&payload)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("dataset: encode cache: %w", err)
	}

	zw, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer zw.Close()

	header := make([]byte, 0, len(cacheMagic)+1+8)
	header = append(header, cacheMagic...)
	header = append(header, cacheVersion)
	header = binary.LittleEndian.AppendUint64(header, xxhash.Sum64(payload.Bytes()))

	if _, err := w.Write(header); err != nil {
		return err
	}

	_, err = w.Write(zw.EncodeAll(payload.Bytes(), nil))
	return err
}

// DecodeCache reads a cache written by Encode.
func DecodeCache(r io.Reader) (*Cache, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	headerLen := len(cacheMagic) + 1 + 8
	if len(raw) < headerLen || string(raw[:len(cacheMagic)]) != cacheMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptCache)
	}

	if v := raw[len(cacheMagic)]; v != cacheVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptCache, v)
	}

	sum := binary.LittleEndian.Uint64(raw[len(cacheMagic)+1:])

	zr, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	payload, err := zr.DecodeAll(raw[headerLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}

	if xxhash.Sum64(payload) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptCache)
	}

	var c Cache
	if err := msgpack.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}

	if c.Arrays == nil {
		c.Arrays = make(map[string]Array)
	}

	return &c, nil
}

// SaveCache writes c to path atomically.
func SaveCache(path string, c *Cache) error {
	return writeAtomic(path, c.Encode)
}

// LoadCache reads the cache at path.
func LoadCache(path string) (*Cache, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := DecodeCache(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	return c, nil
}

// writeAtomic writes through a temp file in the target directory and
// renames it into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("make dir for %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}

	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
