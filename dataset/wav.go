package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV indicates a file that is not a decodable PCM WAV.
var ErrInvalidWAV = errors.New("dataset: invalid wav file")

// ReadWAV decodes the first channel of a PCM WAV file, scaled so that
// full-scale integers map to [-1, 1).
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}

	nch := buf.Format.NumChannels
	if nch < 1 {
		nch = 1
	}

	depth := int(d.BitDepth)
	if depth <= 0 {
		depth = 16
	}
	scale := float64(int64(1) << (depth - 1))

	out := make([]float64, len(buf.Data)/nch)
	for i := range out {
		out[i] = float64(buf.Data[i*nch]) / scale
	}

	return out, buf.Format.SampleRate, nil
}

// WriteWAV writes samples as 16-bit mono PCM, clipping to [-1, 1).
func WriteWAV(path string, samples []float64, sampleRate int) error {
	return writeAtomic(path, func(w io.Writer) error {
		f, ok := w.(*os.File)
		if !ok {
			return fmt.Errorf("%w: wav output needs a seekable file", ErrInvalidWAV)
		}

		data := make([]int, len(samples))
		for i, v := range samples {
			s := int(v * 32768)
			data[i] = min(max(s, -32768), 32767)
		}

		enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
		if err := enc.Write(&audio.IntBuffer{
			Data:           data,
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		}); err != nil {
			return err
		}

		return enc.Close()
	})
}
