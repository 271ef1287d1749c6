package dataset

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/cwbudde/algo-bss/dataset/matfile"
	"github.com/cwbudde/algo-bss/internal/testutil"
)

// archiveServer serves in-memory archives and counts requests per path.
type archiveServer struct {
	*httptest.Server

	mu    sync.Mutex
	files map[string][]byte
	hits  map[string]int
}

func newArchiveServer(t *testing.T) *archiveServer {
	t.Helper()

	s := &archiveServer{files: map[string][]byte{}, hits: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		data, ok := s.files[r.URL.Path]
		s.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *archiveServer) add(path string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	return s.URL + path
}

func (s *archiveServer) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

// zipFiles builds a zip archive from name -> content.
func zipFiles(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create() error = %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip Write() error = %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}

	return buf.Bytes()
}

func wavBytes(t *testing.T, samples []float64) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "x.wav")
	if err := WriteWAV(path, samples, SampleRate); err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	return data
}

// sisecZip returns a dev1.zip stand-in with n sources of length samples.
func sisecZip(t *testing.T, tag string, n, samples int) []byte {
	t.Helper()

	files := map[string][]byte{tag + "_inst_matrix.mat": []byte("placeholder")}
	for i, src := range testutil.Sources(100, n, samples) {
		files[tag+"_src_"+itoa(i+1)+".wav"] = wavBytes(t, src)
	}

	return zipFiles(t, files)
}

// mirdZip returns a MIRD stand-in with 8-channel decaying-noise responses
// at 48 kHz for the given directions.
func mirdZip(t *testing.T, degrees []int, taps int) []byte {
	t.Helper()

	files := map[string][]byte{}
	for k, deg := range degrees {
		cols := make([][]float64, 8)
		for ch := range cols {
			cols[ch] = testutil.DecayingNoise(int64(10*k+ch), 0.5, taps, 1500)
		}

		m, err := matfile.FromColumns("impulse_response", cols)
		if err != nil {
			t.Fatalf("FromColumns() error = %v", err)
		}

		var buf bytes.Buffer
		if err := matfile.Write(&buf, []*matfile.Matrix{m}, matfile.WithCompression()); err != nil {
			t.Fatalf("matfile.Write() error = %v", err)
		}

		files[MIRDFileName(mirdRT60, deg)] = buf.Bytes()
	}

	// The unpack marker is the 0 degree file.
	if _, ok := files[MIRDFileName(mirdRT60, 0)]; !ok {
		files[MIRDFileName(mirdRT60, 0)] = files[MIRDFileName(mirdRT60, degrees[0])]
	}

	return zipFiles(t, files)
}

func itoa(n int) string {
	return string(rune('0' + n))
}

// tarGz builds a gzip-compressed tar archive from name -> content.
func tarGz(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for name, data := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar WriteHeader() error = %v", err)
		}
		if _, err := tw.Write(data); err != nil {
			t.Fatalf("tar Write() error = %v", err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close() error = %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip Close() error = %v", err)
	}

	return buf.Bytes()
}
