package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.zip")
	if err := os.WriteFile(archive, zipFiles(t, map[string][]byte{
		"top.txt":       []byte("top"),
		"sub/inner.txt": []byte("inner"),
	}), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "out")
	if err := Extract(archive, out); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(out, "sub", "inner.txt"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "inner" {
		t.Fatalf("inner.txt = %q, want %q", got, "inner")
	}
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.tar.gz")
	if err := os.WriteFile(archive, tarGz(t, map[string][]byte{
		"speaker/wav/x.txt": []byte("x"),
	}), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Extract(archive, dir); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if !exists(filepath.Join(dir, "speaker", "wav", "x.txt")) {
		t.Fatal("x.txt not extracted")
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	tests := []struct {
		name string
		data func(*testing.T) []byte
	}{
		{"a.zip", func(t *testing.T) []byte {
			return zipFiles(t, map[string][]byte{"../evil.txt": []byte("x")})
		}},
		{"a.tgz", func(t *testing.T) []byte {
			return tarGz(t, map[string][]byte{"../../evil.txt": []byte("x")})
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := filepath.Join(dir, tc.name)
			if err := os.WriteFile(archive, tc.data(t), 0o644); err != nil {
				t.Fatal(err)
			}

			out := filepath.Join(dir, "out")
			if err := Extract(archive, out); !errors.Is(err, ErrUnsafePath) {
				t.Fatalf("Extract() error = %v, want ErrUnsafePath", err)
			}

			if exists(filepath.Join(dir, "evil.txt")) {
				t.Fatal("escaping entry was written")
			}
		})
	}
}

func TestExtractUnknownFormat(t *testing.T) {
	if err := Extract("archive.rar", t.TempDir()); !errors.Is(err, ErrUnknownArchive) {
		t.Fatalf("Extract() error = %v, want ErrUnknownArchive", err)
	}
}
