package dataset

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrUnsafePath indicates an archive entry that would be written outside
// the extraction directory.
var ErrUnsafePath = errors.New("dataset: archive entry escapes destination")

// ErrUnknownArchive indicates an archive extension Extract cannot handle.
var ErrUnknownArchive = errors.New("dataset: unknown archive format")

// Extract unpacks a .zip, .tar.bz2 or .tar.gz archive into dest.
func Extract(archive, dest string) error {
	name := strings.ToLower(archive)

	switch {
	case strings.HasSuffix(name, ".zip"):
		return extractZip(archive, dest)
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		return extractTar(archive, dest, func(r io.Reader) (io.Reader, error) {
			return bzip2.NewReader(r), nil
		})
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return extractTar(archive, dest, func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		})
	default:
		return fmt.Errorf("%w: %s", ErrUnknownArchive, filepath.Base(archive))
	}
}

func extractZip(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, file := range zr.File {
		target, err := safeJoin(dest, file.Name)
		if err != nil {
			return err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := func() error {
			reader, err := file.Open()
			if err != nil {
				return fmt.Errorf("opening zip reader for %q: %w", file.Name, err)
			}
			defer reader.Close()

			return writeFile(target, reader)
		}(); err != nil {
			return err
		}
	}

	return nil
}

func extractTar(archive, dest string, decompress func(io.Reader) (io.Reader, error)) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := decompress(f)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(archive), err)
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(archive), err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr); err != nil {
				return err
			}
		}
	}
}

func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("copying to %q: %w", path, err)
	}

	return out.Close()
}

func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)

	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}

	return target, nil
}
