package reader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies a stream compression format
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionZip
	CompressionLZ4
	CompressionBrotli
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionZip:
		return "zip"
	case CompressionLZ4:
		return "lz4"
	case CompressionBrotli:
		return "brotli"
	default:
		return "none"
	}
}

// ErrEmptyArchive is returned for zip files without a regular file entry
var ErrEmptyArchive = errors.New("archive contains no files")

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicZip  = []byte{'P', 'K', 0x03, 0x04}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// DetectCompression picks a format from the file extension, falling back to
// the leading magic bytes. Brotli has no magic number and is recognised by
// extension only.
func DetectCompression(path string, head []byte) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".zip":
		return CompressionZip
	case ".lz4":
		return CompressionLZ4
	case ".br":
		return CompressionBrotli
	}

	switch {
	case bytes.HasPrefix(head, magicGzip):
		return CompressionGzip
	case bytes.HasPrefix(head, magicZstd):
		return CompressionZstd
	case bytes.HasPrefix(head, magicZip):
		return CompressionZip
	case bytes.HasPrefix(head, magicLZ4):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// readCloser pairs a decompressing reader with the closers it depends on,
// closed in order
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openDecompressed opens path and wraps it in the matching decompressor
func openDecompressed(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	br := bufio.NewReader(file)
	head, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = file.Close()
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	rc, err := decompress(DetectCompression(path, head), file, br)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open %s stream: %w", DetectCompression(path, head), err)
	}
	return rc, nil
}

// decompress wraps r according to c. file is closed together with the
// returned reader.
func decompress(c Compression, file *os.File, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return &readCloser{Reader: gz, closers: []io.Closer{gz, file}}, nil

	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		zrc := dec.IOReadCloser()
		return &readCloser{Reader: zrc, closers: []io.Closer{zrc, file}}, nil

	case CompressionZip:
		return openZipEntry(file)

	case CompressionLZ4:
		return &readCloser{Reader: lz4.NewReader(r), closers: []io.Closer{file}}, nil

	case CompressionBrotli:
		return &readCloser{Reader: brotli.NewReader(r), closers: []io.Closer{file}}, nil

	default:
		return &readCloser{Reader: r, closers: []io.Closer{file}}, nil
	}
}

// openZipEntry reads the first regular file of a zip archive
func openZipEntry(file *os.File) (io.ReadCloser, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	zr, err := zip.NewReader(file, stat.Size())
	if err != nil {
		return nil, err
	}

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", entry.Name, err)
		}
		return &readCloser{Reader: rc, closers: []io.Closer{rc, file}}, nil
	}
	return nil, ErrEmptyArchive
}
