package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotRewindable is returned by Rewind on sources that can be read only
	// once, such as stdin or a pipe
	ErrNotRewindable = errors.New("source cannot be rewound")

	// ErrNoHeader is returned when the input ends before a header line
	ErrNoHeader = errors.New("input has no header line")

	// ErrNamesMismatch is returned when supplied column names do not fit the input
	ErrNamesMismatch = errors.New("column names do not match input")
)

// Options configures how an input is read
type Options struct {
	// Delimiter separates fields. Zero means detect it from the first line.
	Delimiter rune

	// Names supplies column names. The input then has no header line.
	Names []string
}

// Source yields the rows of one tabular input.
type Source interface {
	// Header returns the column names in input order
	Header() []string

	// Next returns the next row. It returns io.EOF after the last row.
	// Rows are not validated against the header width.
	Next() ([]string, error)

	// Rewind restarts reading at the first data row, or returns
	// ErrNotRewindable
	Rewind() error

	// Close releases the underlying file handles
	Close() error
}

// Open opens the input at path. An empty path or "-" reads stdin, which
// cannot be rewound. Parquet files are recognised by extension; other files
// are read as delimited text, decompressed when needed.
//
// Example:
//
//	src, err := reader.Open("sales.csv.gz", reader.Options{})
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
func Open(path string, opts Options) (Source, error) {
	if path == "" || path == "-" {
		return FromReader(os.Stdin, opts)
	}

	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return OpenParquet(path, opts)
	}

	open := func() (io.ReadCloser, error) {
		return openDecompressed(path)
	}
	src, err := newDelimitedSource(open, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return src, nil
}

// FromReader reads delimited text from r. The resulting source cannot be
// rewound; Close does not close r.
func FromReader(r io.Reader, opts Options) (Source, error) {
	used := false
	open := func() (io.ReadCloser, error) {
		if used {
			return nil, ErrNotRewindable
		}
		used = true
		return io.NopCloser(r), nil
	}

	src, err := newDelimitedSource(open, opts)
	if err != nil {
		return nil, err
	}
	src.rewindable = false
	return src, nil
}
