package output

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnknownFormat is returned by New for unsupported format names
var ErrUnknownFormat = errors.New("unknown output format")

// Formatter writes a header followed by rows, as they are produced.
//
// Implementers may buffer; nothing is guaranteed to reach the writer until
// Flush returns.
type Formatter interface {
	// WriteHeader writes the column names. It is called once, before any row.
	WriteHeader(columns []string) error

	// WriteRow writes one record with the same width as the header
	WriteRow(values []string) error

	// Flush writes any buffered output
	Flush() error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// Options configures the formatters created by New
type Options struct {
	// Delimiter separates fields in delimited output (default ',')
	Delimiter rune

	// MaxWidth caps the display width of table cells; 0 means unlimited
	MaxWidth int
}

// Formats lists the accepted format names
var Formats = []string{"delimited", "jsonl", "table"}

// New creates the formatter named by format. "csv" is accepted as an alias
// for delimited output and "json" for JSON Lines.
func New(format string, w io.Writer, opts Options) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "delimited", "csv":
		return NewDelimitedFormatter(w, opts.Delimiter), nil
	case "jsonl", "json":
		return NewJSONFormatter(w), nil
	case "table":
		return NewTableFormatter(w, opts.MaxWidth), nil
	default:
		return nil, fmt.Errorf("%w: %q (use one of %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
	}
}
