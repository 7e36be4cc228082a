package output

import (
	"encoding/csv"
	"fmt"
	"io"
)

// DelimitedFormatter writes rows as delimiter-separated text, quoting fields
// where needed. Values are written unchanged so output rows can be read back
// as input.
type DelimitedFormatter struct {
	writer    io.Writer
	delimiter rune
	csv       *csv.Writer
}

// NewDelimitedFormatter creates a delimited formatter. A zero delimiter
// means comma.
func NewDelimitedFormatter(w io.Writer, delimiter rune) *DelimitedFormatter {
	if delimiter == 0 {
		delimiter = ','
	}
	d := &DelimitedFormatter{delimiter: delimiter}
	d.SetOutput(w)
	return d
}

// SetOutput sets the output writer
func (d *DelimitedFormatter) SetOutput(w io.Writer) {
	d.writer = w
	d.csv = csv.NewWriter(w)
	d.csv.Comma = d.delimiter
}

// WriteHeader writes the header record
func (d *DelimitedFormatter) WriteHeader(columns []string) error {
	return d.write(columns)
}

// WriteRow writes one record
func (d *DelimitedFormatter) WriteRow(values []string) error {
	return d.write(values)
}

func (d *DelimitedFormatter) write(record []string) error {
	if err := d.csv.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Flush flushes the underlying CSV writer
func (d *DelimitedFormatter) Flush() error {
	d.csv.Flush()
	if err := d.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}
