package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"
)

// ErrNoHeader is returned when a row is written before the header
var ErrNoHeader = errors.New("row written before header")

// JSONFormatter outputs rows as JSON Lines: one object per row, keys in
// header order, every value a string.
type JSONFormatter struct {
	writer *bufio.Writer
	keys   [][]byte // encoded column names
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	j := &JSONFormatter{}
	j.SetOutput(w)
	return j
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = bufio.NewWriter(w)
}

// WriteHeader records the object keys; nothing is written
func (j *JSONFormatter) WriteHeader(columns []string) error {
	j.keys = make([][]byte, len(columns))
	for i, col := range columns {
		key, err := json.Marshal(col)
		if err != nil {
			return fmt.Errorf("failed to encode column %q: %w", col, err)
		}
		j.keys[i] = key
	}
	return nil
}

// WriteRow writes one JSON object followed by a newline
func (j *JSONFormatter) WriteRow(values []string) error {
	if j.keys == nil {
		return ErrNoHeader
	}
	if len(values) != len(j.keys) {
		return fmt.Errorf("row has %d values, header has %d columns", len(values), len(j.keys))
	}

	buf := make([]byte, 0, 64)
	buf = append(buf, '{')
	for i, v := range values {
		if i > 0 {
			buf = append(buf, ',')
		}
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode value: %w", err)
		}
		buf = append(buf, j.keys[i]...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	buf = append(buf, '}', '\n')

	_, err := j.writer.Write(buf)
	return err
}

// Flush writes buffered lines
func (j *JSONFormatter) Flush() error {
	return j.writer.Flush()
}
