// Package histogram bins one numeric column into fixed-width buckets.
package histogram

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/vegasq/tabreduce/internal/diag"
	"github.com/vegasq/tabreduce/output"
	"github.com/vegasq/tabreduce/query"
	"github.com/vegasq/tabreduce/reader"
)

var (
	// ErrInvalidBins is returned when fewer than one bucket is requested
	ErrInvalidBins = errors.New("bin count must be at least 1")

	// ErrUnknownColumn is returned when the binned column does not exist
	ErrUnknownColumn = errors.New("unknown column")
)

// Header is the column layout written by Histogram.Write
var Header = []string{"bin_start", "bin_end", "count"}

// Histogram is the distribution of a numeric column
type Histogram struct {
	Buckets []Bucket
	Total   int // values binned
}

// Bucket covers [Start, End). The last bucket also includes End.
type Bucket struct {
	Start    float64
	End      float64
	Count    int
	Fraction float64 // Count / Total
}

// Build scans values for their range and counts them into bins buckets of
// equal width. Non-finite values are ignored. If every value is equal the
// histogram has a single bucket.
func Build(values []float64, bins int) (*Histogram, error) {
	if bins < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidBins, bins)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	total := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		total++
	}

	h := &Histogram{Total: total}
	if total == 0 {
		h.Buckets = []Bucket{}
		return h, nil
	}
	if lo == hi {
		h.Buckets = []Bucket{{Start: lo, End: hi, Count: total, Fraction: 1}}
		return h, nil
	}

	width := (hi - lo) / float64(bins)
	h.Buckets = make([]Bucket, bins)
	for i := range h.Buckets {
		h.Buckets[i].Start = lo + float64(i)*width
		h.Buckets[i].End = lo + float64(i+1)*width
	}
	h.Buckets[bins-1].End = hi

	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		h.Buckets[i].Count++
	}
	for i := range h.Buckets {
		h.Buckets[i].Fraction = float64(h.Buckets[i].Count) / float64(total)
	}
	return h, nil
}

// FromSource reads column from src and bins its numeric values. column is a
// header name or a 1-based position; empty selects the first column.
// Non-numeric fields are skipped with a debug message.
func FromSource(src reader.Source, column string, bins int, log *diag.Logger) (*Histogram, error) {
	pos, err := resolveColumn(src.Header(), column)
	if err != nil {
		return nil, err
	}

	width := len(src.Header())
	var values []float64
	line := 0
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		if len(row) != width {
			log.Warnf("row %d: expected %d fields, got %d; skipped", line, width, len(row))
			continue
		}
		v, ok := query.ParseNumber(row[pos])
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			log.Debugf("row %d: %q is not a number; skipped", line, row[pos])
			continue
		}
		values = append(values, v)
	}

	log.Debugf("binning %d values into %d buckets", len(values), bins)
	return Build(values, bins)
}

func resolveColumn(header []string, column string) (int, error) {
	if len(header) == 0 {
		return 0, fmt.Errorf("%w: input has no columns", ErrUnknownColumn)
	}
	if column == "" {
		return 0, nil
	}

	schema, err := query.NewSchema(header)
	if err != nil {
		return 0, err
	}
	if pos := schema.Index(column); pos >= 0 {
		return pos, nil
	}
	if n, err := strconv.Atoi(column); err == nil && n >= 1 && n <= len(header) {
		return n - 1, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
}

// Write renders one bin_start,bin_end,count row per bucket
func (h *Histogram) Write(out output.Formatter) error {
	if err := out.WriteHeader(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, b := range h.Buckets {
		row := []string{
			query.FormatNumber(b.Start),
			query.FormatNumber(b.End),
			strconv.Itoa(b.Count),
		}
		if err := out.WriteRow(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return out.Flush()
}
