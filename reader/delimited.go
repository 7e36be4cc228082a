package reader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// delimitedSource reads CSV-style text. Each Rewind reopens the stream and
// skips the header line again.
type delimitedSource struct {
	open       func() (io.ReadCloser, error)
	rewindable bool
	opts       Options
	delim      rune
	header     []string

	rc  io.ReadCloser
	csv *csv.Reader
}

func newDelimitedSource(open func() (io.ReadCloser, error), opts Options) (*delimitedSource, error) {
	s := &delimitedSource{
		open:       open,
		rewindable: true,
		opts:       opts,
		delim:      opts.Delimiter,
	}

	if err := s.start(true); err != nil {
		return nil, err
	}
	return s, nil
}

// start opens the stream, settles the delimiter on first use and positions
// the reader at the first data row.
func (s *delimitedSource) start(first bool) error {
	rc, err := s.open()
	if err != nil {
		return err
	}

	br := bufio.NewReader(rc)
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		_ = rc.Close()
		return fmt.Errorf("failed to read first line: %w", err)
	}
	line = strings.TrimPrefix(line, utf8BOM)

	if first && s.delim == 0 {
		s.delim = DetectDelimiter(strings.TrimRight(line, "\r\n"))
	}

	r := csv.NewReader(io.MultiReader(strings.NewReader(line), br))
	r.Comma = s.delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	s.rc = rc
	s.csv = r

	if len(s.opts.Names) > 0 {
		if first {
			s.header = append([]string(nil), s.opts.Names...)
		}
		return nil
	}

	header, err := r.Read()
	if err != nil {
		_ = rc.Close()
		if errors.Is(err, io.EOF) {
			return ErrNoHeader
		}
		return fmt.Errorf("failed to read header: %w", err)
	}
	if first {
		s.header = header
	} else if len(header) != len(s.header) {
		_ = rc.Close()
		return fmt.Errorf("%w: header changed between reads", ErrNamesMismatch)
	}
	return nil
}

// Delimiter returns the field delimiter in use
func (s *delimitedSource) Delimiter() rune {
	return s.delim
}

func (s *delimitedSource) Header() []string {
	return s.header
}

func (s *delimitedSource) Next() ([]string, error) {
	record, err := s.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read row: %w", err)
	}
	return record, nil
}

func (s *delimitedSource) Rewind() error {
	if !s.rewindable {
		return ErrNotRewindable
	}
	if err := s.Close(); err != nil {
		return err
	}
	return s.start(false)
}

func (s *delimitedSource) Rewindable() bool {
	return s.rewindable
}

func (s *delimitedSource) Close() error {
	if s.rc == nil {
		return nil
	}
	err := s.rc.Close()
	s.rc = nil
	return err
}

// Delimiter reports the delimiter of src when it is delimited text
func Delimiter(src Source) (rune, bool) {
	if d, ok := src.(interface{ Delimiter() rune }); ok {
		return d.Delimiter(), true
	}
	return 0, false
}

// Rewindable reports whether src supports Rewind, without consuming it
func Rewindable(src Source) bool {
	if r, ok := src.(interface{ Rewindable() bool }); ok {
		return r.Rewindable()
	}
	return true
}
