package query

import (
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrDuplicateColumn is returned when two header names normalise to the same name
var ErrDuplicateColumn = errors.New("duplicate column name")

// NormalizeName lowercases a column name. Expression identifiers and header
// names go through the same function so they always agree.
func NormalizeName(name string) string {
	return cases.Lower(language.Und).String(name)
}

// Schema is the ordered list of input column names for one run
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema normalises names and rejects duplicates
func NewSchema(names []string) (*Schema, error) {
	s := &Schema{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		norm := NormalizeName(name)
		if _, dup := s.index[norm]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, norm)
		}
		s.names[i] = norm
		s.index[norm] = i
	}
	return s, nil
}

// Names returns the normalised column names in input order
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of columns
func (s *Schema) Len() int {
	return len(s.names)
}

// Index returns the position of a column, or -1
func (s *Schema) Index(name string) int {
	if i, ok := s.index[NormalizeName(name)]; ok {
		return i
	}
	return -1
}
