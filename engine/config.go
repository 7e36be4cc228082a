package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vegasq/tabreduce/query"
)

// ErrUnknownKey is returned when a grouping column does not exist
var ErrUnknownKey = errors.New("unknown grouping column")

// Mode selects the aggregation driver
type Mode int

const (
	// ModeHashed groups rows in any order, keeping one accumulator per key
	ModeHashed Mode = iota

	// ModeSequential expects rows with equal keys to be adjacent. On unsorted
	// input each contiguous run of a key is its own group: a key that comes
	// back after a different key starts a new group with a fresh accumulator.
	ModeSequential
)

func (m Mode) String() string {
	if m == ModeSequential {
		return "sequential"
	}
	return "hashed"
}

// KeySpec selects the grouping columns: none (one global group), every
// column, or a list of names and 1-based positions.
type KeySpec struct {
	All     bool
	Columns []string
}

// ParseKeySpec parses "-g" style input: "" for no grouping, "all", or a
// comma-separated list such as "region,2".
func ParseKeySpec(s string) KeySpec {
	s = strings.TrimSpace(s)
	if s == "" {
		return KeySpec{}
	}
	if strings.EqualFold(s, "all") {
		return KeySpec{All: true}
	}

	var cols []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			cols = append(cols, part)
		}
	}
	return KeySpec{Columns: cols}
}

// Empty reports whether no grouping was requested
func (k KeySpec) Empty() bool {
	return !k.All && len(k.Columns) == 0
}

// Resolve maps the selection onto schema positions. A column is looked up
// by name first, then as a 1-based position.
func (k KeySpec) Resolve(schema *query.Schema) ([]int, error) {
	if k.All {
		idx := make([]int, schema.Len())
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}

	idx := make([]int, 0, len(k.Columns))
	for _, col := range k.Columns {
		if pos := schema.Index(col); pos >= 0 {
			idx = append(idx, pos)
			continue
		}
		n, err := strconv.Atoi(col)
		if err != nil || n < 1 || n > schema.Len() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, col)
		}
		idx = append(idx, n-1)
	}
	return idx, nil
}

// Config is the immutable configuration of one run
type Config struct {
	Keys              KeySpec
	Unique            bool
	Mode              Mode
	IncludeNonNumeric bool
	Verbose           bool
}

// Options returns the compiler options implied by c
func (c Config) Options() query.Options {
	return query.Options{
		IncludeNonNumeric: c.IncludeNonNumeric,
		Unique:            c.Unique,
	}
}

// effectiveMode returns the driver that will actually run. Grouping by
// nothing or by every column always runs sequentially.
func (c Config) effectiveMode() Mode {
	if c.Keys.Empty() || c.Keys.All {
		return ModeSequential
	}
	return c.Mode
}
