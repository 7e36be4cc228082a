package engine

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/vegasq/tabreduce/query"
)

// hashGroup is one entry of the hashed driver's group table
type hashGroup struct {
	acc  []query.Value
	last []string
}

// passDigest fingerprints the sequence of keys seen in one pass
type passDigest struct {
	h    *xxh3.Hasher
	rows int
}

func newPassDigest() *passDigest {
	return &passDigest{h: xxh3.New()}
}

func (d *passDigest) add(key string) {
	_, _ = d.h.WriteString(key)
	_, _ = d.h.Write([]byte{0xff})
	d.rows++
}

func (d *passDigest) equal(other *passDigest) bool {
	return d.rows == other.rows && d.h.Sum64() == other.h.Sum64()
}

// runHashed builds a key -> accumulator table in one pass. Unique output is
// emitted in ascending key order; full output re-reads the source and
// annotates every row. The table holds one accumulator per distinct key and
// entries are never removed.
func runHashed(s *scanner, e *emitter) error {
	groups := make(map[string]*hashGroup)
	first := newPassDigest()

	for {
		row, err := s.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		key := groupKey(row, e.keyIdx)
		g, ok := groups[key]
		if !ok {
			g = &hashGroup{acc: e.prog.NewAccumulator()}
			groups[key] = g
		}

		s.stats.Rows++
		first.add(key)
		e.update(g.acc, row, s.line)
		g.last = row
	}
	s.stats.Groups = len(groups)

	if e.unique {
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			g := groups[k]
			if err := e.emitGroup(g.acc, g.last); err != nil {
				return err
			}
		}
		return nil
	}

	return secondPass(s, e, groups, first)
}

// secondPass re-reads the source and appends each row's group outputs. For
// programs that are not row-dependent the outputs are cached while the key
// stays the same between consecutive rows.
func secondPass(s *scanner, e *emitter, groups map[string]*hashGroup, first *passDigest) error {
	if err := s.rewind(); err != nil {
		return fmt.Errorf("failed to rewind input: %w", err)
	}

	second := newPassDigest()
	var (
		cachedKey string
		cached    []string
	)

	for {
		row, err := s.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		key := groupKey(row, e.keyIdx)
		g, ok := groups[key]
		if !ok {
			return fmt.Errorf("%w: row %d has key %s not seen in the first pass", ErrPassMismatch, s.line, displayKey(keyFields(row, e.keyIdx)))
		}
		second.add(key)

		var computed []string
		switch {
		case e.prog.RowDependent:
			computed = e.finalize(g.acc, row)
		case cached != nil && key == cachedKey:
			computed = cached
		default:
			computed = e.finalize(g.acc, row)
			cachedKey, cached = key, computed
		}

		if err := e.emitRow(row, computed); err != nil {
			return err
		}
	}

	if !first.equal(second) {
		return fmt.Errorf("%w: first pass read %d rows, second pass %d", ErrPassMismatch, first.rows, second.rows)
	}
	return nil
}
