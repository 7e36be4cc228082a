package engine

import (
	"errors"
	"io"

	"github.com/vegasq/tabreduce/query"
)

// seqGroup is the open group of the sequential driver
type seqGroup struct {
	key  string
	acc  []query.Value
	last []string
	rows [][]string // buffered rows, full output only
}

// runSequential folds runs of equal keys, emitting each group as soon as
// the key changes. Memory is one accumulator plus, for full output, the
// rows of the current group.
func runSequential(s *scanner, e *emitter) error {
	var cur *seqGroup

	for {
		row, err := s.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		key := groupKey(row, e.keyIdx)
		if cur == nil || key != cur.key {
			if cur != nil {
				if err := e.flushSequential(cur); err != nil {
					return err
				}
			}
			cur = &seqGroup{key: key, acc: e.prog.NewAccumulator()}
			s.stats.Groups++
		}

		s.stats.Rows++
		e.update(cur.acc, row, s.line)
		cur.last = row
		if !e.unique {
			cur.rows = append(cur.rows, row)
		}
	}

	if cur != nil {
		return e.flushSequential(cur)
	}
	return nil
}

// flushSequential emits a finished group according to the output policy
func (e *emitter) flushSequential(g *seqGroup) error {
	if e.unique {
		return e.emitGroup(g.acc, g.last)
	}

	if !e.prog.RowDependent {
		computed := e.finalize(g.acc, g.last)
		for _, row := range g.rows {
			if err := e.emitRow(row, computed); err != nil {
				return err
			}
		}
		return nil
	}

	for _, row := range g.rows {
		if err := e.emitRow(row, e.finalize(g.acc, row)); err != nil {
			return err
		}
	}
	return nil
}
