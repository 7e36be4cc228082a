package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vegasq/tabreduce/internal/diag"
	"github.com/vegasq/tabreduce/output"
	"github.com/vegasq/tabreduce/query"
	"github.com/vegasq/tabreduce/reader"
)

// ErrPassMismatch is returned when the second pass of the hashed driver
// does not see the rows the first pass saw
var ErrPassMismatch = errors.New("input changed between passes")

// Stats summarises a run
type Stats struct {
	Rows           int // rows folded into a group
	Skipped        int // malformed rows
	Groups         int
	UpdateErrors   int // rows whose contribution was dropped
	FinalizeErrors int // groups (or rows, when row-dependent) emitted as NaN
}

// Run streams src through prog and writes the result to out.
//
// The header written is the key columns (unique output) or every input
// column, followed by the program's outputs. Malformed rows, failed updates
// and failed finalizations are counted and logged, never fatal. ctx is
// checked between rows.
func Run(ctx context.Context, src reader.Source, prog *query.Program, cfg Config, out output.Formatter, log *diag.Logger) (Stats, error) {
	var stats Stats

	header := src.Header()
	schema, err := query.NewSchema(header)
	if err != nil {
		return stats, err
	}
	keyIdx, err := cfg.Keys.Resolve(schema)
	if err != nil {
		return stats, err
	}
	if cfg.Unique && prog.RowDependent {
		return stats, query.ErrRowDependentUnique
	}

	mode := cfg.effectiveMode()
	if mode != cfg.Mode {
		log.Debugf("grouping by %s: using the %s driver", describeKeys(cfg.Keys), mode)
	}
	if mode == ModeHashed && !cfg.Unique && !reader.Rewindable(src) {
		return stats, fmt.Errorf("hashed full output reads the input twice: %w (sort the input and use sequential mode, or request unique output)", reader.ErrNotRewindable)
	}

	columns := header
	if cfg.Unique {
		columns = keyFields(header, keyIdx)
	}
	columns = append(append([]string(nil), columns...), prog.OutputNames()...)
	if err := out.WriteHeader(columns); err != nil {
		return stats, fmt.Errorf("failed to write header: %w", err)
	}

	e := &emitter{
		out:     out,
		prog:    prog,
		keyIdx:  keyIdx,
		unique:  cfg.Unique,
		verbose: cfg.Verbose,
		log:     log,
		stats:   &stats,
	}
	s := &scanner{
		ctx:   ctx,
		src:   src,
		width: len(header),
		log:   log,
		stats: &stats,
	}

	if mode == ModeSequential {
		err = runSequential(s, e)
	} else {
		err = runHashed(s, e)
	}
	if err != nil {
		return stats, err
	}

	if err := out.Flush(); err != nil {
		return stats, err
	}
	log.Infof("%d rows, %d groups, %d skipped, %d update errors, %d finalize errors",
		stats.Rows, stats.Groups, stats.Skipped, stats.UpdateErrors, stats.FinalizeErrors)
	return stats, nil
}

func describeKeys(k KeySpec) string {
	if k.All {
		return "all columns"
	}
	return "no columns"
}

// scanner yields well-formed rows, skipping those whose width differs from
// the header
type scanner struct {
	ctx   context.Context
	src   reader.Source
	width int
	log   *diag.Logger
	stats *Stats
	line  int  // data rows read in the current pass
	quiet bool // second pass: malformed rows were already reported
}

func (s *scanner) next() ([]string, error) {
	for {
		if err := s.ctx.Err(); err != nil {
			return nil, err
		}

		row, err := s.src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		s.line++

		if len(row) != s.width {
			if !s.quiet {
				s.stats.Skipped++
				s.log.Warnf("row %d: expected %d fields, got %d; skipped", s.line, s.width, len(row))
			}
			continue
		}
		return row, nil
	}
}

// rewind restarts the scan for a second pass
func (s *scanner) rewind() error {
	if err := s.src.Rewind(); err != nil {
		return err
	}
	s.line = 0
	s.quiet = true
	return nil
}

// emitter applies the update program and writes output rows
type emitter struct {
	out     output.Formatter
	prog    *query.Program
	keyIdx  []int
	unique  bool
	verbose bool
	log     *diag.Logger
	stats   *Stats
}

// update folds row into acc, dropping the row's contribution on failure
func (e *emitter) update(acc []query.Value, row []string, line int) {
	if err := e.prog.Update(acc, e.prog.InputVector(row)); err != nil {
		e.stats.UpdateErrors++
		if e.verbose {
			e.log.Warnf("row %d: %v; row ignored", line, err)
		}
	}
}

// finalize renders the outputs for acc, evaluated against row. A failure
// turns every output into NaN.
func (e *emitter) finalize(acc []query.Value, row []string) []string {
	values, err := e.prog.Finalize(acc, e.prog.InputVector(row))
	if err != nil {
		e.stats.FinalizeErrors++
		if e.verbose {
			e.log.Warnf("group %q: %v; outputs set to NaN", displayKey(keyFields(row, e.keyIdx)), err)
		}
		values = e.prog.NaNOutputs()
	}

	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}

// emitGroup writes the unique-output row for a group whose last row is last
func (e *emitter) emitGroup(acc []query.Value, last []string) error {
	record := append(keyFields(last, e.keyIdx), e.finalize(acc, last)...)
	return e.write(record)
}

// emitRow writes an input row with its computed columns appended
func (e *emitter) emitRow(row []string, computed []string) error {
	record := make([]string, 0, len(row)+len(computed))
	record = append(record, row...)
	record = append(record, computed...)
	return e.write(record)
}

func (e *emitter) write(record []string) error {
	if err := e.out.WriteRow(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

func displayKey(fields []string) string {
	if len(fields) == 0 {
		return "*"
	}
	return fmt.Sprint(fields)
}
