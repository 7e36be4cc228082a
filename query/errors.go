package query

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is returned for malformed expressions
	ErrSyntax = errors.New("syntax error")

	// ErrUnknownColumn is returned when an identifier is not an input column
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnknownFunction is returned when a call names no known function
	ErrUnknownFunction = errors.New("unknown function")

	// ErrArity is returned when a call has the wrong number of arguments
	ErrArity = errors.New("wrong number of arguments")

	// ErrDuplicateOutput is returned when two assignments share a name
	ErrDuplicateOutput = errors.New("duplicate output name")

	// ErrRowDependentUnique is returned when an expression mixes per-row values
	// with aggregates and unique (one row per key) output is requested
	ErrRowDependentUnique = errors.New("expression depends on individual rows; cannot produce one row per key")

	// ErrDivisionByZero is returned when evaluating x/0 or x%0
	ErrDivisionByZero = errors.New("division by zero")

	// ErrNotNumeric is returned when arithmetic sees a non-numeric operand
	ErrNotNumeric = errors.New("non-numeric operand")
)

// CompileError describes why an expression could not be compiled
type CompileError struct {
	Expr string // source text being compiled
	Pos  int    // byte offset of the offending token, -1 if unknown
	Err  error
}

func (e *CompileError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("compile %q: at offset %d: %v", e.Expr, e.Pos, e.Err)
	}
	return fmt.Sprintf("compile %q: %v", e.Expr, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
