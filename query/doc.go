// Package query compiles aggregation expressions into programs that fold
// rows into per-group accumulators.
//
// An expression is a comma-separated list of items, each optionally named:
//
//	total=sum(sales), share=sales/sum(sales), avg(price)
//
// Compilation runs in four steps:
//   - the lexer and recursive-descent parser build an AST
//   - macros such as avg, sd, median and quantile are expanded bottom-up
//     into primitives, reduce functions and scalar functions
//   - column references are bound to an input vector holding only the
//     columns the expression uses
//   - every distinct primitive call gets one accumulator slot and the
//     remaining tree is lowered into closures
//
// # Primitives
//
// Accumulators are min, max, sum, count, first, last, collect and freq.
// Identical calls share a slot, so "avg(x), sd(x)" keeps one sum(x).
// By default only numeric values take part in an update; Options.IncludeNonNumeric
// admits strings for count, last, collect and freq.
//
// # Usage
//
//	schema, err := query.NewSchema([]string{"region", "sales"})
//	if err != nil {
//	    return err
//	}
//
//	prog, err := query.Compile("total=sum(sales)", schema, query.Options{Unique: true})
//	if err != nil {
//	    return err
//	}
//
//	acc := prog.NewAccumulator()
//	for _, row := range rows {
//	    input := prog.InputVector(row)
//	    if err := prog.Update(acc, input); err != nil {
//	        log.Printf("row dropped: %v", err)
//	    }
//	}
//	values, err := prog.Finalize(acc, prog.InputVector(lastRow))
//
// # Row dependence
//
// A column used outside any primitive makes the program row-dependent: its
// outputs are evaluated per row against the group's final accumulator, as in
// "sales/sum(sales)". Such programs cannot produce unique per-group output
// and Compile rejects them with ErrRowDependentUnique.
//
// # Errors
//
// Compile returns *CompileError values. Use errors.Is with ErrSyntax,
// ErrUnknownColumn, ErrUnknownFunction, ErrArity, ErrDuplicateOutput or
// ErrRowDependentUnique to tell them apart.
package query
