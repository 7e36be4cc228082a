// Package engine drives a compiled query.Program over a reader.Source.
//
// Two drivers are available:
//
//   - Sequential folds runs of equal keys and emits a group as soon as the
//     key changes. Input must be sorted (or at least clustered) by the key;
//     otherwise each run is reported as its own group. It holds a single
//     accumulator, plus the rows of the current group when every input row
//     is written back out.
//   - Hashed keeps one accumulator per distinct key for the whole run and
//     accepts input in any order. Unique output is emitted sorted by key.
//     Full output reads the input a second time, so the source must be
//     rewindable; a digest of the first pass is checked against the second.
//
// Grouping by nothing or by every column always runs sequentially.
//
// Memory grows with the number of distinct keys in hashed mode, and with
// the number of distinct values per group for programs that use collect or
// freq (median, quantile, mode and friends).
//
// Basic usage:
//
//	src, _ := reader.Open("sales.csv", reader.Options{})
//	defer src.Close()
//
//	schema, _ := query.NewSchema(src.Header())
//	cfg := engine.Config{Keys: engine.ParseKeySpec("region"), Unique: true}
//	prog, _ := query.Compile("total=sum(sales)", schema, cfg.Options())
//
//	out := output.NewDelimitedFormatter(os.Stdout, ',')
//	stats, err := engine.Run(ctx, src, prog, cfg, out, diag.Discard())
package engine
