// Package output provides streaming formatters for result rows.
//
// Supported formats:
//   - delimited: CSV-style text with a configurable delimiter
//   - jsonl: one JSON object per line, keys in header order
//   - table: an aligned text table, rendered when flushed
//
// Example usage:
//
//	formatter, err := output.New("jsonl", os.Stdout, output.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = formatter.WriteHeader([]string{"region", "total"})
//	_ = formatter.WriteRow([]string{"A", "30"})
//	if err := formatter.Flush(); err != nil {
//	    log.Fatal(err)
//	}
package output
