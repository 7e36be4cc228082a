// Package reader turns tabular inputs into a stream of string rows.
//
// Delimited text (CSV, TSV and friends) is read with encoding/csv. The
// delimiter is detected from the first line unless one is given, and files
// compressed with gzip, zstd, zip, lz4 or brotli are decompressed on the
// fly. Parquet files are read with github.com/parquet-go/parquet-go.
//
// # Basic Usage
//
//	src, err := reader.Open("sales.csv", reader.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
//
//	fmt.Println(src.Header())
//	for {
//	    row, err := src.Next()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(row)
//	}
//
// # Headerless Input
//
// Options.Names supplies the column names; the first line is then data:
//
//	src, err := reader.Open("-", reader.Options{Names: []string{"region", "sales"}})
//
// # Rewinding
//
// Files can be read twice: Rewind reopens them and skips the header again.
// Stdin and other plain readers return ErrNotRewindable, which callers can
// check up front with Rewindable.
package reader
