package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/vegasq/tabreduce/histogram"
	"github.com/vegasq/tabreduce/internal/diag"
	"github.com/vegasq/tabreduce/output"
	"github.com/vegasq/tabreduce/reader"
)

var (
	columnFlag  = flag.String("c", "", "Column to bin: name or 1-based position (default: first column)")
	binsFlag    = flag.Int("b", 10, "Number of buckets")
	delimFlag   = flag.String("d", "", "Input delimiter (default: detect)")
	formatFlag  = flag.String("f", "delimited", "Output format: delimited, jsonl, table")
	verboseFlag = flag.Bool("v", false, "Verbose diagnostics")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [file]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Prints a fixed-width histogram of one numeric column.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -c sales -b 20 sales.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -c 3 -f table sales.parquet\n", os.Args[0])
	}

	flag.Parse()

	if *binsFlag < 1 {
		fmt.Fprintf(os.Stderr, "Error: -b must be at least 1, got %d\n", *binsFlag)
		os.Exit(1)
	}

	var opts reader.Options
	if *delimFlag != "" {
		d, ok := reader.ParseDelimiter(*delimFlag)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: invalid delimiter %q\n", *delimFlag)
			os.Exit(1)
		}
		opts.Delimiter = d
	}

	level := diag.LevelWarn
	if *verboseFlag {
		level = diag.LevelDebug
	}
	log := diag.New(os.Stderr, "tabhist", level)

	filename := flag.Arg(0)
	if err := run(filename, *columnFlag, *binsFlag, opts, *formatFlag, os.Stdout, log); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Error: file '%s' not found\n", filename)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(filename, column string, bins int, opts reader.Options, format string, w io.Writer, log *diag.Logger) error {
	src, err := reader.Open(filename, opts)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	out, err := output.New(format, w, output.Options{})
	if err != nil {
		return err
	}

	h, err := histogram.FromSource(src, column, bins, log)
	if err != nil {
		return err
	}
	return h.Write(out)
}
