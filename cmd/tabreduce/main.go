package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/vegasq/tabreduce/engine"
	"github.com/vegasq/tabreduce/internal/diag"
	"github.com/vegasq/tabreduce/output"
	"github.com/vegasq/tabreduce/query"
	"github.com/vegasq/tabreduce/reader"
)

var (
	exprFlag    = flag.String("e", "", "Aggregation expression (e.g., \"total=sum(sales), avg(price)\")")
	groupFlag   = flag.String("g", "", "Grouping columns: comma-separated names or 1-based positions, or \"all\"")
	uniqueFlag  = flag.Bool("u", false, "Unique output: one row per group")
	sortedFlag  = flag.Bool("s", false, "Input is sorted by the grouping columns (sequential mode; on unsorted input each run of equal keys is a separate group)")
	delimFlag   = flag.String("d", "", "Input delimiter: tab, comma, semicolon, pipe or a single character (default: detect)")
	namesFlag   = flag.String("names", "", "Comma-separated column names for input without a header line")
	nonNumFlag  = flag.Bool("n", false, "Include non-numeric values in count, last, collect and freq")
	formatFlag  = flag.String("f", "delimited", "Output format: delimited, jsonl, table")
	widthFlag   = flag.Int("width", 0, "Maximum cell width for table output (0 = unlimited)")
	verboseFlag = flag.Bool("v", false, "Verbose diagnostics")
	schemaFlag  = flag.Bool("schema", false, "Show the input columns instead of aggregating")
)

// settings is the validated command line
type settings struct {
	expr   string
	cfg    engine.Config
	input  reader.Options
	format string
	width  int
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [file]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Computes grouped aggregates over delimited text or Parquet input.\n")
		fmt.Fprintf(os.Stderr, "Reads stdin when no file (or \"-\") is given.\n\n")
		fmt.Fprintf(os.Stderr, "IMPORTANT: All flags must come BEFORE the file argument.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nFunctions:\n")
		fmt.Fprintf(os.Stderr, "  %s\n", strings.Join(query.FunctionNames(), ", "))
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -e 'total=sum(sales)' -g region -u sales.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -e 'share=sales/sum(sales)' -g region sales.csv.gz\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -e 'median(price), sd(price)' -g store -u -s -f table sorted.tsv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  cat sales.csv | %s -e 'n=count(sales)' -g region -u\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -schema sales.parquet\n", os.Args[0])
	}

	flag.Parse()

	// Validate flag values
	if *widthFlag < 0 {
		fmt.Fprintf(os.Stderr, "Error: -width must be non-negative, got %d\n", *widthFlag)
		os.Exit(1)
	}

	var delimiter rune
	if *delimFlag != "" {
		d, ok := reader.ParseDelimiter(*delimFlag)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: invalid delimiter %q\n", *delimFlag)
			os.Exit(1)
		}
		delimiter = d
	}

	// Validate flag combinations
	if *schemaFlag && *exprFlag != "" {
		fmt.Fprintf(os.Stderr, "Error: -schema and -e cannot be used together\n")
		os.Exit(1)
	}
	if !*schemaFlag && strings.TrimSpace(*exprFlag) == "" {
		fmt.Fprintf(os.Stderr, "Error: missing expression (-e)\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if flag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Error: expected at most one input file, got %d\n", flag.NArg())
		os.Exit(1)
	}
	filename := flag.Arg(0)

	mode := engine.ModeHashed
	if *sortedFlag {
		mode = engine.ModeSequential
	}

	s := settings{
		expr: *exprFlag,
		cfg: engine.Config{
			Keys:              engine.ParseKeySpec(*groupFlag),
			Unique:            *uniqueFlag,
			Mode:              mode,
			IncludeNonNumeric: *nonNumFlag,
			Verbose:           *verboseFlag,
		},
		input: reader.Options{
			Delimiter: delimiter,
			Names:     splitNames(*namesFlag),
		},
		format: *formatFlag,
		width:  *widthFlag,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	if *schemaFlag {
		err = showSchema(filename, s, os.Stdout)
	} else {
		err = run(ctx, filename, s, os.Stdout, os.Stderr)
	}
	if err != nil {
		stop()
		reportError(filename, err)
		os.Exit(1)
	}
}

// run aggregates one input according to s
func run(ctx context.Context, filename string, s settings, stdout, stderr io.Writer) error {
	level := diag.LevelWarn
	if s.cfg.Verbose {
		level = diag.LevelDebug
	}
	log := diag.New(stderr, "tabreduce", level)

	src, err := reader.Open(filename, s.input)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	schema, err := query.NewSchema(src.Header())
	if err != nil {
		return err
	}
	prog, err := query.Compile(s.expr, schema, s.cfg.Options())
	if err != nil {
		return fmt.Errorf("failed to compile expression: %w", err)
	}
	log.Debugf("compiled %d outputs, %d accumulator slots", len(prog.Outputs), len(prog.Updates))

	out, err := newFormatter(src, s, stdout)
	if err != nil {
		return err
	}

	_, err = engine.Run(ctx, src, prog, s.cfg, out, log)
	return err
}

// showSchema lists the input columns
func showSchema(filename string, s settings, stdout io.Writer) error {
	src, err := reader.Open(filename, s.input)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	out, err := newFormatter(src, s, stdout)
	if err != nil {
		return err
	}

	if err := out.WriteHeader([]string{"position", "name", "type", "optional"}); err != nil {
		return err
	}
	for i, col := range reader.Describe(src) {
		row := []string{strconv.Itoa(i + 1), col.Name, col.PhysicalType, strconv.FormatBool(col.Optional)}
		if err := out.WriteRow(row); err != nil {
			return err
		}
	}
	return out.Flush()
}

// newFormatter creates the output formatter. Delimited output reuses the
// input delimiter.
func newFormatter(src reader.Source, s settings, w io.Writer) (output.Formatter, error) {
	opts := output.Options{MaxWidth: s.width}
	if d, ok := reader.Delimiter(src); ok {
		opts.Delimiter = d
	}
	return output.New(s.format, w, opts)
}

func splitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	names := strings.Split(s, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return names
}

func reportError(filename string, err error) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(os.Stderr, "Error: file '%s' not found\n", filename)
		fmt.Fprintf(os.Stderr, "Please check the file path and try again.\n")
	case errors.Is(err, engine.ErrUnknownKey), errors.Is(err, query.ErrUnknownColumn):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "\nUse -schema to list the available columns.\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
