package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/vegasq/tabreduce/internal/diag"
	"github.com/vegasq/tabreduce/output"
	"github.com/vegasq/tabreduce/query"
	"github.com/vegasq/tabreduce/reader"
)

const salesCSV = "region,sales\nA,10\nB,5\nA,20\n"

type result struct {
	out   string
	log   string
	stats Stats
}

// runSource compiles expr against src's header and runs the engine,
// writing comma-delimited output
func runSource(t *testing.T, src reader.Source, expr string, cfg Config) (result, error) {
	t.Helper()

	schema, err := query.NewSchema(src.Header())
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	prog, err := query.Compile(expr, schema, cfg.Options())
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", expr, err)
	}

	var out, logBuf bytes.Buffer
	log := diag.New(&logBuf, "tabreduce", diag.LevelWarn)
	stats, err := Run(context.Background(), src, prog, cfg, output.NewDelimitedFormatter(&out, ','), log)
	return result{out: out.String(), log: logBuf.String(), stats: stats}, err
}

// runCSV writes input to a file so both drivers can read it
func runCSV(t *testing.T, input, expr string, cfg Config) result {
	t.Helper()

	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(input), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := reader.Open(path, reader.Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = src.Close() }()

	res, err := runSource(t, src, expr, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return res
}

func TestRun_EndToEnd(t *testing.T) {
	sorted := "region,sales\nA,10\nA,20\nB,5\n"

	tests := []struct {
		name  string
		input string
		cfg   Config
		want  string
	}{
		{
			name:  "unique hashed sorts keys",
			input: salesCSV,
			cfg:   Config{Keys: ParseKeySpec("region"), Unique: true, Mode: ModeHashed},
			want:  "region,total\nA,30\nB,5\n",
		},
		{
			name:  "full hashed keeps row order",
			input: salesCSV,
			cfg:   Config{Keys: ParseKeySpec("region"), Mode: ModeHashed},
			want:  "region,sales,total\nA,10,30\nB,5,5\nA,20,30\n",
		},
		{
			name:  "unique sequential on sorted input",
			input: sorted,
			cfg:   Config{Keys: ParseKeySpec("region"), Unique: true, Mode: ModeSequential},
			want:  "region,total\nA,30\nB,5\n",
		},
		{
			name:  "full sequential on sorted input",
			input: sorted,
			cfg:   Config{Keys: ParseKeySpec("region"), Mode: ModeSequential},
			want:  "region,sales,total\nA,10,30\nA,20,30\nB,5,5\n",
		},
		{
			name:  "sequential treats each run as a group",
			input: salesCSV,
			cfg:   Config{Keys: ParseKeySpec("region"), Unique: true, Mode: ModeSequential},
			want:  "region,total\nA,10\nB,5\nA,20\n",
		},
		{
			name:  "no keys is one global group",
			input: salesCSV,
			cfg:   Config{Unique: true, Mode: ModeHashed},
			want:  "total\n35\n",
		},
		{
			name:  "key by position",
			input: salesCSV,
			cfg:   Config{Keys: ParseKeySpec("1"), Unique: true},
			want:  "region,total\nA,30\nB,5\n",
		},
		{
			name:  "all columns",
			input: "region,sales\nA,10\nA,10\nB,5\n",
			cfg:   Config{Keys: ParseKeySpec("all"), Unique: true},
			want:  "region,sales,total\nA,10,20\nB,5,5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCSV(t, tt.input, "total=sum(sales)", tt.cfg)
			if res.out != tt.want {
				t.Errorf("output = %q, want %q", res.out, tt.want)
			}
		})
	}
}

func TestRun_CountQualifying(t *testing.T) {
	input := "k,x\na,1\na,n/a\na,3\na,\na,x\n"

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"numeric only", Config{Keys: ParseKeySpec("k"), Unique: true}, "k,n\na,2\n"},
		{"non-numeric included", Config{Keys: ParseKeySpec("k"), Unique: true, IncludeNonNumeric: true}, "k,n\na,4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := runCSV(t, input, "n=count(x)", tt.cfg); res.out != tt.want {
				t.Errorf("output = %q, want %q", res.out, tt.want)
			}
		})
	}
}

func TestRun_RowDependentRatios(t *testing.T) {
	tests := []struct {
		mode  Mode
		input string
	}{
		{ModeHashed, "k,x\na,1\nb,2\na,3\nb,6\na,6\n"},
		{ModeSequential, "k,x\na,1\na,3\na,6\nb,2\nb,6\n"},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			res := runCSV(t, tt.input, "r=x/sum(x)", Config{Keys: ParseKeySpec("k"), Mode: tt.mode})

			sums := map[string]float64{}
			lines := strings.Split(strings.TrimSpace(res.out), "\n")
			for _, line := range lines[1:] {
				fields := strings.Split(line, ",")
				r, err := strconv.ParseFloat(fields[2], 64)
				if err != nil {
					t.Fatalf("bad ratio in %q: %v", line, err)
				}
				sums[fields[0]] += r
			}

			if len(sums) != 2 {
				t.Fatalf("got groups %v, want a and b", sums)
			}
			for k, sum := range sums {
				if math.Abs(sum-1) > 1e-9 {
					t.Errorf("ratios for %s sum to %v, want 1", k, sum)
				}
			}
		})
	}
}

func TestRun_RowDependentUniqueRejected(t *testing.T) {
	schema, _ := query.NewSchema([]string{"k", "x"})
	cfg := Config{Keys: ParseKeySpec("k"), Unique: true}
	if _, err := query.Compile("r=x/sum(x)", schema, cfg.Options()); !errors.Is(err, query.ErrRowDependentUnique) {
		t.Errorf("Compile() error = %v, want ErrRowDependentUnique", err)
	}
}

func TestRun_MalformedRow(t *testing.T) {
	input := "region,sales\nA,10\nB\nA,20,7\nA,20\n"

	for _, mode := range []Mode{ModeHashed, ModeSequential} {
		t.Run(mode.String(), func(t *testing.T) {
			res := runCSV(t, input, "total=sum(sales)", Config{Keys: ParseKeySpec("region"), Mode: mode})

			if want := "region,sales,total\nA,10,30\nA,20,30\n"; res.out != want {
				t.Errorf("output = %q, want %q", res.out, want)
			}
			if res.stats.Skipped != 2 || res.stats.Rows != 2 || res.stats.Groups != 1 {
				t.Errorf("stats = %+v", res.stats)
			}
			if strings.Count(res.log, "skipped") != 2 {
				t.Errorf("expected two warnings, got %q", res.log)
			}
			if !strings.Contains(res.log, "row 2: expected 2 fields, got 1") {
				t.Errorf("warning does not name the row: %q", res.log)
			}
		})
	}
}

func TestRun_UpdateErrors(t *testing.T) {
	input := "k,x,y\na,4,2\na,8,0\na,6,3\n"

	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Keys: ParseKeySpec("k"), Unique: true, Verbose: tt.verbose}
			res := runCSV(t, input, "s=sum(x/y), n=count(x)", cfg)

			// the failing row contributes to neither slot
			if want := "k,s,n\na,4,2\n"; res.out != want {
				t.Errorf("output = %q, want %q", res.out, want)
			}
			if res.stats.UpdateErrors != 1 {
				t.Errorf("UpdateErrors = %d, want 1", res.stats.UpdateErrors)
			}
			if got := strings.Contains(res.log, "division by zero"); got != tt.wantLog {
				t.Errorf("logged = %v, want %v: %q", got, tt.wantLog, res.log)
			}
		})
	}
}

func TestRun_FinalizeErrors(t *testing.T) {
	input := "k,x\na,1\nb,n/a\na,3\n"
	res := runCSV(t, input, "m=sum(x)/count(x), c=count(x)", Config{Keys: ParseKeySpec("k"), Unique: true, Verbose: true})

	if want := "k,m,c\na,2,2\nb,nan,nan\n"; res.out != want {
		t.Errorf("output = %q, want %q", res.out, want)
	}
	if res.stats.FinalizeErrors != 1 {
		t.Errorf("FinalizeErrors = %d, want 1", res.stats.FinalizeErrors)
	}
	if !strings.Contains(res.log, "outputs set to NaN") {
		t.Errorf("expected finalize warning, got %q", res.log)
	}
}

func TestRun_NotRewindable(t *testing.T) {
	src, err := reader.FromReader(strings.NewReader(salesCSV), reader.Options{})
	if err != nil {
		t.Fatal(err)
	}

	schema, _ := query.NewSchema(src.Header())
	prog, err := query.Compile("total=sum(sales)", schema, query.Options{})
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	_, err = Run(context.Background(), src, prog, Config{Keys: ParseKeySpec("region")}, output.NewDelimitedFormatter(&out, ','), diag.Discard())
	if !errors.Is(err, reader.ErrNotRewindable) {
		t.Fatalf("Run() error = %v, want ErrNotRewindable", err)
	}
	if out.Len() != 0 {
		t.Errorf("output written before failure: %q", out.String())
	}

	// the rows were not consumed
	if row, err := src.Next(); err != nil || row[0] != "A" {
		t.Errorf("Next() = %v, %v; want first data row", row, err)
	}
}

func TestRun_NotRewindableSequential(t *testing.T) {
	src, err := reader.FromReader(strings.NewReader("region,sales\nA,10\nA,20\nB,5\n"), reader.Options{})
	if err != nil {
		t.Fatal(err)
	}

	res, err := runSource(t, src, "total=sum(sales)", Config{Keys: ParseKeySpec("region"), Mode: ModeSequential})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := "region,sales,total\nA,10,30\nA,20,30\nB,5,5\n"; res.out != want {
		t.Errorf("output = %q, want %q", res.out, want)
	}
}

// passSource replays a different row set on every pass
type passSource struct {
	header []string
	passes [][][]string
	pass   int
	pos    int
}

func (s *passSource) Header() []string { return s.header }

func (s *passSource) Next() ([]string, error) {
	rows := s.passes[s.pass]
	if s.pos >= len(rows) {
		return nil, io.EOF
	}
	s.pos++
	return rows[s.pos-1], nil
}

func (s *passSource) Rewind() error {
	if s.pass+1 >= len(s.passes) {
		return reader.ErrNotRewindable
	}
	s.pass++
	s.pos = 0
	return nil
}

func (s *passSource) Close() error { return nil }

func TestRun_PassMismatch(t *testing.T) {
	first := [][]string{{"A", "10"}, {"B", "5"}, {"A", "20"}}

	tests := []struct {
		name   string
		second [][]string
	}{
		{"unknown key", [][]string{{"A", "10"}, {"C", "5"}}},
		{"missing rows", [][]string{{"A", "10"}, {"B", "5"}}},
		{"reordered keys", [][]string{{"B", "5"}, {"A", "10"}, {"A", "20"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &passSource{header: []string{"region", "sales"}, passes: [][][]string{first, tt.second}}
			_, err := runSource(t, src, "total=sum(sales)", Config{Keys: ParseKeySpec("region")})
			if !errors.Is(err, ErrPassMismatch) {
				t.Errorf("Run() error = %v, want ErrPassMismatch", err)
			}
		})
	}
}

func TestRun_SamePassesAgree(t *testing.T) {
	rows := [][]string{{"A", "10"}, {"B", "5"}, {"A", "20"}}
	src := &passSource{header: []string{"region", "sales"}, passes: [][][]string{rows, rows}}

	res, err := runSource(t, src, "total=sum(sales)", Config{Keys: ParseKeySpec("region")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := "region,sales,total\nA,10,30\nB,5,5\nA,20,30\n"; res.out != want {
		t.Errorf("output = %q, want %q", res.out, want)
	}
}

func TestRun_UnknownKey(t *testing.T) {
	src, _ := reader.FromReader(strings.NewReader(salesCSV), reader.Options{})
	_, err := runSource(t, src, "total=sum(sales)", Config{Keys: ParseKeySpec("store"), Unique: true})
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Run() error = %v, want ErrUnknownKey", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	src, _ := reader.FromReader(strings.NewReader(salesCSV), reader.Options{})
	schema, _ := query.NewSchema(src.Header())
	prog, _ := query.Compile("total=sum(sales)", schema, query.Options{Unique: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{Keys: ParseKeySpec("region"), Unique: true}
	_, err := Run(ctx, src, prog, cfg, output.NewDelimitedFormatter(io.Discard, ','), diag.Discard())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRun_Stats(t *testing.T) {
	res := runCSV(t, "k,x\na,1\nb,2\na,3\nc,4\n", "s=sum(x)", Config{Keys: ParseKeySpec("k"), Unique: true})
	if res.stats.Rows != 4 || res.stats.Groups != 3 {
		t.Errorf("stats = %+v, want 4 rows in 3 groups", res.stats)
	}
}
