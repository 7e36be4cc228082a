package query

import (
	"errors"
	"math"
	"testing"
)

// fold compiles expr over names and feeds every row into one accumulator,
// returning the program, the accumulator and the finalize result for the
// last row.
func fold(t *testing.T, expr string, names []string, rows [][]string, opts Options) (*Program, []Value, []Value) {
	t.Helper()

	schema, err := NewSchema(names)
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	prog, err := Compile(expr, schema, opts)
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", expr, err)
	}

	acc := prog.NewAccumulator()
	var last []string
	for _, row := range rows {
		last = prog.InputVector(row)
		if err := prog.Update(acc, last); err != nil {
			t.Fatalf("Update(%v) error = %v", row, err)
		}
	}
	out, err := prog.Finalize(acc, last)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	return prog, acc, out
}

func TestCompile_Statistics(t *testing.T) {
	names := []string{"k", "x", "y"}
	rows := [][]string{
		{"a", "2", "1"},
		{"a", "4", "3"},
		{"a", "4", "5"},
		{"a", "5", "7"},
		{"a", "5", "9"},
		{"a", "7", "11"},
		{"a", "9", "13"},
		{"a", "4", "15"},
	}

	tests := []struct {
		expr string
		want float64
	}{
		{"sum(x)", 40},
		{"count(x)", 8},
		{"min(x)", 2},
		{"max(x)", 9},
		{"avg(x)", 5},
		{"mean(x)", 5},
		{"var(x)", 4},
		{"sd(x)", 2},
		{"range(x)", 7},
		{"median(x)", 4.5},
		{"quantile(0.25, x)", 4},
		{"mode(x)", 4},
		{"count_distinct(x)", 5},
		{"corr(y, y)", 1},
		{"mse(x, x)", 0},
		{"sum(x)/count(x) + 1", 6},
		{"max(x) ** 2", 81},
		{"sum(x) % 7", 5},
		{"-sum(x)", -40},
		{"sum((x+y)*2)", 208},
		{"min(sum(x), 10)", 10},
		{"max(1, 2, count(x))", 8},
		{"round(sd(x) / 3, 2)", 0.67},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, _, out := fold(t, tt.expr, names, rows, Options{Unique: true})
			got, ok := out[0].AsNumber()
			if !ok {
				t.Fatalf("output %v is not a number", out[0])
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCompile_CountQualifying(t *testing.T) {
	rows := [][]string{{"1"}, {"abc"}, {"2"}, {""}, {"3.5"}}

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"numeric only", Options{}, "3"},
		{"non-numeric included", Options{IncludeNonNumeric: true}, "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, out := fold(t, "n=count(x)", []string{"x"}, rows, tt.opts)
			if got := out[0].String(); got != tt.want {
				t.Errorf("count(x) = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompile_FirstLast(t *testing.T) {
	rows := [][]string{{""}, {"north"}, {"5"}, {"east"}}

	tests := []struct {
		name      string
		opts      Options
		wantFirst string
		wantLast  string
	}{
		{"numeric only", Options{}, "north", "5"},
		{"non-numeric included", Options{IncludeNonNumeric: true}, "north", "east"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, out := fold(t, "f=first(x), l=last(x)", []string{"x"}, rows, tt.opts)
			if out[0].String() != tt.wantFirst {
				t.Errorf("first = %s, want %s", out[0], tt.wantFirst)
			}
			if out[1].String() != tt.wantLast {
				t.Errorf("last = %s, want %s", out[1], tt.wantLast)
			}
		})
	}
}

func TestCompile_EmptyGroupValues(t *testing.T) {
	_, _, out := fold(t, "mn=min(x), f=first(x), m=median(x), s=sum(x)", []string{"x"}, [][]string{{" "}}, Options{})

	want := []string{"inf", "NA", "nan", "0"}
	for i, w := range want {
		if got := out[i].String(); got != w {
			t.Errorf("output %d = %s, want %s", i, got, w)
		}
	}
}

func TestCompile_CollectAndFreq(t *testing.T) {
	rows := [][]string{{"b"}, {"a"}, {"b"}, {"1"}}
	_, _, out := fold(t, "c=collect(x), f=freq(x)", []string{"x"}, rows, Options{IncludeNonNumeric: true})

	if got, want := out[0].String(), "b;a;b;1"; got != want {
		t.Errorf("collect = %q, want %q", got, want)
	}
	if got, want := out[1].String(), "1:1;a:1;b:2"; got != want {
		t.Errorf("freq = %q, want %q", got, want)
	}
}

func TestCompile_SharedSlots(t *testing.T) {
	schema, _ := NewSchema([]string{"x", "y"})
	prog, err := Compile("a=avg(x), s=sd(x), t=sum(x)+sum(y)", schema, Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	// sum(x), count(x), sum((x*x)), sum(y)
	if got := len(prog.Updates); got != 4 {
		for _, u := range prog.Updates {
			t.Logf("slot %d: %s(%s)", u.Slot, u.Prim.Name(), u.Arg)
		}
		t.Errorf("got %d accumulator slots, want 4", got)
	}
	if got := prog.Inputs; len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("Inputs = %v, want [0 1]", got)
	}
}

func TestCompile_InputsFirstOccurrence(t *testing.T) {
	schema, _ := NewSchema([]string{"a", "b", "c", "d"})
	prog, err := Compile("sum(d) + sum(b) + count(d)", schema, Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	want := []int{3, 1}
	if len(prog.Inputs) != len(want) {
		t.Fatalf("Inputs = %v, want %v", prog.Inputs, want)
	}
	for i := range want {
		if prog.Inputs[i] != want[i] {
			t.Errorf("Inputs = %v, want %v", prog.Inputs, want)
		}
	}

	if got := prog.InputVector([]string{"1", "2", "3", "4"}); got[0] != "4" || got[1] != "2" {
		t.Errorf("InputVector() = %v, want [4 2]", got)
	}
}

func TestCompile_RowDependent(t *testing.T) {
	schema, _ := NewSchema([]string{"k", "x"})

	tests := []struct {
		expr string
		want bool
	}{
		{"sum(x)", false},
		{"r=x/sum(x)", true},
		{"avg(x) + 1", false},
		{"k", true},
		{"sum(x) + count(x) * x", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			prog, err := Compile(tt.expr, schema, Options{})
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if prog.RowDependent != tt.want {
				t.Errorf("RowDependent = %v, want %v", prog.RowDependent, tt.want)
			}

			_, err = Compile(tt.expr, schema, Options{Unique: true})
			if tt.want && !errors.Is(err, ErrRowDependentUnique) {
				t.Errorf("Compile(unique) error = %v, want ErrRowDependentUnique", err)
			}
			if !tt.want && err != nil {
				t.Errorf("Compile(unique) error = %v", err)
			}
		})
	}
}

func TestCompile_RowDependentRatios(t *testing.T) {
	schema, _ := NewSchema([]string{"x"})
	prog, err := Compile("r=x/sum(x)", schema, Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	rows := [][]string{{"1"}, {"3"}, {"6"}}
	acc := prog.NewAccumulator()
	for _, row := range rows {
		if err := prog.Update(acc, prog.InputVector(row)); err != nil {
			t.Fatal(err)
		}
	}

	total := 0.0
	for _, row := range rows {
		out, err := prog.Finalize(acc, prog.InputVector(row))
		if err != nil {
			t.Fatal(err)
		}
		total += out[0].Num
	}
	if math.Abs(total-1) > 1e-12 {
		t.Errorf("ratios sum to %v, want 1", total)
	}
}

func TestCompile_Errors(t *testing.T) {
	schema, _ := NewSchema([]string{"x", "y"})

	tests := []struct {
		name    string
		expr    string
		wantErr error
	}{
		{"unknown column", "sum(z)", ErrUnknownColumn},
		{"unknown function", "foo(x)", ErrUnknownFunction},
		{"primitive arity", "sum(x, y)", ErrArity},
		{"scalar arity", "sqrt(x, y)", ErrArity},
		{"macro arity", "corr(x)", ErrArity},
		{"syntax", "sum(x", ErrSyntax},
		{"duplicate output", "a=sum(x), a=sum(y)", ErrDuplicateOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr, schema, Options{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Compile(%q) error = %v, want %v", tt.expr, err, tt.wantErr)
			}
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Errorf("Compile(%q) error %T is not a *CompileError", tt.expr, err)
			}
		})
	}
}

func TestProgram_UpdateFailureLeavesAccumulator(t *testing.T) {
	schema, _ := NewSchema([]string{"x", "y"})
	prog, err := Compile("c=count(x), s=sum(x/y)", schema, Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	acc := prog.NewAccumulator()
	if err := prog.Update(acc, prog.InputVector([]string{"4", "2"})); err != nil {
		t.Fatal(err)
	}
	if err := prog.Update(acc, prog.InputVector([]string{"8", "0"})); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("Update() error = %v, want ErrDivisionByZero", err)
	}

	out, err := prog.Finalize(acc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].String() != "1" || out[1].String() != "2" {
		t.Errorf("outputs = %v, %v; want 1, 2", out[0], out[1])
	}
}

func TestProgram_FinalizeError(t *testing.T) {
	schema, _ := NewSchema([]string{"x"})
	prog, err := Compile("a=sum(x)/count(x)", schema, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// no numeric rows: count is zero
	acc := prog.NewAccumulator()
	if _, err := prog.Finalize(acc, nil); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("Finalize() error = %v, want ErrDivisionByZero", err)
	}
	if out := prog.NaNOutputs(); len(out) != 1 || out[0].String() != "nan" {
		t.Errorf("NaNOutputs() = %v", out)
	}
}

func TestProgram_FinalizeLeavesAccumulator(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		rows  [][]string
		opts  Options
		slots []string
		want  map[int]string
	}{
		{
			name:  "reductions over unsorted rows",
			expr:  "m=median(x), q=quantile(0.9,x), md=mode(x), c=collect(x), r=ravg(x)",
			rows:  [][]string{{"5"}, {"1"}, {"3"}, {"3"}},
			slots: []string{"5;1;3;3", "1:1;3:2;5:1"},
			want:  map[int]string{0: "3", 2: "3", 3: "5;1;3;3", 4: "3"},
		},
		{
			name:  "non-numeric items are skipped by reductions",
			expr:  "m=median(x), s=sum(x), c=collect(x)",
			rows:  [][]string{{"3"}, {"foo"}, {"1"}},
			opts:  Options{IncludeNonNumeric: true},
			slots: []string{"4", "3;foo;1"},
			want:  map[int]string{0: "2", 1: "4", 2: "3;foo;1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := NewSchema([]string{"x"})
			if err != nil {
				t.Fatal(err)
			}
			prog, err := Compile(tt.expr, schema, tt.opts)
			if err != nil {
				t.Fatalf("Compile(%q) error = %v", tt.expr, err)
			}

			acc := prog.NewAccumulator()
			var input []string
			for _, row := range tt.rows {
				input = prog.InputVector(row)
				if err := prog.Update(acc, input); err != nil {
					t.Fatalf("Update(%v) error = %v", row, err)
				}
			}

			before := make([]string, len(acc))
			for i, v := range acc {
				before[i] = v.String()
			}
			for _, want := range tt.slots {
				if !containsString(before, want) {
					t.Errorf("slots = %q, missing %q", before, want)
				}
			}

			first, err := prog.Finalize(acc, input)
			if err != nil {
				t.Fatalf("Finalize() error = %v", err)
			}
			second, err := prog.Finalize(acc, input)
			if err != nil {
				t.Fatalf("second Finalize() error = %v", err)
			}

			for i, v := range acc {
				if got := v.String(); got != before[i] {
					t.Errorf("slot %d = %q after Finalize, want %q", i, got, before[i])
				}
			}
			for i := range first {
				if first[i].String() != second[i].String() {
					t.Errorf("%s = %q then %q", prog.Outputs[i].Name, first[i], second[i])
				}
			}
			for i, want := range tt.want {
				if got := first[i].String(); got != want {
					t.Errorf("%s = %q, want %q", prog.Outputs[i].Name, got, want)
				}
			}
		})
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestProgram_AccumulatorArgument(t *testing.T) {
	// sum(count(x)) reads count as it stood before each row: 0+1+2
	_, _, out := fold(t, "s=sum(count(x))", []string{"x"}, [][]string{{"1"}, {"1"}, {"1"}}, Options{})
	if got := out[0].String(); got != "3" {
		t.Errorf("sum(count(x)) = %s, want 3", got)
	}
}

func TestProgram_OutputNames(t *testing.T) {
	schema, _ := NewSchema([]string{"Sales"})
	prog, err := Compile("total=sum(SALES), avg(sales)", schema, Options{})
	if err != nil {
		t.Fatal(err)
	}
	names := prog.OutputNames()
	if len(names) != 2 || names[0] != "total" || names[1] != "avg(sales)" {
		t.Errorf("OutputNames() = %v", names)
	}
}
