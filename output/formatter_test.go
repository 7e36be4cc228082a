package output

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
)

func writeAll(t *testing.T, f Formatter, header []string, rows [][]string) {
	t.Helper()
	if err := f.WriteHeader(header); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	for _, row := range rows {
		if err := f.WriteRow(row); err != nil {
			t.Fatalf("WriteRow() error = %v", err)
		}
	}
	if err := f.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestDelimitedFormatter(t *testing.T) {
	tests := []struct {
		name      string
		delimiter rune
		header    []string
		rows      [][]string
		want      string
	}{
		{
			name:   "default comma",
			header: []string{"region", "total"},
			rows:   [][]string{{"A", "30"}, {"B", "5"}},
			want:   "region,total\nA,30\nB,5\n",
		},
		{
			name:      "tab",
			delimiter: '\t',
			header:    []string{"region", "total"},
			rows:      [][]string{{"A", "30"}},
			want:      "region\ttotal\nA\t30\n",
		},
		{
			name:   "quotes when needed",
			header: []string{"name", "avg(x)"},
			rows:   [][]string{{"Smith, J", "-2.5"}},
			want:   "name,avg(x)\n\"Smith, J\",-2.5\n",
		},
		{
			name:   "header only",
			header: []string{"region"},
			want:   "region\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeAll(t, NewDelimitedFormatter(&buf, tt.delimiter), tt.header, tt.rows)
			if got := buf.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDelimitedFormatter_RoundTrip(t *testing.T) {
	rows := [][]string{{"a\"b", "line\nbreak", ""}, {"=1+1", "-5", "x;y"}}

	var buf bytes.Buffer
	writeAll(t, NewDelimitedFormatter(&buf, ';'), []string{"c1", "c2", "c3"}, rows)

	r := csv.NewReader(strings.NewReader(buf.String()))
	r.Comma = ';'
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, row := range rows {
		for j, v := range row {
			if records[i+1][j] != v {
				t.Errorf("record %d field %d = %q, want %q", i+1, j, records[i+1][j], v)
			}
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewJSONFormatter(&buf), []string{"region", "total", "note"},
		[][]string{{"A", "30", `say "hi"`}, {"B", "nan", ""}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}

	if want := `{"region":"A","total":"30","note":"say \"hi\""}`; lines[0] != want {
		t.Errorf("line 0 = %s, want %s", lines[0], want)
	}

	var obj map[string]string
	if err := json.Unmarshal([]byte(lines[1]), &obj); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if obj["total"] != "nan" || obj["region"] != "B" {
		t.Errorf("line 1 = %v", obj)
	}
}

func TestJSONFormatter_Errors(t *testing.T) {
	f := NewJSONFormatter(&bytes.Buffer{})
	if err := f.WriteRow([]string{"x"}); !errors.Is(err, ErrNoHeader) {
		t.Errorf("WriteRow() before header error = %v, want ErrNoHeader", err)
	}

	_ = f.WriteHeader([]string{"a", "b"})
	if err := f.WriteRow([]string{"x"}); err == nil {
		t.Error("expected error for short row")
	}
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewTableFormatter(&buf, 0), []string{"region", "total"}, [][]string{{"A", "30"}, {"Bbbbb", "5"}})

	out := buf.String()
	for _, want := range []string{"region", "total", "Bbbbb", "30"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	width := len([]rune(lines[0]))
	for i, line := range lines {
		if len([]rune(line)) != width {
			t.Errorf("line %d has width %d, want %d:\n%s", i, len([]rune(line)), width, out)
		}
	}
}

func TestTableFormatter_MaxWidth(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewTableFormatter(&buf, 6), []string{"c"}, [][]string{{"abcdefghijkl"}, {"日本語テキスト"}})

	out := buf.String()
	if strings.Contains(out, "abcdefghijkl") || !strings.Contains(out, "abcde…") {
		t.Errorf("long cell not truncated:\n%s", out)
	}
	if strings.Contains(out, "日本語テキスト") {
		t.Errorf("wide cell not truncated:\n%s", out)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"delimited", false},
		{"csv", false},
		{"jsonl", false},
		{"JSON", false},
		{"table", false},
		{"", false},
		{"xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			_, err := New(tt.format, &bytes.Buffer{}, Options{})
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("New(%q) error = %v, want ErrUnknownFormat", tt.format, err)
			}
		})
	}
}

func TestSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	f := NewDelimitedFormatter(&first, ',')
	f.SetOutput(&second)
	writeAll(t, f, []string{"a"}, [][]string{{"1"}})

	if first.Len() != 0 || second.String() != "a\n1\n" {
		t.Errorf("first = %q, second = %q", first.String(), second.String())
	}
}
