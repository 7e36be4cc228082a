package output

import (
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter renders rows as an aligned text table. Column widths depend
// on every row, so output is buffered until Flush.
type TableFormatter struct {
	writer   io.Writer
	maxWidth int
	header   []string
	rows     [][]string
}

// NewTableFormatter creates a table formatter. Cells wider than maxWidth
// display columns are truncated with an ellipsis; 0 disables truncation.
func NewTableFormatter(w io.Writer, maxWidth int) *TableFormatter {
	return &TableFormatter{writer: w, maxWidth: maxWidth}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// WriteHeader sets the table header
func (t *TableFormatter) WriteHeader(columns []string) error {
	t.header = t.fit(columns)
	return nil
}

// WriteRow buffers one row
func (t *TableFormatter) WriteRow(values []string) error {
	t.rows = append(t.rows, t.fit(values))
	return nil
}

// Flush renders the buffered table and clears it
func (t *TableFormatter) Flush() error {
	if t.header == nil && len(t.rows) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(t.writer)
	table.SetHeader(t.header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(t.rows)
	table.Render()

	t.header = nil
	t.rows = nil
	return nil
}

// fit truncates cells to the configured display width
func (t *TableFormatter) fit(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if t.maxWidth > 0 && runewidth.StringWidth(c) > t.maxWidth {
			c = runewidth.Truncate(c, t.maxWidth, "…")
		}
		out[i] = c
	}
	return out
}
