package ingest

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goph/emperror"
)

// Origin describes where a table was loaded from
type Origin struct {
	Location  string
	Size      int64
	Checksums map[string]string
	Loaded    time.Time
}

// Table is an in memory result with named, ordered columns and ordered rows
type Table struct {
	Columns []string
	Rows    [][]any
	Origin  *Origin
}

func NewTable(columns []string) *Table {
	return &Table{
		Columns: columns,
		Rows:    [][]any{},
	}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.Columns)
}

// ColumnIndex returns the position of the column or -1
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

func (t *Table) Column(name string) ([]any, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %s", name)
	}
	values := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		values = append(values, row[idx])
	}
	return values, nil
}

func (t *Table) Value(row int, column string) (any, error) {
	if row < 0 || row >= len(t.Rows) {
		return nil, fmt.Errorf("row %d out of range [0:%d]", row, len(t.Rows))
	}
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %s", column)
	}
	return t.Rows[row][idx], nil
}

// Records returns one map per row, keyed by column name
func (t *Table) Records() []map[string]any {
	records := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}
	return records
}

// Head returns a table with the first n rows, sharing the row data
func (t *Table) Head(n int) *Table {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{
		Columns: t.Columns,
		Rows:    t.Rows[:n],
		Origin:  t.Origin,
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// Print writes up to limit rows as aligned text, limit < 0 prints all rows
func (t *Table) Print(w io.Writer, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, col := range t.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)
	for _, row := range t.Head(limit).Rows {
		for i, v := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, formatValue(v))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return emperror.Wrap(err, "cannot write table")
	}
	if _, err := fmt.Fprintf(w, "(%s rows, %d columns)\n", humanize.Comma(int64(t.Len())), t.Width()); err != nil {
		return emperror.Wrap(err, "cannot write table")
	}
	return nil
}
