package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/slices"
)

// Row maps column names to values. A nil value is an explicit null; absent
// keys are treated the same as nil when reading.
type Row map[string]any

// Table is an ordered, columned set of rows. Column order is preserved so
// the CDM output files keep their canonical layout.
type Table struct {
	columns []string
	rows    []Row
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{columns: slices.Clone(columns)}
}

func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.columns, name)
}

// AddColumn registers a column if it is not present yet. Existing rows keep
// their implicit null for it.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.columns = append(t.columns, name)
	}
}

func (t *Table) Append(row Row) {
	t.rows = append(t.rows, row)
}

// Row returns the i-th row. The returned map is the live row, callers that
// mutate it mutate the table.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Value returns the value at (row, column), nil when the column is absent.
func (t *Table) Value(i int, column string) any {
	return t.rows[i][column]
}

// SetValue sets the value at (row, column), registering the column if needed.
func (t *Table) SetValue(i int, column string, value any) {
	t.AddColumn(column)
	t.rows[i][column] = value
}

// Clone returns a deep copy: new column slice and new row maps.
func (t *Table) Clone() *Table {
	out := New(t.columns...)
	out.rows = make([]Row, len(t.rows))
	for i, row := range t.rows {
		dup := make(Row, len(row))
		for k, v := range row {
			dup[k] = v
		}
		out.rows[i] = dup
	}
	return out
}

// Project returns a new table with exactly the given columns in the given
// order. Columns the source lacks are present in the result with null values
// for every row.
func (t *Table) Project(columns []string) *Table {
	out := New(columns...)
	for _, row := range t.rows {
		dup := make(Row, len(columns))
		for _, col := range columns {
			dup[col] = row[col]
		}
		out.rows = append(out.rows, dup)
	}
	return out
}

// Intersect returns the subset of columns, in the table's order, that appear
// in the given set. Used to trim a transformed table down to its CDM header.
func (t *Table) Intersect(columns []string) []string {
	var out []string
	for _, col := range t.columns {
		if slices.Contains(columns, col) {
			out = append(out, col)
		}
	}
	return out
}

// Concat appends the rows of all tables in order. The column set is the union
// of all tables' columns, first table's order first.
func Concat(tables ...*Table) *Table {
	out := New()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, col := range t.columns {
			out.AddColumn(col)
		}
		for _, row := range t.rows {
			dup := make(Row, len(row))
			for k, v := range row {
				dup[k] = v
			}
			out.rows = append(out.rows, dup)
		}
	}
	return out
}

// Deduplicate removes rows that are exact duplicates of an earlier row, where
// every column value is equal, nulls included. First occurrence wins and row
// order is otherwise preserved.
func (t *Table) Deduplicate() {
	seen := make(map[string]struct{}, len(t.rows))
	kept := t.rows[:0]
	for _, row := range t.rows {
		key := t.rowKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	t.rows = kept
}

func (t *Table) rowKey(row Row) string {
	var b strings.Builder
	for _, col := range t.columns {
		v := row[col]
		if v == nil {
			b.WriteString("\x00")
		} else {
			fmt.Fprintf(&b, "%T=%v", v, v)
		}
		b.WriteString("\x1f")
	}
	return b.String()
}

// FromCSV parses a delimited result set. The first record is the header; an
// empty cell becomes an explicit null, everything else stays a string until
// the normalizer types it.
func FromCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := New(header...)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i >= len(record) || record[i] == "" {
				row[col] = nil
				continue
			}
			row[col] = record[i]
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}
