// Package table implements the in-memory tabular result that queries produce
// and reports are assembled from.
package table

import (
	"fmt"
	"reflect"
)

// Table is an ordered set of named columns and rows of equal length.
// Column references accepted by its methods are either a header name
// (string) or a zero-based position (int).
type Table struct {
	Headers []string          `json:"headers"`
	Rows    [][]any           `json:"rows"`
	Types   map[string]string `json:"column_types,omitempty"`
}

// New returns a table with the given headers and no rows.
func New(headers ...string) *Table {
	return &Table{Headers: append([]string(nil), headers...), Rows: [][]any{}}
}

// Append adds a row. Short rows are padded with nil, long rows truncated.
func (t *Table) Append(values ...any) {
	row := make([]any, len(t.Headers))
	copy(row, values)
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// IsEmpty reports whether the table has no headers.
func (t *Table) IsEmpty() bool { return len(t.Headers) == 0 }

// ColumnIndex resolves a column reference to its position.
func (t *Table) ColumnIndex(column any) (int, error) {
	switch c := column.(type) {
	case string:
		for i, h := range t.Headers {
			if h == c {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, c)
	case int:
		if c < 0 || c >= len(t.Headers) {
			return 0, fmt.Errorf("%w: index %d of %d", ErrUnknownColumn, c, len(t.Headers))
		}
		return c, nil
	default:
		return 0, fmt.Errorf("%w: reference of type %T", ErrUnknownColumn, column)
	}
}

func (t *Table) columnIndexes(columns []any) ([]int, error) {
	out := make([]int, 0, len(columns))
	for _, c := range columns {
		idx, err := t.ColumnIndex(c)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}

// ExistColumn reports whether a header with this name exists.
func (t *Table) ExistColumn(name string) bool {
	_, err := t.ColumnIndex(name)
	return err == nil
}

// Cell returns a single value. row is either a row position (int), a Row
// handed to a derivation callback or the row slice itself; column is
// resolved against t's headers.
func (t *Table) Cell(row any, column any) (any, error) {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	var values []any
	switch r := row.(type) {
	case int:
		if r < 0 || r >= len(t.Rows) {
			return nil, fmt.Errorf("row %d out of range [0,%d)", r, len(t.Rows))
		}
		values = t.Rows[r]
	case Row:
		values = r.values
	case []any:
		values = r
	default:
		return nil, fmt.Errorf("unsupported row reference %T", row)
	}
	if idx >= len(values) {
		return nil, nil
	}
	return values[idx], nil
}

// Column returns every value of one column in row order.
func (t *Table) Column(column any) ([]any, error) {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// FindInColumn returns the first row whose cell equals value, or -1.
func (t *Table) FindInColumn(column any, value any) (int, error) {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return -1, err
	}
	for i, row := range t.Rows {
		if reflect.DeepEqual(row[idx], value) {
			return i, nil
		}
	}
	return -1, nil
}

// AppendColumnTypes records database type tags by column name. Later calls
// override earlier tags for the same column.
func (t *Table) AppendColumnTypes(types map[string]string) {
	if len(types) == 0 {
		return
	}
	if t.Types == nil {
		t.Types = make(map[string]string, len(types))
	}
	for name, tag := range types {
		t.Types[name] = tag
	}
}

// ColumnTypes returns a copy of the recorded type tags.
func (t *Table) ColumnTypes() map[string]string {
	out := make(map[string]string, len(t.Types))
	for k, v := range t.Types {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of headers and rows.
func (t *Table) Clone() *Table {
	c := &Table{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		c.Rows[i] = append([]any(nil), row...)
	}
	c.AppendColumnTypes(t.Types)
	return c
}

// Row is a read-only view on one row handed to derivation callbacks.
type Row struct {
	headers []string
	values  []any
}

// Get returns the value of a column by name or position, nil when missing.
func (r Row) Get(column any) any {
	switch c := column.(type) {
	case string:
		for i, h := range r.headers {
			if h == c && i < len(r.values) {
				return r.values[i]
			}
		}
	case int:
		if c >= 0 && c < len(r.values) {
			return r.values[c]
		}
	}
	return nil
}

// Values returns the row cells in column order.
func (r Row) Values() []any { return r.values }

func (t *Table) row(i int) Row {
	return Row{headers: t.Headers, values: t.Rows[i]}
}
