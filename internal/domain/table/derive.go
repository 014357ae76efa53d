package table

import (
	"fmt"
)

// RowFunc computes the value of a derived column for one row.
type RowFunc func(row Row) any

// insertPosition resolves an optional insert index: none appends, negative
// counts from the end.
func insertPosition(n int, at []int) int {
	if len(at) == 0 {
		return n
	}
	pos := at[0]
	if pos < 0 {
		pos += n
	}
	switch {
	case pos < 0:
		return 0
	case pos > n:
		return n
	}
	return pos
}

func insertAt[T any](s []T, pos int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[pos+1:], s[pos:])
	s[pos] = v
	return s
}

func removeAt[T any](s []T, pos int) []T {
	return append(s[:pos], s[pos+1:]...)
}

// AddColumn adds a column computed by fn. Values are computed for every row
// before the header is inserted, so fn sees the table as it was.
func (t *Table) AddColumn(header string, fn RowFunc, at ...int) {
	pos := insertPosition(len(t.Headers), at)
	values := make([]any, len(t.Rows))
	for i := range t.Rows {
		values[i] = fn(t.row(i))
	}
	for i := range t.Rows {
		t.Rows[i] = insertAt(t.Rows[i], pos, values[i])
	}
	t.Headers = insertAt(t.Headers, pos, header)
}

// AddColumnSum adds a column holding the sum of the given columns. Missing
// and non-numeric cells count as zero.
func (t *Table) AddColumnSum(header string, columns []any, at ...int) {
	t.AddColumn(header, func(row Row) any {
		total := number{isInt: true, native: true}
		for _, c := range columns {
			if n, ok := asNumber(row.Get(c)); ok {
				total = addNumbers(total, n)
			}
		}
		return total.value()
	}, at...)
}

// AddColumnPercentage adds numerator/denominator formatted as "12.34%".
// The cell is nil when either side is empty or zero.
func (t *Table) AddColumnPercentage(header string, numerator, denominator any, at ...int) {
	t.AddColumn(header, func(row Row) any {
		return percentage(row.Get(numerator), row.Get(denominator))
	}, at...)
}

// AddSingleColumnPercentage adds each cell's share of the column total.
func (t *Table) AddSingleColumnPercentage(header string, column any, at ...int) error {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return err
	}
	total := number{isInt: true}
	for _, row := range t.Rows {
		if n, ok := asNumber(row[idx]); ok {
			total = addNumbers(total, n)
		}
	}
	t.AddColumn(header, func(row Row) any {
		return percentage(row.Get(idx), total.value())
	}, at...)
	return nil
}

func percentage(numerator, denominator any) any {
	if isEmptyValue(numerator) || isEmptyValue(denominator) {
		return nil
	}
	n, okN := asNumber(numerator)
	d, okD := asNumber(denominator)
	if !okN || !okD {
		return nil
	}
	return fmt.Sprintf("%.2f%%", n.float()*100/d.float())
}

// DuplicateColumn copies source into a new column.
func (t *Table) DuplicateColumn(header string, source any, at ...int) error {
	idx, err := t.ColumnIndex(source)
	if err != nil {
		return err
	}
	t.AddColumn(header, func(row Row) any { return row.Get(idx) }, at...)
	return nil
}

// ReplaceColumn rewrites every cell of a column. A column name that does not
// exist is ignored.
func (t *Table) ReplaceColumn(column any, fn func(value any, row Row) any) error {
	if name, ok := column.(string); ok && !t.ExistColumn(name) {
		return nil
	}
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return err
	}
	for i := range t.Rows {
		t.Rows[i][idx] = fn(t.Rows[i][idx], t.row(i))
	}
	return nil
}

// ReplaceColumnWithValueMap maps every cell through values, keyed by the
// cell's text. Cells without an entry become nil.
func (t *Table) ReplaceColumnWithValueMap(column any, values map[string]any) error {
	return t.ReplaceColumn(column, func(value any, _ Row) any {
		return values[cellString(value)]
	})
}

// SetColumnDefaultValue fills nil cells of a column.
func (t *Table) SetColumnDefaultValue(column any, value any) error {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return err
	}
	for _, row := range t.Rows {
		if row[idx] == nil {
			row[idx] = value
		}
	}
	return nil
}

// ReplaceHeaders renames headers found in names.
func (t *Table) ReplaceHeaders(names map[string]string) {
	for i, h := range t.Headers {
		if renamed, ok := names[h]; ok {
			t.Headers[i] = renamed
		}
	}
}
