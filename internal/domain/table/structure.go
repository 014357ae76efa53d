package table

import "sort"

// SortByColumn sorts rows by one column. See SortByColumns.
func (t *Table) SortByColumn(column any, reverse bool) {
	t.SortByColumns([]any{column}, reverse)
}

// SortByColumns sorts rows stably by several keys in order. Cells are
// compared as integers when either side looks numeric. Unknown columns are
// skipped.
func (t *Table) SortByColumns(columns []any, reverse bool) {
	var keys []int
	for _, c := range columns {
		if idx, err := t.ColumnIndex(c); err == nil {
			keys = append(keys, idx)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		for _, k := range keys {
			c := compareSortKeys(t.Rows[i][k], t.Rows[j][k])
			if c == 0 {
				continue
			}
			if reverse {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareSortKeys(a, b any) int {
	if isNumeric(a) || isNumeric(b) {
		return cmpInt(intval(a), intval(b))
	}
	return compareValues(a, b)
}

// RemoveRow deletes a row by position. Out of range positions are ignored.
func (t *Table) RemoveRow(row int) {
	if row < 0 || row >= len(t.Rows) {
		return
	}
	t.Rows = removeAt(t.Rows, row)
}

// RemoveColumn deletes a column. Unknown columns are ignored.
func (t *Table) RemoveColumn(column any) {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return
	}
	t.Headers = removeAt(t.Headers, idx)
	for i := range t.Rows {
		t.Rows[i] = removeAt(t.Rows[i], idx)
	}
}

// SwapColumns exchanges two columns.
func (t *Table) SwapColumns(a, b any) error {
	i, err := t.ColumnIndex(a)
	if err != nil {
		return err
	}
	j, err := t.ColumnIndex(b)
	if err != nil {
		return err
	}
	t.Headers[i], t.Headers[j] = t.Headers[j], t.Headers[i]
	for _, row := range t.Rows {
		row[i], row[j] = row[j], row[i]
	}
	return nil
}

// MoveColumn moves a column to position to, shifting the others.
func (t *Table) MoveColumn(column any, to int) error {
	from, err := t.ColumnIndex(column)
	if err != nil {
		return err
	}
	if to < 0 {
		to = 0
	}
	if to >= len(t.Headers) {
		to = len(t.Headers) - 1
	}
	if from == to {
		return nil
	}
	h := t.Headers[from]
	t.Headers = insertAt(removeAt(t.Headers, from), to, h)
	for i, row := range t.Rows {
		v := row[from]
		t.Rows[i] = insertAt(removeAt(row, from), to, v)
	}
	return nil
}
