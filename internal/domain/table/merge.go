package table

import (
	"fmt"
	"strings"
)

const keySeparator = "\x01"

func keyOf(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = cellString(v)
	}
	return strings.Join(parts, keySeparator)
}

// Merge folds other into t.
//
// The first groupColumns headers of both tables must match by position; they
// form the row identity. Headers missing from t are appended and backfilled
// with nil. Every non-nil, non-key cell of other is combined into the
// matching row of t using method; rows without a match are appended.
//
// An empty t adopts other as is. An other without headers is a no-op. On
// error t is left as it was.
func (t *Table) Merge(other *Table, method Aggregate, groupColumns int) error {
	if err := method.validate(); err != nil {
		return err
	}
	if groupColumns < 1 {
		groupColumns = 1
	}
	if other == nil {
		return nil
	}

	if t.IsEmpty() {
		c := other.Clone()
		t.AppendColumnTypes(c.Types)
		t.Headers, t.Rows = c.Headers, c.Rows
		return nil
	}
	if other.IsEmpty() {
		t.AppendColumnTypes(other.Types)
		return nil
	}

	if groupColumns > len(t.Headers) || groupColumns > len(other.Headers) {
		return fmt.Errorf("%w: %d group columns requested, tables have %d and %d",
			ErrGroupKeyMismatch, groupColumns, len(t.Headers), len(other.Headers))
	}
	for i := 0; i < groupColumns; i++ {
		if t.Headers[i] != other.Headers[i] {
			return fmt.Errorf("%w: column %d is %q and %q", ErrGroupKeyMismatch, i+1, t.Headers[i], other.Headers[i])
		}
	}

	// t stays untouched until every cell combined.
	m := t.Clone()
	m.AppendColumnTypes(other.Types)
	for _, h := range other.Headers {
		if m.ExistColumn(h) {
			continue
		}
		m.Headers = append(m.Headers, h)
		for i := range m.Rows {
			m.Rows[i] = append(m.Rows[i], nil)
		}
	}

	targets := make([]int, len(other.Headers))
	for j, h := range other.Headers {
		targets[j], _ = m.ColumnIndex(h)
	}

	index := make(map[string]int, len(m.Rows))
	for i, row := range m.Rows {
		key := keyOf(row[:groupColumns])
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	for _, row := range other.Rows {
		if len(row) < groupColumns {
			continue
		}
		key := keyOf(row[:groupColumns])
		pos, found := index[key]
		if !found {
			fresh := make([]any, len(m.Headers))
			copy(fresh, row[:groupColumns])
			pos = len(m.Rows)
			m.Rows = append(m.Rows, fresh)
			index[key] = pos
		}
		for j := groupColumns; j < len(row) && j < len(targets); j++ {
			if row[j] == nil {
				continue
			}
			col := targets[j]
			v, err := method.combine(m.Rows[pos][col], row[j])
			if err != nil {
				return fmt.Errorf("column %q: %w", m.Headers[col], err)
			}
			m.Rows[pos][col] = v
		}
	}

	*t = *m
	return nil
}

// Expand pivots the distinct values of pivotColumn into columns of their
// own, filled from valueColumn. Rows are grouped by all remaining columns and
// values falling into the same cell are combined with method.
func (t *Table) Expand(pivotColumn, valueColumn string, method Aggregate) error {
	if err := method.validate(); err != nil {
		return err
	}
	if t.IsEmpty() {
		return nil
	}
	pivot, err := t.ColumnIndex(pivotColumn)
	if err != nil {
		return err
	}
	value, err := t.ColumnIndex(valueColumn)
	if err != nil {
		return err
	}

	var kept []int
	headers := make([]string, 0, len(t.Headers))
	for i, h := range t.Headers {
		if i == pivot || i == value {
			continue
		}
		kept = append(kept, i)
		headers = append(headers, h)
	}

	expanded := make(map[string]int)
	for _, row := range t.Rows {
		name := cellString(row[pivot])
		if _, ok := expanded[name]; !ok {
			headers = append(headers, name)
			expanded[name] = len(headers) - 1
		}
	}

	var rows [][]any
	index := make(map[string]int)
	for _, row := range t.Rows {
		left := make([]any, len(kept))
		for k, i := range kept {
			left[k] = row[i]
		}
		key := keyOf(left)
		pos, ok := index[key]
		if !ok {
			fresh := make([]any, len(headers))
			copy(fresh, left)
			pos = len(rows)
			rows = append(rows, fresh)
			index[key] = pos
		}
		col := expanded[cellString(row[pivot])]
		v, err := method.combine(rows[pos][col], row[value])
		if err != nil {
			return fmt.Errorf("column %q: %w", headers[col], err)
		}
		rows[pos][col] = v
	}

	t.Headers = headers
	if rows == nil {
		rows = [][]any{}
	}
	t.Rows = rows
	return nil
}
