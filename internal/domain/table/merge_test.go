package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	a := New("a", "b")
	a.Append(1, 2)
	b := New("a", "c")
	b.Append(3, 4)
	b.Append(1, 5)

	require.NoError(t, a.Merge(b, Replace, 1))
	assert.Equal(t, []string{"a", "b", "c"}, a.Headers)
	assert.Equal(t, [][]any{{1, 2, 5}, {3, nil, 4}}, a.Rows)

	require.NoError(t, a.Merge(b, Sum, 1))
	assert.Equal(t, [][]any{{1, 2, 10}, {3, nil, 8}}, a.Rows)

	require.NoError(t, a.Merge(b, Min, 1))
	assert.Equal(t, [][]any{{1, 2, 5}, {3, nil, 4}}, a.Rows)

	b.Append(1, 15)
	b.Append(3, 99)
	require.NoError(t, a.Merge(b, Max, 1))
	assert.Equal(t, [][]any{{1, 2, 15}, {3, nil, 99}}, a.Rows)
}

func TestMergeGroupColumns(t *testing.T) {
	a := New("a", "b", "c")
	a.Append(1, 2, 3)
	b := New("a", "b", "c")
	b.Append(1, 2, 4)
	b.Append(1, 3, 4)

	require.NoError(t, a.Merge(b, Sum, 2))
	assert.Equal(t, [][]any{{1, 2, 7}, {1, 3, 4}}, a.Rows)
}

func TestMergeGroupKeyMismatch(t *testing.T) {
	a := New("a", "b")
	a.Append(1, 2)
	a.AppendColumnTypes(map[string]string{"b": "INT8"})
	b := New("x", "b")
	b.Append(1, 3)
	b.AppendColumnTypes(map[string]string{"b": "TEXT"})

	err := a.Merge(b, Sum, 1)
	assert.ErrorIs(t, err, ErrGroupKeyMismatch)
	assert.Equal(t, []string{"a", "b"}, a.Headers)
	assert.Equal(t, [][]any{{1, 2}}, a.Rows)
	assert.Equal(t, map[string]string{"b": "INT8"}, a.ColumnTypes())
}

func TestMergeUnsupportedAggregate(t *testing.T) {
	a := New("a")
	err := a.Merge(New("a"), Aggregate(42), 1)
	assert.ErrorIs(t, err, ErrUnsupportedAggregate)
}

func TestMergeEmptyOperands(t *testing.T) {
	empty := New()
	b := New("a", "c")
	b.Append(1, 5)
	b.AppendColumnTypes(map[string]string{"c": "INT8"})

	require.NoError(t, empty.Merge(b, Sum, 1))
	assert.Equal(t, b.Headers, empty.Headers)
	assert.Equal(t, b.Rows, empty.Rows)
	assert.Equal(t, "INT8", empty.ColumnTypes()["c"])

	empty.Rows[0][1] = 6
	assert.Equal(t, 5, b.Rows[0][1])

	require.NoError(t, b.Merge(New(), Sum, 1))
	assert.Equal(t, [][]any{{1, 5}}, b.Rows)
}

func TestMergeSumNotNumeric(t *testing.T) {
	a := New("a", "b")
	a.Append(1, "x")
	b := New("a", "b")
	b.Append(1, 2)
	assert.ErrorIs(t, a.Merge(b, Sum, 1), ErrNotNumeric)
}

func TestMergeFailureKeepsTable(t *testing.T) {
	a := New("k", "v")
	a.Append("x", 1)
	a.AppendColumnTypes(map[string]string{"v": "INT8"})
	b := New("k", "v", "w")
	b.Append("y", 5, 1)
	b.Append("x", "abc", 2)
	b.AppendColumnTypes(map[string]string{"v": "TEXT", "w": "INT8"})

	err := a.Merge(b, Sum, 1)
	assert.ErrorIs(t, err, ErrNotNumeric)
	assert.Equal(t, []string{"k", "v"}, a.Headers)
	assert.Equal(t, [][]any{{"x", 1}}, a.Rows)
	assert.Equal(t, map[string]string{"v": "INT8"}, a.ColumnTypes())
}

func TestExpand(t *testing.T) {
	tbl := New("date", "country", "count")
	tbl.Append("2020-01-01", "CN", 100)
	tbl.Append("2020-01-04", "KR", 2)
	tbl.Append("2020-01-02", "US", 99)
	tbl.Append("2020-01-01", "JP", 9)
	tbl.Append("2020-01-04", "KR", 3)

	require.NoError(t, tbl.Expand("country", "count", Sum))
	assert.Equal(t, []string{"date", "CN", "KR", "US", "JP"}, tbl.Headers)
	assert.Equal(t, []any{"2020-01-01", 100, nil, nil, 9}, tbl.Rows[0])
	assert.Equal(t, []any{"2020-01-04", nil, 5, nil, nil}, tbl.Rows[1])
	assert.Equal(t, []any{"2020-01-02", nil, nil, 99, nil}, tbl.Rows[2])
}

func TestExpandKeepsRemainingColumns(t *testing.T) {
	tbl := New("date", "language", "country", "count")
	tbl.Append("2020-01-01", "zh", "CN", 100)
	tbl.Append("2020-01-01", "zh", "ID", 9)
	tbl.Append("2020-01-01", "en", "CN", 8)
	tbl.Append("2020-01-04", "en", "ID", 5)

	require.NoError(t, tbl.Expand("country", "count", Sum))
	assert.Equal(t, []string{"date", "language", "CN", "ID"}, tbl.Headers)
	assert.Equal(t, [][]any{
		{"2020-01-01", "zh", 100, 9},
		{"2020-01-01", "en", 8, nil},
		{"2020-01-04", "en", nil, 5},
	}, tbl.Rows)
}

func TestExpandUnknownColumn(t *testing.T) {
	tbl := New("date", "count")
	tbl.Append("2020-01-01", 1)
	assert.ErrorIs(t, tbl.Expand("country", "count", Sum), ErrUnknownColumn)
	assert.Equal(t, []string{"date", "count"}, tbl.Headers)
}

func TestParseAggregate(t *testing.T) {
	for name, want := range map[string]Aggregate{"": Replace, "default": Replace, "sum": Sum, "MAX": Max, "Min": Min} {
		got, err := ParseAggregate(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseAggregate("avg")
	assert.ErrorIs(t, err, ErrUnsupportedAggregate)
}
