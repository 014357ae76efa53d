package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appTable() *Table {
	tbl := New("date", "app", "users")
	tbl.Append("2020-01-01", "app_1", 110)
	tbl.Append("2020-01-01", "app_2", 220)
	return tbl
}

func TestSwapColumns(t *testing.T) {
	tbl := appTable()
	require.NoError(t, tbl.SwapColumns("app", "users"))
	assert.Equal(t, []string{"date", "users", "app"}, tbl.Headers)
	assert.Equal(t, [][]any{{"2020-01-01", 110, "app_1"}, {"2020-01-01", 220, "app_2"}}, tbl.Rows)

	assert.ErrorIs(t, tbl.SwapColumns("app", "nope"), ErrUnknownColumn)
}

func TestMoveColumn(t *testing.T) {
	tbl := appTable()
	require.NoError(t, tbl.MoveColumn("app", 0))
	assert.Equal(t, []string{"app", "date", "users"}, tbl.Headers)
	assert.Equal(t, [][]any{{"app_1", "2020-01-01", 110}, {"app_2", "2020-01-01", 220}}, tbl.Rows)

	require.NoError(t, tbl.MoveColumn("app", 2))
	assert.Equal(t, []string{"date", "users", "app"}, tbl.Headers)
	assert.Equal(t, []any{"2020-01-01", 110, "app_1"}, tbl.Rows[0])
}

func TestRemoveRow(t *testing.T) {
	tbl := appTable()
	tbl.RemoveRow(0)
	tbl.RemoveRow(5)
	assert.Equal(t, [][]any{{"2020-01-01", "app_2", 220}}, tbl.Rows)
}

func TestSortByColumn(t *testing.T) {
	tbl := New("name", "score")
	tbl.Append("b", "10")
	tbl.Append("a", "9")
	tbl.Append("c", 100)
	tbl.Append("d", nil)

	tbl.SortByColumn("score", false)
	assert.Equal(t, []any{"d", "a", "b", "c"}, mustColumn(t, tbl, "name"))

	tbl.SortByColumn("score", true)
	assert.Equal(t, []any{"c", "b", "a", "d"}, mustColumn(t, tbl, "name"))
}

func TestSortByColumnsTiesAndUnknown(t *testing.T) {
	tbl := New("date", "app", "users")
	tbl.Append("2020-01-02", "x", 1)
	tbl.Append("2020-01-01", "y", 2)
	tbl.Append("2020-01-02", "a", 3)

	tbl.SortByColumns([]any{"date", "missing", "app"}, true)
	assert.Equal(t, []any{"x", "a", "y"}, mustColumn(t, tbl, "app"))

	tbl.SortByColumns([]any{"date", "app"}, false)
	assert.Equal(t, []any{"y", "a", "x"}, mustColumn(t, tbl, "app"))
}
