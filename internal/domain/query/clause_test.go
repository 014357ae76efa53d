package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindClause(t *testing.T) {
	sql := "SELECT * FROM t WHERE a = ${a} AND b = 2"
	start, end, err := FindClause(sql, strings.Index(sql, "${a}"))
	require.NoError(t, err)
	assert.Equal(t, " a = ${a} ", sql[start:end])
}

func TestFindClauseTrimsClosingBrackets(t *testing.T) {
	sql := "SELECT * FROM t WHERE (x = 1 OR (y = ${y}))"
	start, end, err := FindClause(sql, strings.Index(sql, "${y}"))
	require.NoError(t, err)
	assert.Equal(t, " (y = ${y})", sql[start:end])
}

func TestFindClauseStopsAtAlias(t *testing.T) {
	sql := "SELECT * FROM (SELECT * FROM u WHERE v = ${v}) as s"
	start, end, err := FindClause(sql, strings.Index(sql, "${v}"))
	require.NoError(t, err)
	assert.Equal(t, " v = ${v}", sql[start:end])
}

func TestFindClauseIgnoresLiterals(t *testing.T) {
	sql := "SELECT * FROM t WHERE note = ' where ' || ${v}"
	start, end, err := FindClause(sql, strings.Index(sql, "${v}"))
	require.NoError(t, err)
	assert.Equal(t, strings.Index(sql, "WHERE")+len("WHERE"), start)
	assert.Equal(t, len(sql), end)
}

func TestFindClauseUnbounded(t *testing.T) {
	sql := "SELECT ${a} FROM t"
	_, _, err := FindClause(sql, strings.Index(sql, "${a}"))
	assert.ErrorIs(t, err, ErrUnsupportedCondition)
}

func TestNamedMarkers(t *testing.T) {
	markers := NamedMarkers("SELECT a::text FROM t WHERE b = :b AND c = ':c' -- :d\n AND e = :e_1")
	require.Len(t, markers, 2)
	assert.Equal(t, "b", markers[0].Name)
	assert.Equal(t, "e_1", markers[1].Name)
}
