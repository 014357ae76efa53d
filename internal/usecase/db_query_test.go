package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/table"
)

var statsColumns = []query.Column{
	{Name: "day", DatabaseType: "VARCHAR"},
	{Name: "users", DatabaseType: "INT8"},
}

func TestDBQueryRun(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Query", mock.Anything,
		"SELECT day, users FROM stats WHERE app = :app AND country IN (:country_0,:country_1)",
		query.Binds{":app": "a", ":country_0": "CN", ":country_1": "US"},
	).Return(rowsOf(statsColumns, []any{"2020-01-01", "10"}, []any{"2020-01-02", nil}), nil)

	q := NewDBQuery("SELECT day, users FROM stats WHERE app = ${app} AND country IN (${country})",
		"main", stubProvider{"main": conn}, setupTestLogger())

	result, err := q.Run(context.Background(), query.Params{"app": "a", "country": []string{"CN", "US"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"day", "users"}, result.Headers)
	assert.Equal(t, [][]any{{"2020-01-01", int64(10)}, {"2020-01-02", nil}}, result.Rows)
	assert.Equal(t, map[string]string{"day": "VARCHAR", "users": "INT8"}, result.ColumnTypes())
	assert.Equal(t, result.ColumnTypes(), q.FieldTypes())
	conn.AssertExpectations(t)
}

func TestDBQueryRunEmptyResultKeepsHeaders(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Query", mock.Anything, "SELECT day, users FROM stats", query.Binds{}).Return(rowsOf(statsColumns), nil)

	q := NewDBQuery("SELECT day, users FROM stats", "main", stubProvider{"main": conn}, setupTestLogger())
	result, err := q.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"day", "users"}, result.Headers)
	assert.Empty(t, result.Rows)
}

func TestDBQueryRetriesOnceAfterLostConnection(t *testing.T) {
	conn := new(MockConnection)
	lost := &query.LostConnectionError{Err: errors.New("broken pipe")}
	conn.On("Query", mock.Anything, "SELECT day, users FROM stats", mock.Anything).Return(nil, lost).Once()
	conn.On("Query", mock.Anything, "SELECT day, users FROM stats", mock.Anything).
		Return(rowsOf(statsColumns, []any{"2020-01-01", int64(3)}), nil).Once()
	conn.On("Reconnect", mock.Anything).Return(nil).Once()

	q := NewDBQuery("SELECT day, users FROM stats", "main", stubProvider{"main": conn}, setupTestLogger())
	result, err := q.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"2020-01-01", int64(3)}}, result.Rows)

	conn.AssertNumberOfCalls(t, "Query", 2)
	conn.AssertNumberOfCalls(t, "Reconnect", 1)
}

func TestDBQuerySecondLostConnectionPropagates(t *testing.T) {
	conn := new(MockConnection)
	lost := &query.LostConnectionError{Err: errors.New("server closed the connection unexpectedly")}
	conn.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, lost)
	conn.On("Reconnect", mock.Anything).Return(nil)

	q := NewDBQuery("SELECT 1 FROM stats", "main", stubProvider{"main": conn}, setupTestLogger())
	_, err := q.Run(context.Background(), nil)
	assert.ErrorIs(t, err, query.ErrConnectionLost)

	conn.AssertNumberOfCalls(t, "Query", 2)
	conn.AssertNumberOfCalls(t, "Reconnect", 1)
}

func TestDBQueryReconnectFailure(t *testing.T) {
	conn := new(MockConnection)
	lost := &query.LostConnectionError{Err: errors.New("broken pipe")}
	conn.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, lost)
	conn.On("Reconnect", mock.Anything).Return(errors.New("dial tcp: connection refused"))

	q := NewDBQuery("SELECT 1 FROM stats", "main", stubProvider{"main": conn}, setupTestLogger())
	_, err := q.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrConnectionLost)
	assert.Contains(t, err.Error(), "reconnect")
	conn.AssertNumberOfCalls(t, "Query", 1)
}

func TestDBQueryOtherErrorsDoNotRetry(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("syntax error"))

	q := NewDBQuery("SELECT 1 FROM stats", "main", stubProvider{"main": conn}, setupTestLogger())
	_, err := q.Run(context.Background(), nil)
	assert.EqualError(t, err, "syntax error")
	conn.AssertNotCalled(t, "Reconnect", mock.Anything)
}

func TestDBQueryRejectsWrites(t *testing.T) {
	conn := new(MockConnection)
	q := NewDBQuery("DELETE FROM stats WHERE app = ${app}", "main", stubProvider{"main": conn}, setupTestLogger())

	_, err := q.Run(context.Background(), query.Params{"app": "a"})
	assert.ErrorIs(t, err, query.ErrForbiddenStatement)
	_, err = q.Count(context.Background(), query.Params{"app": "a"})
	assert.ErrorIs(t, err, query.ErrForbiddenStatement)
	conn.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestDBQueryUnknownPool(t *testing.T) {
	q := NewDBQuery("SELECT 1 FROM stats", "missing", stubProvider{}, setupTestLogger())
	_, err := q.Run(context.Background(), nil)
	assert.ErrorContains(t, err, "missing")
}

func TestDBQueryCount(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Query", mock.Anything, "SELECT COUNT(1) FROM stats WHERE app = :app", query.Binds{":app": "a"}).
		Return(rowsOf([]query.Column{{Name: "COUNT(1)"}}, []any{int64(42)}), nil).Twice()

	q := NewDBQuery("SELECT * FROM stats WHERE app = ${app} ORDER BY day LIMIT 10", "main",
		stubProvider{"main": conn}, setupTestLogger())

	for i := 0; i < 2; i++ {
		n, err := q.Count(context.Background(), query.Params{"app": "a"})
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
	}
	conn.AssertExpectations(t)
}

func TestDBQueryExplicitCountTemplate(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Query", mock.Anything, "SELECT n FROM stats_total", query.Binds{}).
		Return(rowsOf([]query.Column{{Name: "n", DatabaseType: "INT4"}}, []any{"7"}), nil)

	q := NewDBQuery("SELECT * FROM stats", "main", stubProvider{"main": conn}, setupTestLogger())
	q.SetCountTemplate("SELECT n FROM stats_total")

	n, err := q.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestDBQueryHooks(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Query", mock.Anything, "SELECT day, users FROM stats WHERE app = :app", query.Binds{":app": "forced"}).
		Return(rowsOf(statsColumns, []any{"2020-01-01", int64(4)}), nil)

	params := query.Params{"app": "ignored"}
	q := NewDBQuery("SELECT day, users FROM stats WHERE app = ${app}", "main", stubProvider{"main": conn}, setupTestLogger(),
		WithQueryParamProcessor(func(p query.Params) query.Params {
			p["app"] = "forced"
			return p
		}),
		WithQueryPostProcessor(func(t *table.Table) *table.Table {
			t.AddColumn("double", func(row table.Row) any { return row.Get("users").(int64) * 2 })
			return nil
		}),
	)

	result, err := q.Run(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, []string{"day", "users", "double"}, result.Headers)
	assert.Equal(t, []any{"2020-01-01", int64(4), int64(8)}, result.Rows[0])
	assert.Equal(t, "ignored", params["app"])
}
