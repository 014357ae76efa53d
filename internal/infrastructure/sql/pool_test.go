package sql

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlreport/internal/domain/query"
)

func setupTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func setupTestPool(t *testing.T) *Pool {
	pool, err := Open("main", PoolConfig{Driver: "sqlite3", DSN: ":memory:", MaxOpenConns: 1}, setupTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	_, err = pool.DB().Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, score REAL)`)
	require.NoError(t, err)
	_, err = pool.DB().Exec(`INSERT INTO users (id, name, score) VALUES (1, 'ann', 1.5), (2, 'bob', 3.25), (3, 'cid', NULL)`)
	require.NoError(t, err)
	return pool
}

func TestPoolQuery(t *testing.T) {
	pool := setupTestPool(t)

	rows, err := pool.Query(context.Background(),
		"SELECT id, name, score FROM users WHERE score > :min ORDER BY id",
		query.Binds{":min": 1})
	require.NoError(t, err)

	assert.Equal(t, []query.Column{
		{Name: "id", DatabaseType: "INTEGER"},
		{Name: "name", DatabaseType: "TEXT"},
		{Name: "score", DatabaseType: "REAL"},
	}, rows.Columns)
	assert.Equal(t, [][]any{{int64(1), "ann", 1.5}, {int64(2), "bob", 3.25}}, rows.Values)
}

func TestPoolQueryEmptyKeepsColumns(t *testing.T) {
	pool := setupTestPool(t)

	rows, err := pool.Query(context.Background(), "SELECT id, name FROM users WHERE id > :id", query.Binds{":id": 100})
	require.NoError(t, err)
	assert.Len(t, rows.Columns, 2)
	assert.Empty(t, rows.Values)
}

func TestPoolQueryErrors(t *testing.T) {
	pool := setupTestPool(t)

	_, err := pool.Query(context.Background(), "SELECT * FROM users WHERE id = :id", query.Binds{})
	assert.ErrorIs(t, err, ErrMissingBind)

	_, err = pool.Query(context.Background(), "SELECT * FROM missing_table", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, query.ErrConnectionLost)
}

func TestPoolReconnect(t *testing.T) {
	pool := setupTestPool(t)
	before := pool.DB()

	require.NoError(t, pool.Reconnect(context.Background()))
	assert.NotSame(t, before, pool.DB())
	assert.NoError(t, pool.Ping(context.Background()))
}

func TestPoolsUnknownPool(t *testing.T) {
	pools := NewPools(setupTestPool(t))

	conn, err := pools.Connection("main")
	require.NoError(t, err)
	assert.NotNil(t, conn)

	_, err = pools.Connection("analytics")
	assert.ErrorIs(t, err, ErrUnknownPool)
	assert.Equal(t, []string{"main"}, pools.Names())
}
