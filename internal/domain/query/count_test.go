package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCount(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "order and limit are cut",
			template: "SELECT * FROM t WHERE x=${x} ORDER BY y LIMIT 10",
			want:     "SELECT COUNT(1) FROM t WHERE x=${x}",
		},
		{
			name:     "group by is wrapped",
			template: "SELECT d, count(*) FROM t WHERE a = ${a} GROUP BY d ORDER BY d DESC LIMIT 5",
			want:     "SELECT COUNT(1) FROM (SELECT d, count(*) FROM t WHERE a = ${a} GROUP BY d) AS TEMP",
		},
		{
			name:     "nested order by stays",
			template: "SELECT a FROM (SELECT a FROM t ORDER BY a LIMIT 3) s WHERE a > 1",
			want:     "SELECT COUNT(1) FROM (SELECT a FROM t ORDER BY a LIMIT 3) s WHERE a > 1",
		},
		{
			name:     "lower case",
			template: "select a, b from t limit 10",
			want:     "SELECT COUNT(1) from t",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildCount(tt.template)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCountFormats(t *testing.T) {
	count, err := BuildCount("SELECT * FROM t WHERE x=${x} ORDER BY y LIMIT 10")
	require.NoError(t, err)

	sql, binds, err := Format(count, Params{"x": 7})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(1) FROM t WHERE x=:x", sql)
	assert.Equal(t, Binds{":x": 7}, binds)
}

func TestBuildCountNotSelect(t *testing.T) {
	_, err := BuildCount("UPDATE t SET a = 1")
	assert.ErrorIs(t, err, ErrNotSelect)
}

func TestBuildCountIgnoresMarkersNamedLikeKeywords(t *testing.T) {
	got, err := BuildCount("SELECT a FROM t WHERE o = ${order} AND l = :limit AND t.from_id = 1 LIMIT 5")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(1) FROM t WHERE o = ${order} AND l = :limit AND t.from_id = 1", got)
}
