package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/report"
)

type stubDefinitions map[string]report.Definition

func (s stubDefinitions) GetByName(_ context.Context, name string) (report.Definition, error) {
	def, ok := s[name]
	if !ok {
		return report.Definition{}, errors.New("not found")
	}
	return def, nil
}

func pagedCountryDefinition() report.Definition {
	return report.Definition{
		Name:        "daily-countries",
		Queries:     []report.Query{{SQL: "SELECT day, country, users FROM stats WHERE app = ${app} LIMIT :limit OFFSET :offset"}},
		Pager:       true,
		DefaultSort: true,
		Params:      query.Params{"app": "x"},
		Pivot:       &report.Pivot{Column: "country", Value: "users"},
		Headers:     map[string]string{"day": "Day"},
	}
}

func TestReportRunnerRun(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Query", mock.Anything, "SELECT day, country, users FROM stats WHERE app = :app LIMIT :limit OFFSET :offset",
		query.Binds{":app": "x", ":limit": 2, ":offset": 2}).
		Return(rowsOf([]query.Column{{Name: "day"}, {Name: "country"}, {Name: "users", DatabaseType: "INT8"}},
			[]any{"2020-01-01", "CN", int64(1)},
			[]any{"2020-01-01", "US", int64(2)},
		), nil)
	conn.On("Query", mock.Anything, "SELECT COUNT(1) FROM stats WHERE app = :app", query.Binds{":app": "x"}).
		Return(rowsOf([]query.Column{{Name: "count"}}, []any{int64(5)}), nil)

	runner := NewReportRunner(stubProvider{DefaultPool: conn}, nil, setupTestLogger())
	res, err := runner.Run(context.Background(), pagedCountryDefinition(), nil, Page{Number: 2, Size: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"Day", "CN", "US"}, res.Table.Headers)
	assert.Equal(t, [][]any{{"2020-01-01", int64(1), int64(2)}}, res.Table.Rows)
	assert.Equal(t, int64(5), res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 2, res.PageSize)
	conn.AssertExpectations(t)
}

func TestReportRunnerRunByName(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Query", mock.Anything, "SELECT name FROM apps WHERE owner = :owner", query.Binds{":owner": "me"}).
		Return(rowsOf([]query.Column{{Name: "name"}}, []any{"x"}), nil)

	defs := stubDefinitions{"apps": {
		Name:    "apps",
		Queries: []report.Query{{SQL: "SELECT name FROM apps WHERE owner = ${owner}", Pool: "meta"}},
		Params:  query.Params{"owner": "nobody"},
	}}
	runner := NewReportRunner(stubProvider{"meta": conn}, defs, setupTestLogger())

	res, err := runner.RunByName(context.Background(), "apps", query.Params{"owner": "me"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"x"}}, res.Table.Rows)
	assert.Zero(t, res.Total)

	_, err = runner.RunByName(context.Background(), "missing", nil, Page{})
	assert.Error(t, err)
}

func TestReportRunnerPageLimits(t *testing.T) {
	runner := NewReportRunner(stubProvider{}, nil, setupTestLogger())
	runner.MaxPageSize = 100

	assert.Equal(t, Page{Number: 1, Size: 50}, runner.normalize(Page{}))
	assert.Equal(t, Page{Number: 3, Size: 100}, runner.normalize(Page{Number: 3, Size: 5000}))
}
