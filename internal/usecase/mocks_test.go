package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/usecase/repository"
)

// MockConnection is a mock implementation of repository.Connection
type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Query(ctx context.Context, sql string, binds query.Binds) (*query.Rows, error) {
	args := m.Called(ctx, sql, binds)
	rows, _ := args.Get(0).(*query.Rows)
	return rows, args.Error(1)
}

func (m *MockConnection) Reconnect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type stubProvider map[string]repository.Connection

func (p stubProvider) Connection(name string) (repository.Connection, error) {
	conn, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("unknown pool %q", name)
	}
	return conn, nil
}

func setupTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func rowsOf(columns []query.Column, values ...[]any) *query.Rows {
	if values == nil {
		values = [][]any{}
	}
	return &query.Rows{Columns: columns, Values: values}
}
