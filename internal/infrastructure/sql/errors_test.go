package sql

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsLostConnection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped eof", fmt.Errorf("read: %w", io.EOF), true},
		{"pq connection failure", &pq.Error{Code: "08006"}, true},
		{"pq admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"pq undefined table", &pq.Error{Code: "42P01", Message: "relation does not exist"}, false},
		{"pgx connection exception", &pgconn.PgError{Code: "08003"}, true},
		{"pgx syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"mysql gone away", errors.New("Error 2006: MySQL server has gone away"), true},
		{"reset by peer", errors.New("read tcp 10.0.0.1:5432: connection reset by peer"), true},
		{"syntax error", errors.New("near \"SELEC\": syntax error"), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLostConnection(tt.err))
		})
	}
}
