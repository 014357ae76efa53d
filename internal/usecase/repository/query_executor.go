package repository

import (
	"context"

	"sqlreport/internal/domain/query"
)

// Connection executes formatted SQL with ":name" binds against one database.
type Connection interface {
	Query(ctx context.Context, sql string, binds query.Binds) (*query.Rows, error)
	// Reconnect drops and re-establishes the underlying connections.
	Reconnect(ctx context.Context) error
}

// ConnectionProvider resolves a pool name to its connection.
type ConnectionProvider interface {
	Connection(name string) (Connection, error)
}
