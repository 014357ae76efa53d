package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrUnknownPool is returned for a pool name missing from configuration.
	ErrUnknownPool = errors.New("unknown pool")
	// ErrMissingBind is returned when a ":name" marker has no bind value.
	ErrMissingBind = errors.New("missing bind value")
)

var lostConnectionMessages = []string{
	"server has gone away",
	"lost connection",
	"no connection to the server",
	"server closed the connection unexpectedly",
	"connection reset by peer",
	"broken pipe",
	"connection refused",
	"bad connection",
	"conn closed",
	"connection is already closed",
	"terminating connection due to administrator command",
	"ssl connection has been closed unexpectedly",
	"error writing data to the connection",
	"reset by peer",
	"decryption failed or bad record mac",
	"server closed the connection",
}

// IsLostConnection reports whether err means the connection has to be
// re-established before the statement can succeed.
func IsLostConnection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08" || pqErr.Code == "57P01" || pqErr.Code == "57P02" || pqErr.Code == "57P03"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03"
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, needle := range lostConnectionMessages {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
