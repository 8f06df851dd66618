package leads

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrLeadNotFound is returned when no lead matches the requested id.
var ErrLeadNotFound = errors.New("lead not found")

// StoreError wraps a write-path failure (insert, update, delete).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "leads: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// QueryError wraps a read-path failure.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return "leads: " + e.Op + ": " + e.Err.Error()
}

func (e *QueryError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err indicates the store could not be
// reached, as opposed to rejecting the operation. Callers map this to a
// 503 rather than a 500.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception; 53300: too many connections;
		// 57P03: cannot_connect_now (server starting up or shutting down).
		switch {
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			return true
		case pgErr.Code == "53300", pgErr.Code == "57P03":
			return true
		}
	}
	return false
}
