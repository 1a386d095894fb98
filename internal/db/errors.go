package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
)

// ConnectivityError means the backend handle is no longer usable: the
// network dropped, authentication failed, or the file cannot be read.
// The pool must be reconnected before further use.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string { return "connection lost: " + e.Err.Error() }
func (e *ConnectivityError) Unwrap() error { return e.Err }

// QueryError means one statement failed but the handle remains usable:
// a bad predicate, a missing table, a permission error on one object.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return e.Err.Error() }
func (e *QueryError) Unwrap() error { return e.Err }

// IsConnectivity reports whether err carries a ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// classify normalizes a driver error into the two-kind taxonomy. Errors
// already classified pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnectivityError
	var qe *QueryError
	if errors.As(err, &ce) || errors.As(err, &qe) {
		return err
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return &ConnectivityError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ConnectivityError{Err: err}
	}
	return &QueryError{Err: err}
}

// connectivity wraps any non-nil error as a ConnectivityError. Used on
// the connect/ping path where every failure means an unusable handle.
func connectivity(err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnectivityError
	if errors.As(err, &ce) {
		return err
	}
	return &ConnectivityError{Err: err}
}
