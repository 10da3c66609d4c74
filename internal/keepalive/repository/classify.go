package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"supabase-keepalive/internal/keepalive/domain"
)

// remoteError wraps err as a *domain.RemoteError for op, or returns nil for a nil err.
func remoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *domain.RemoteError
	if errors.As(err, &existing) {
		return err
	}
	return &domain.RemoteError{Op: op, Kind: Classify(err), Err: err}
}

// Classify maps a driver error to an ErrorKind using the Postgres SQLSTATE when one is reported.
func Classify(err error) domain.ErrorKind {
	if err == nil {
		return domain.KindUnknown
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return domain.KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.KindNetwork
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return domain.KindNetwork
	}
	if pgconn.Timeout(err) {
		return domain.KindNetwork
	}
	return domain.KindUnknown
}

func classifySQLState(code string) domain.ErrorKind {
	switch code {
	case "57P01", "57P02", "57P03": // admin/crash shutdown, cannot connect now
		return domain.KindNetwork
	}
	switch {
	case strings.HasPrefix(code, "28"): // invalid authorization specification
		return domain.KindAuth
	case code == "42501": // insufficient_privilege
		return domain.KindAuth
	case strings.HasPrefix(code, "42"), strings.HasPrefix(code, "3D"), strings.HasPrefix(code, "3F"):
		return domain.KindSchema
	case strings.HasPrefix(code, "08"): // connection exception
		return domain.KindNetwork
	}
	return domain.KindUnknown
}
