package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"supabase-keepalive/internal/keepalive/domain"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"nil", nil, domain.KindUnknown},
		{"invalid password", &pgconn.PgError{Code: "28P01"}, domain.KindAuth},
		{"invalid authorization", &pgconn.PgError{Code: "28000"}, domain.KindAuth},
		{"insufficient privilege", &pgconn.PgError{Code: "42501"}, domain.KindAuth},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, domain.KindSchema},
		{"undefined column", &pgconn.PgError{Code: "42703"}, domain.KindSchema},
		{"invalid catalog", &pgconn.PgError{Code: "3D000"}, domain.KindSchema},
		{"invalid schema", &pgconn.PgError{Code: "3F000"}, domain.KindSchema},
		{"connection failure", &pgconn.PgError{Code: "08006"}, domain.KindNetwork},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, domain.KindNetwork},
		{"unique violation", &pgconn.PgError{Code: "23505"}, domain.KindUnknown},
		{"wrapped pg error", fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01"}), domain.KindSchema},
		{"net op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, domain.KindNetwork},
		{"dns error", &net.DNSError{Err: "no such host", Name: "db.invalid"}, domain.KindNetwork},
		{"bad conn", driver.ErrBadConn, domain.KindNetwork},
		{"eof", io.EOF, domain.KindNetwork},
		{"unexpected eof", fmt.Errorf("read: %w", io.ErrUnexpectedEOF), domain.KindNetwork},
		{"deadline", context.DeadlineExceeded, domain.KindNetwork},
		{"plain", errors.New("boom"), domain.KindUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestRemoteError_WrapsOnce(t *testing.T) {
	if remoteError("insert", nil) != nil {
		t.Fatal("remoteError(nil) should be nil")
	}

	err := remoteError("insert", &pgconn.PgError{Code: "28P01", Message: "password authentication failed"})
	var remote *domain.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected *domain.RemoteError, got %T", err)
	}
	if remote.Op != "insert" || remote.Kind != domain.KindAuth {
		t.Errorf("RemoteError = %+v, want op insert kind auth", remote)
	}

	again := remoteError("select", err)
	if again != err {
		t.Error("an existing RemoteError should be returned unchanged")
	}
}

func TestTableIdentifier(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"", `"keepalive_pings"`},
		{"keepalive_pings", `"keepalive_pings"`},
		{"public.keepalive_pings", `"public"."keepalive_pings"`},
		{`bad"name`, `"bad""name"`},
	}
	for _, tc := range testCases {
		if got := TableIdentifier(tc.in); got != tc.want {
			t.Errorf("TableIdentifier(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
