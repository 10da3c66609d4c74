package db

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// Open opens a Postgres connection using the given DSN. Caller must call Close when done.
func Open(dsn string) (*sql.DB, error) {
	return OpenWithPassword(dsn, "")
}

// OpenWithPassword opens a Postgres connection from an endpoint DSN and a privileged access key.
// A non-empty password overrides any password carried by the DSN. The connection is pinged once;
// on failure it is closed and the error returned. Caller must call Close when done.
func OpenWithPassword(dsn, password string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("db: empty DSN")
	}
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if password != "" {
		connConfig.Password = password
	}
	db := stdlib.OpenDB(*connConfig)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
