// Package migrate creates the keepalive table from embedded SQL files using golang-migrate.
package migrate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"supabase-keepalive/internal/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationsTable keeps our version bookkeeping apart from Supabase's own schema_migrations.
const MigrationsTable = "keepalive_schema_migrations"

// ErrNoChange is returned when Up/Down has nothing to do (already at target version).
var ErrNoChange = migrate.ErrNoChange

// Run applies migrations in the given direction ("up" or "down") against dsn.
// A non-empty password replaces the one in dsn. Returns nil on success and when already
// at the target version; other errors for DB or I/O failures.
func Run(dsn, password, direction string) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}
	m, err := newMigrate(dsn, password)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Version reports the applied schema version and whether the last migration left it dirty.
// A database with no applied migrations returns version 0 and no error.
func Version(dsn, password string) (uint, bool, error) {
	m, err := newMigrate(dsn, password)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func newMigrate(dsn, password string) (*migrate.Migrate, error) {
	target, err := databaseURL(dsn, password)
	if err != nil {
		return nil, err
	}
	sourceDriver, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, target)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return m, nil
}

// databaseURL validates dsn, applies the password override and pins the migrations table.
func databaseURL(dsn, password string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", errors.New("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("migrate: invalid DATABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("migrate: DATABASE_URL must be a postgres:// URL, got scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("migrate: DATABASE_URL is missing a host")
	}
	if password != "" {
		user := ""
		if u.User != nil {
			user = u.User.Username()
		}
		u.User = url.UserPassword(user, password)
	}
	q := u.Query()
	if q.Get("x-migrations-table") == "" {
		q.Set("x-migrations-table", MigrationsTable)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
