package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"supabase-keepalive/internal/keepalive/domain"
)

// PostgresRepository stores pings in a Postgres table through database/sql.
type PostgresRepository struct {
	db *sql.DB

	insertSQL string
	deleteSQL string
	selectSQL string
}

// NewPostgresRepository returns a ping repository for table ("name" or "schema.name").
// An empty table selects domain.DefaultTable.
func NewPostgresRepository(db *sql.DB, table string) *PostgresRepository {
	ident := TableIdentifier(table)
	return &PostgresRepository{
		db:        db,
		insertSQL: fmt.Sprintf(`INSERT INTO %s (ping_time) VALUES ($1) RETURNING ping_time, created_at`, ident),
		deleteSQL: fmt.Sprintf(`DELETE FROM %s WHERE created_at < now() - make_interval(days => $1)`, ident),
		selectSQL: fmt.Sprintf(`SELECT ping_time, created_at FROM %s ORDER BY created_at DESC LIMIT $1`, ident),
	}
}

// TableIdentifier quotes a possibly schema-qualified table name for interpolation into SQL.
func TableIdentifier(table string) string {
	table = strings.TrimSpace(table)
	if table == "" {
		table = domain.DefaultTable
	}
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

// Insert writes one ping with the given client timestamp.
func (r *PostgresRepository) Insert(ctx context.Context, pingTime time.Time) ([]domain.Ping, error) {
	rows, err := r.db.QueryContext(ctx, r.insertSQL, pingTime.UTC())
	if err != nil {
		return nil, remoteError("insert", err)
	}
	out, err := scanPings(rows)
	return out, remoteError("insert", err)
}

// DeleteOlderThan removes pings older than days, using the database clock.
func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.deleteSQL, days)
	if err != nil {
		return 0, remoteError("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, remoteError("delete", err)
	}
	return n, nil
}

// ListRecent returns up to limit pings, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]domain.Ping, error) {
	rows, err := r.db.QueryContext(ctx, r.selectSQL, limit)
	if err != nil {
		return nil, remoteError("select", err)
	}
	out, err := scanPings(rows)
	return out, remoteError("select", err)
}

func scanPings(rows *sql.Rows) ([]domain.Ping, error) {
	defer rows.Close()
	var out []domain.Ping
	for rows.Next() {
		var p domain.Ping
		if err := rows.Scan(&p.PingTime, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
