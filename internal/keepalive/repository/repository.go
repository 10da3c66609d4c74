package repository

import (
	"context"
	"time"

	"supabase-keepalive/internal/keepalive/domain"
)

// Repository defines persistence for keepalive pings. Errors are *domain.RemoteError.
type Repository interface {
	// Insert writes one ping and returns the rows the database reports back.
	Insert(ctx context.Context, pingTime time.Time) ([]domain.Ping, error)
	// DeleteOlderThan removes pings whose created_at predates now() minus days, evaluated by the database.
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
	// ListRecent returns up to limit pings, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.Ping, error)
}
