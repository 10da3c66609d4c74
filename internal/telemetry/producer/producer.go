// Package producer defines the interface for publishing keepalive events to a broker (e.g. Kafka).
package producer

import (
	"context"

	"supabase-keepalive/internal/telemetry/domain"
)

// Producer publishes keepalive events. Callers use it best-effort: log and ignore errors.
// Every Producer is also a telemetry.EventEmitter.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call via telemetry.EmitAsync.
	Emit(ctx context.Context, event *domain.Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
