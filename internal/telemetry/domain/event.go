package domain

import "time"

// Event types emitted by the keepalive loop.
const (
	EventPingSucceeded    = "ping_succeeded"
	EventPingFailed       = "ping_failed"
	EventCleanupSucceeded = "cleanup_succeeded"
	EventCleanupFailed    = "cleanup_failed"
)

// Event is one keepalive outcome, serialized as JSON for Kafka and Loki.
type Event struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	EventType  string    `json:"event_type"`
	Table      string    `json:"table"`
	PingNumber int       `json:"ping_number,omitempty"`
	Rows       int64     `json:"rows"`
	DaysToKeep int       `json:"days_to_keep,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
