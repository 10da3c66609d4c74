package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"supabase-keepalive/internal/telemetry"
	"supabase-keepalive/internal/telemetry/domain"
)

// recordEmitter is the part of otellog.Logger the emitter needs.
type recordEmitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends keepalive events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger("supabase-keepalive.events"))
}

// NewEventEmitterWithLogger returns an EventEmitter writing to logger. Used in tests to capture records.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Event) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the keepalive event to an OTel log record. Failures map to ERROR severity.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(time.Now().UTC())

	switch event.EventType {
	case domain.EventPingFailed, domain.EventCleanupFailed:
		rec.SetSeverity(otellog.SeverityError)
		rec.SetSeverityText("ERROR")
	default:
		rec.SetSeverity(otellog.SeverityInfo)
		rec.SetSeverityText("INFO")
	}
	rec.SetBody(otellog.StringValue(event.EventType))

	if event.ID != "" {
		rec.AddAttributes(otellog.String("event_id", event.ID))
	}
	if event.RunID != "" {
		rec.AddAttributes(otellog.String("run_id", event.RunID))
	}
	if event.EventType != "" {
		rec.AddAttributes(otellog.String("event_type", event.EventType))
	}
	if event.Table != "" {
		rec.AddAttributes(otellog.String("table", event.Table))
	}
	if event.PingNumber > 0 {
		rec.AddAttributes(otellog.Int("ping_number", event.PingNumber))
	}
	if event.DaysToKeep > 0 {
		rec.AddAttributes(otellog.Int("days_to_keep", event.DaysToKeep))
	}
	rec.AddAttributes(otellog.Int64("rows", event.Rows))
	if event.ErrorKind != "" {
		rec.AddAttributes(otellog.String("error_kind", event.ErrorKind))
	}
	if event.Error != "" {
		rec.AddAttributes(otellog.String("error", event.Error))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
