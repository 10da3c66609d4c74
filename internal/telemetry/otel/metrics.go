package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome attribute values.
const (
	OutcomeSuccess = "success"
	OutcomeNoData  = "no_data"
	OutcomeError   = "error"
)

// Instruments records keepalive ping and cleanup metrics.
type Instruments struct {
	pings       metric.Int64Counter
	pingLatency metric.Float64Histogram
	cleanups    metric.Int64Counter
	deleted     metric.Int64Counter
}

// NewInstruments creates the keepalive instruments on mp's "supabase-keepalive" meter.
func NewInstruments(mp metric.MeterProvider) (*Instruments, error) {
	meter := mp.Meter("supabase-keepalive")
	pings, err := meter.Int64Counter("keepalive.pings",
		metric.WithDescription("Keepalive ping attempts by outcome."),
		metric.WithUnit("{ping}"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("keepalive.ping.duration",
		metric.WithDescription("Duration of the keepalive insert."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	cleanups, err := meter.Int64Counter("keepalive.cleanups",
		metric.WithDescription("Retention sweeps by outcome."),
		metric.WithUnit("{sweep}"))
	if err != nil {
		return nil, err
	}
	deleted, err := meter.Int64Counter("keepalive.cleanup.deleted_rows",
		metric.WithDescription("Rows removed by retention sweeps."),
		metric.WithUnit("{row}"))
	if err != nil {
		return nil, err
	}
	return &Instruments{pings: pings, pingLatency: latency, cleanups: cleanups, deleted: deleted}, nil
}

// RecordPing counts one ping attempt. errorKind is empty unless outcome is OutcomeError.
func (i *Instruments) RecordPing(ctx context.Context, outcome, errorKind string, d time.Duration) {
	if i == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if errorKind != "" {
		attrs = append(attrs, attribute.String("error_kind", errorKind))
	}
	set := metric.WithAttributes(attrs...)
	i.pings.Add(ctx, 1, set)
	i.pingLatency.Record(ctx, d.Seconds(), set)
}

// RecordCleanup counts one sweep and the rows it removed.
func (i *Instruments) RecordCleanup(ctx context.Context, outcome, errorKind string, deleted int64) {
	if i == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if errorKind != "" {
		attrs = append(attrs, attribute.String("error_kind", errorKind))
	}
	i.cleanups.Add(ctx, 1, metric.WithAttributes(attrs...))
	if deleted > 0 {
		i.deleted.Add(ctx, deleted)
	}
}
