// Package service implements the keepalive ping, the retention sweep and the connectivity check.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"supabase-keepalive/internal/keepalive/domain"
	"supabase-keepalive/internal/keepalive/repository"
	"supabase-keepalive/internal/telemetry"
	teldomain "supabase-keepalive/internal/telemetry/domain"
	telotel "supabase-keepalive/internal/telemetry/otel"
)

// DefaultDaysToKeep is the retention window used when Cleanup is given a non-positive value.
const DefaultDaysToKeep = 7

// Clock returns the current time.
type Clock func() time.Time

// Options configures a Service. Zero values are usable.
type Options struct {
	// Table is recorded on events and spans; the repository decides where rows go.
	Table string
	// RunID identifies this process on emitted events.
	RunID string
	// Clock defaults to time.Now.
	Clock Clock
	// CallTimeout bounds each repository call; 0 means no timeout.
	CallTimeout time.Duration
	// Emitter receives one event per ping and sweep. Nil disables events.
	Emitter telemetry.EventEmitter
	// Instruments records metrics. Nil disables metrics.
	Instruments *telotel.Instruments
	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer
}

// Service pings the keepalive table and sweeps old rows. Failures are logged, never returned.
type Service struct {
	repo        repository.Repository
	table       string
	runID       string
	clock       Clock
	callTimeout time.Duration
	emitter     telemetry.EventEmitter
	instruments *telotel.Instruments
	tracer      trace.Tracer
}

// NewService returns a Service writing pings through repo.
func NewService(repo repository.Repository, opts Options) *Service {
	s := &Service{
		repo:        repo,
		table:       opts.Table,
		runID:       opts.RunID,
		clock:       opts.Clock,
		callTimeout: opts.CallTimeout,
		emitter:     opts.Emitter,
		instruments: opts.Instruments,
		tracer:      opts.Tracer,
	}
	if s.table == "" {
		s.table = domain.DefaultTable
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("supabase-keepalive/service")
	}
	return s
}

// Ping inserts one row stamped with the current time. It returns true when the database
// reported the inserted row back, false on an empty result or any error.
func (s *Service) Ping(ctx context.Context) bool {
	now := s.clock().UTC()
	ctx, span := s.tracer.Start(ctx, "keepalive.ping", trace.WithAttributes(
		attribute.String("db.collection.name", s.table),
	))
	defer span.End()

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	rows, err := s.repo.Insert(callCtx, now)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		kind := errorKind(err)
		log.Printf("keepalive: error during keepalive ping (%s): %v", kind, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		s.instruments.RecordPing(ctx, telotel.OutcomeError, string(kind), elapsed)
		s.emit(ctx, &teldomain.Event{EventType: teldomain.EventPingFailed, ErrorKind: string(kind), Error: err.Error()})
		return false
	case len(rows) == 0:
		log.Printf("keepalive: failed to insert keepalive ping")
		span.SetStatus(codes.Error, "no rows returned")
		s.instruments.RecordPing(ctx, telotel.OutcomeNoData, "", elapsed)
		s.emit(ctx, &teldomain.Event{EventType: teldomain.EventPingFailed, Error: "no rows returned"})
		return false
	}

	log.Printf("keepalive: keepalive ping successful at %s", now.Format(time.RFC3339Nano))
	span.SetAttributes(attribute.Int("db.response.returned_rows", len(rows)))
	s.instruments.RecordPing(ctx, telotel.OutcomeSuccess, "", elapsed)
	s.emit(ctx, &teldomain.Event{EventType: teldomain.EventPingSucceeded, Rows: int64(len(rows))})
	return true
}

// Cleanup deletes rows older than daysToKeep days, measured by the database clock.
// Errors are logged and swallowed; stale rows simply wait for the next sweep.
func (s *Service) Cleanup(ctx context.Context, daysToKeep int) {
	if daysToKeep <= 0 {
		daysToKeep = DefaultDaysToKeep
	}
	ctx, span := s.tracer.Start(ctx, "keepalive.cleanup", trace.WithAttributes(
		attribute.String("db.collection.name", s.table),
		attribute.Int("keepalive.days_to_keep", daysToKeep),
	))
	defer span.End()

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	deleted, err := s.repo.DeleteOlderThan(callCtx, daysToKeep)
	if err != nil {
		kind := errorKind(err)
		log.Printf("keepalive: error during cleanup (%s): %v", kind, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		s.instruments.RecordCleanup(ctx, telotel.OutcomeError, string(kind), 0)
		s.emit(ctx, &teldomain.Event{EventType: teldomain.EventCleanupFailed, DaysToKeep: daysToKeep, ErrorKind: string(kind), Error: err.Error()})
		return
	}

	log.Printf("keepalive: cleaned up %d old ping records (keeping last %d days)", deleted, daysToKeep)
	span.SetAttributes(attribute.Int64("keepalive.deleted_rows", deleted))
	s.instruments.RecordCleanup(ctx, telotel.OutcomeSuccess, "", deleted)
	s.emit(ctx, &teldomain.Event{EventType: teldomain.EventCleanupSucceeded, DaysToKeep: daysToKeep, Rows: deleted})
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout > 0 {
		return context.WithTimeout(ctx, s.callTimeout)
	}
	return ctx, func() {}
}

// emit fills the common event fields and hands the event to the emitter asynchronously.
func (s *Service) emit(ctx context.Context, event *teldomain.Event) {
	if s.emitter == nil {
		return
	}
	event.ID = uuid.New().String()
	event.RunID = s.runID
	event.Table = s.table
	event.PingNumber = pingNumberFrom(ctx)
	event.CreatedAt = s.clock().UTC()
	telemetry.EmitAsync(s.emitter, ctx, event)
}

func errorKind(err error) domain.ErrorKind {
	var remote *domain.RemoteError
	if errors.As(err, &remote) {
		return remote.Kind
	}
	return repository.Classify(err)
}

type pingNumberKey struct{}

// WithPingNumber returns ctx carrying the ping's ordinal, which is copied onto emitted events.
func WithPingNumber(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, pingNumberKey{}, n)
}

func pingNumberFrom(ctx context.Context) int {
	n, _ := ctx.Value(pingNumberKey{}).(int)
	return n
}
