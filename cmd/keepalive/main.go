// keepalive pings the Supabase database on a fixed interval so the project is never paused for inactivity.
// Set DATABASE_URL (and optionally DATABASE_PASSWORD); see internal/config for the remaining keys.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"supabase-keepalive/internal/config"
	"supabase-keepalive/internal/db"
	healthhandler "supabase-keepalive/internal/health/handler"
	"supabase-keepalive/internal/keepalive/repository"
	"supabase-keepalive/internal/keepalive/scheduler"
	"supabase-keepalive/internal/keepalive/service"
	"supabase-keepalive/internal/server"
	"supabase-keepalive/internal/telemetry"
	telotel "supabase-keepalive/internal/telemetry/otel"
	"supabase-keepalive/internal/telemetry/producer"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.Printf("keepalive: %v", err)
		return 1
	}

	runID := uuid.New().String()

	otelProviders, err := telotel.NewProviders(context.Background(), cfg.OTLPEndpoint, cfg.ServiceName, runID, cfg.OTLPInsecure)
	if err != nil {
		log.Printf("otel: %v", err)
		return 1
	}
	otelProviders.SetGlobal()

	instruments, err := telotel.NewInstruments(otelProviders.MeterProvider)
	if err != nil {
		log.Printf("otel: instruments: %v", err)
		return 1
	}

	emitters := []telemetry.EventEmitter{telotel.NewEventEmitter(otelProviders.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic)
	if err != nil {
		log.Printf("telemetry: kafka producer: %v", err)
		return 1
	}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		log.Printf("telemetry: keepalive events also go to Kafka topic %s", cfg.KafkaTopic)
	}

	database, err := db.OpenWithPassword(cfg.DatabaseURL, cfg.DatabasePassword)
	if err != nil {
		log.Printf("keepalive: failed to create database client: %v", err)
		return 1
	}
	defer database.Close()
	log.Println("keepalive: database client created")

	repo := repository.NewPostgresRepository(database, cfg.Table)
	svc := service.NewService(repo, service.Options{
		Table:       cfg.Table,
		RunID:       runID,
		CallTimeout: cfg.DBCallTimeout(),
		Emitter:     telemetry.Fanout(emitters...),
		Instruments: instruments,
	})

	var opts []scheduler.Option
	var healthServer *server.Running
	if cfg.HealthAddr != "" {
		health := healthhandler.NewServer()
		healthServer, err = server.Start(cfg.HealthAddr, server.Deps{Health: health})
		if err != nil {
			log.Printf("keepalive: health listen: %v", err)
			return 1
		}
		opts = append(opts, scheduler.WithObserver(health))
	}

	interval := cfg.PingInterval()
	sched := scheduler.New(svc, scheduler.Config{
		Interval:      interval,
		CleanupEvery:  cfg.CleanupEvery,
		RetentionDays: cfg.RetentionDays,
	}, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("keepalive: starting keepalive (ping every %s)", interval)
	runErr := sched.Run(ctx)

	code := 0
	switch {
	case runErr == nil:
		log.Println("keepalive: keepalive stopped by user")
	case errors.Is(runErr, scheduler.ErrInitialPingFailed):
		log.Printf("keepalive: %v", runErr)
		code = 1
	default:
		log.Printf("keepalive: unexpected error: %v", runErr)
		code = 1
	}

	healthServer.Stop()

	// Let in-flight async emits finish before the exporters and the Kafka writer go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := otelProviders.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("telemetry: kafka producer close: %v", err)
		}
	}
	return code
}
