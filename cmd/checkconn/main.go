// checkconn verifies the database connection and keepalive table by inserting one ping and reading recent pings back.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"supabase-keepalive/internal/config"
	"supabase-keepalive/internal/db"
	"supabase-keepalive/internal/keepalive/repository"
	"supabase-keepalive/internal/keepalive/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal(err)
	}
	if !check(cfg) {
		os.Exit(1)
	}
}

func check(cfg *config.Config) bool {
	database, err := db.OpenWithPassword(cfg.DatabaseURL, cfg.DatabasePassword)
	if err != nil {
		log.Printf("checkconn: %v", err)
		return false
	}
	defer database.Close()

	svc := service.NewService(repository.NewPostgresRepository(database, cfg.Table), service.Options{
		Table:       cfg.Table,
		CallTimeout: cfg.DBCallTimeout(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return svc.CheckConnection(ctx, os.Stdout)
}
