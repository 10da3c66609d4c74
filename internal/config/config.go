// Package config loads and validates keepalive config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN of the Supabase project (direct or pooler connection string).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DatabasePassword is the privileged access key; when set it overrides any password in DatabaseURL.
	DatabasePassword string `mapstructure:"DATABASE_PASSWORD"`

	// Table is the keepalive table name (default keepalive_pings).
	Table string `mapstructure:"KEEPALIVE_TABLE"`
	// Interval is the sleep between pings (e.g. "2h").
	Interval string `mapstructure:"KEEPALIVE_INTERVAL"`
	// CleanupEvery runs the retention sweep every N pings, counting the initial ping.
	CleanupEvery int `mapstructure:"KEEPALIVE_CLEANUP_EVERY"`
	// RetentionDays is how many days of pings the sweep keeps.
	RetentionDays int `mapstructure:"KEEPALIVE_RETENTION_DAYS"`
	// CallTimeout bounds each database call (e.g. "30s"). "0" means no timeout.
	CallTimeout string `mapstructure:"KEEPALIVE_CALL_TIMEOUT"`

	// HealthAddr is the gRPC health listen address (e.g. ":8081"). Empty disables the health server.
	HealthAddr string `mapstructure:"HEALTH_ADDR"`

	// Telemetry (optional). Empty endpoint yields no-op OTel providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS for https OTLP endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel resource service.name.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. Empty disables the Kafka event sink.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the topic keepalive events are written to.
	KafkaTopic string `mapstructure:"KEEPALIVE_KAFKA_TOPIC"`

	// Worker-only: KafkaGroupID is the consumer group of the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// Worker-only: LokiURL is where the event worker pushes keepalive events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env. Returns an error if fields are invalid.
// DATABASE_URL is not checked here; commands that need it call RequireDatabase.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_PASSWORD", "")
	v.SetDefault("KEEPALIVE_TABLE", "keepalive_pings")
	v.SetDefault("KEEPALIVE_INTERVAL", "2h")
	v.SetDefault("KEEPALIVE_CLEANUP_EVERY", 24)
	v.SetDefault("KEEPALIVE_RETENTION_DAYS", 7)
	v.SetDefault("KEEPALIVE_CALL_TIMEOUT", "0")
	v.SetDefault("HEALTH_ADDR", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "supabase-keepalive")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KEEPALIVE_KAFKA_TOPIC", "keepalive-events")
	v.SetDefault("KAFKA_GROUP_ID", "keepalive-event-worker")
	v.SetDefault("LOKI_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Table = strings.TrimSpace(cfg.Table)
	if cfg.Table == "" {
		return nil, errors.New("config: KEEPALIVE_TABLE must not be empty")
	}
	if d, err := time.ParseDuration(cfg.Interval); err != nil || d <= 0 {
		return nil, errors.New("config: KEEPALIVE_INTERVAL must be a positive duration")
	}
	if d, err := time.ParseDuration(cfg.CallTimeout); err != nil || d < 0 {
		return nil, errors.New("config: KEEPALIVE_CALL_TIMEOUT must be a non-negative duration")
	}
	if cfg.CleanupEvery < 1 {
		return nil, errors.New("config: KEEPALIVE_CLEANUP_EVERY must be at least 1")
	}
	if cfg.RetentionDays < 1 {
		return nil, errors.New("config: KEEPALIVE_RETENTION_DAYS must be at least 1")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "supabase-keepalive"
	}

	return &cfg, nil
}

// RequireDatabase returns an error when DATABASE_URL is unset.
func (c *Config) RequireDatabase() error {
	if c == nil || strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	return nil
}

// PingInterval parses Interval as a time.Duration. Returns 2h if unset or invalid.
func (c *Config) PingInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 2 * time.Hour
	}
	return d
}

// DBCallTimeout parses CallTimeout as a time.Duration. Returns 0 (no timeout) if unset or invalid.
func (c *Config) DBCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means the Kafka event sink is disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
