// Package config centralises configuration parsing for the signup service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures runtime configuration values for the signup service.
type Config struct {
	HTTPAddress        string        `env:"HTTP_ADDRESS" envDefault:":8080"`
	MetricsAddress     string        `env:"METRICS_ADDRESS" envDefault:":9102"` // Used by the roster consumer.
	StaticDir          string        `env:"STATIC_DIR"`
	CORSAllowedOrigin  string        `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:5173"`
	PostgresURL        string        `env:"POSTGRES_URL"` // Empty selects the in-memory catalog.
	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envSeparator:","`
	EventsTopic        string        `env:"ACTIVITY_EVENTS_TOPIC" envDefault:"activity_signups"`
	ConsumerGroupID    string        `env:"CONSUMER_GROUP_ID" envDefault:"activity-roster"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
	OutboxCapacity     int           `env:"OUTBOX_CAPACITY" envDefault:"1024"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load reads environment variables into Config, applying defaults for local dev.
// A malformed value is an error rather than a silent fallback.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EventsEnabled reports whether membership events should be shipped to Kafka.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c Config) validate() error {
	var errs []error
	if c.OutboxPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive, got %s", c.OutboxPollInterval))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", c.OutboxBatchSize))
	}
	if c.OutboxCapacity <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_CAPACITY must be positive, got %d", c.OutboxCapacity))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout))
	}
	return errors.Join(errs...)
}

// compact trims broker entries and drops empty ones left by stray commas.
func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
