// Package config builds runtime configuration from the environment so
// main stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures every knob the server reads at startup.
type Config struct {
	Addr          string        `env:"LEDGER_ADDR" envDefault:":4000"`
	PostgresDSN   string        `env:"LEDGER_POSTGRES_DSN"`
	RedisURL      string        `env:"LEDGER_REDIS_URL"`
	JWTSigningKey string        `env:"LEDGER_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	LogLevel      string        `env:"LEDGER_LOG_LEVEL" envDefault:"info"`
	FICallTimeout time.Duration `env:"LEDGER_FI_CALL_TIMEOUT" envDefault:"5s"`

	// Notify* shape the outbound notification dispatcher.
	NotifyAttempts int           `env:"LEDGER_NOTIFY_ATTEMPTS" envDefault:"3"`
	NotifyBackoff  time.Duration `env:"LEDGER_NOTIFY_BACKOFF" envDefault:"200ms"`
	NotifyBuffer   int           `env:"LEDGER_NOTIFY_BUFFER" envDefault:"256"`

	ShutdownTimeout time.Duration `env:"LEDGER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// FromEnv parses the configuration from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
