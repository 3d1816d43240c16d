package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL     string        `env:"DATABASE_URL,required,notEmpty"`
	AppHost         string        `env:"APP_HOST" envDefault:":4000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Debug           bool          `env:"APP_DEBUG" envDefault:"false"`
	ConnectAttempts int           `env:"DB_CONNECT_ATTEMPTS" envDefault:"10"`
	ConnectBackoff  time.Duration `env:"DB_CONNECT_BACKOFF" envDefault:"2s"`
	SeedFile        string        `env:"SEED_FILE"`
}

// Load reads an optional .env file, which never overrides variables already
// set in the environment, and parses the result.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.ConnectAttempts < 1 {
		return nil, fmt.Errorf("DB_CONNECT_ATTEMPTS must be at least 1, got %d", cfg.ConnectAttempts)
	}
	if cfg.ConnectBackoff < 0 {
		return nil, fmt.Errorf("DB_CONNECT_BACKOFF must not be negative, got %s", cfg.ConnectBackoff)
	}
	return &cfg, nil
}
