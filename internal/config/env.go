// Package config defines environment configuration structs and loaders.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
)

type AppConfig struct {
	Environment string `env:"ENVIRONMENT, default=dev"`

	NormalizerEnvConfig
	ServerEnvConfig
	ClientEnvConfig
	RedisEnvConfig
}

// NormalizerEnvConfig holds the defaults used when a request or command does
// not choose its own.
type NormalizerEnvConfig struct {
	MissingPolicy string `env:"QNORM_MISSING_POLICY, default=error"`
	Workers       int    `env:"QNORM_WORKERS, default=0"`
}

// ServerEnvConfig configures the HTTP server.
type ServerEnvConfig struct {
	Host      string `env:"SERVER_HOST, default=0.0.0.0"`
	Port      int    `env:"SERVER_PORT, default=8888"`
	BodyLimit int    `env:"SERVER_BODY_LIMIT, default=16777216"`
}

// ClientEnvConfig configures the HTTP client.
type ClientEnvConfig struct {
	ServerURL     string        `env:"QNORM_SERVER_URL, default=http://127.0.0.1:8888"`
	ClientTimeout time.Duration `env:"CLIENT_TIMEOUT, default=30s"`
	RetryMax      int           `env:"CLIENT_RETRY_MAX, default=3"`
}

// RedisEnvConfig configures the optional result cache.
type RedisEnvConfig struct {
	Enabled       bool          `env:"REDIS_ENABLED, default=false"`
	RedisHost     string        `env:"REDIS_HOST, default=127.0.0.1"`
	RedisPort     int           `env:"REDIS_PORT, default=6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB, default=0"`
	CacheTTL      time.Duration `env:"REDIS_CACHE_TTL, default=1h"`
}

func (c RedisEnvConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig(ctx context.Context) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded, using process environment")
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("QNORM_WORKERS must not be negative, got %d", cfg.Workers)
	}
	cfg.MissingPolicy = strings.ToLower(strings.TrimSpace(cfg.MissingPolicy))

	return cfg, nil
}
