package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/qnorm/internal/config"
	"github.com/tensorplex-labs/qnorm/internal/normapi"
	"github.com/tensorplex-labs/qnorm/internal/quantile"
	"github.com/tensorplex-labs/qnorm/internal/utils/logger"
	"github.com/tensorplex-labs/qnorm/internal/utils/redis"
	"github.com/tensorplex-labs/qnorm/pkg/schnitz"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Environment)

	policy, err := quantile.ParseMissingPolicy(cfg.MissingPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid QNORM_MISSING_POLICY")
	}

	opts := []normapi.ServiceOption{
		normapi.WithDefaultPolicy(policy),
		normapi.WithWorkers(cfg.Workers),
	}

	if cfg.RedisEnvConfig.Enabled {
		cache, err := redis.NewRedis(&cfg.RedisEnvConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create redis client")
		}
		defer cache.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = cache.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisEnvConfig.Addr()).Msg("Redis unreachable")
		}

		log.Info().Str("addr", cfg.RedisEnvConfig.Addr()).Dur("ttl", cfg.CacheTTL).Msg("Result cache enabled")
		opts = append(opts, normapi.WithCache(cache, cfg.CacheTTL))
	}

	server := schnitz.NewServer(&schnitz.ServerConfig{
		Host:      cfg.Host,
		Port:      cfg.Port,
		BodyLimit: cfg.BodyLimit,
	})
	normapi.NewService(opts...).Register(server)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
}
