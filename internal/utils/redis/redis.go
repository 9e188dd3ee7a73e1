// Package redis provides a Redis client for caching normalization results
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/qnorm/internal/config"
)

const keyPrefix = "qnorm:"

type Redis struct {
	client *goredis.Client
	cfg    *config.RedisEnvConfig
}

type RedisInterface interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

func NewRedis(cfg *config.RedisEnvConfig) (*Redis, error) {
	if cfg == nil {
		return nil, errors.New("redis configuration cannot be nil")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	log.Debug().Str("addr", cfg.Addr()).Int("db", cfg.RedisDB).Msg("redis client created")

	return &Redis{
		client: client,
		cfg:    cfg,
	}, nil
}

// Get returns the cached value, or "" on a miss.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// CacheKey derives a stable key from the JSON encoding of v.
func CacheKey(v any) (string, error) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return keyPrefix + hex.EncodeToString(hash[:]), nil
}
