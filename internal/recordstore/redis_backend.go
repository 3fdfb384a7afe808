// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Prefix   string // key prefix, defaults to "placecore:"
}

// RedisBackend stores records as plain Redis string keys without expiry.
type RedisBackend struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// OpenRedisBackend connects to Redis and verifies the connection.
func OpenRedisBackend(cfg RedisConfig, logger zerolog.Logger) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis record store")

	return newRedisBackend(client, cfg.Prefix, logger), nil
}

func newRedisBackend(client *redis.Client, prefix string, logger zerolog.Logger) *RedisBackend {
	if prefix == "" {
		prefix = "placecore:"
	}
	return &RedisBackend{client: client, prefix: prefix, logger: logger}
}

func (b *RedisBackend) key(name string) string { return b.prefix + name }

func (b *RedisBackend) Read(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	val, err := b.client.Get(ctx, b.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (b *RedisBackend) Write(ctx context.Context, name string, data []byte, _ WriteOptions) error {
	if err := validateName(name); err != nil {
		return err
	}
	return b.client.Set(ctx, b.key(name), data, 0).Err()
}

func (b *RedisBackend) Exists(ctx context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	n, err := b.client.Exists(ctx, b.key(name)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *RedisBackend) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return b.client.Del(ctx, b.key(name)).Err()
}

// HealthCheck checks if Redis is available.
func (b *RedisBackend) HealthCheck(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) Close() error { return b.client.Close() }

var _ Backend = (*RedisBackend)(nil)
