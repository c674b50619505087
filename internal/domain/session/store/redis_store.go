// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
	"github.com/arlanhendrawinata/wagate/internal/log"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps credential material in Redis, for deployments that share
// sessions across hosts or want persistence managed outside the daemon.
type RedisStore struct {
	client *redis.Client
}

func OpenRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger := log.WithComponent("store")
	logger.Info().
		Str("backend", "redis").
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis credential store")

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client; tests use this with
// miniredis.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Load(ctx context.Context, id string) (ports.Credentials, ports.SaveFunc, error) {
	key := credPrefix + id

	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, err
	}

	var creds ports.Credentials
	if err == nil {
		creds = val
	}

	save := func(ctx context.Context, creds ports.Credentials) error {
		return s.client.Set(ctx, key, []byte(creds), 0).Err()
	}
	return creds, save, nil
}

func (s *RedisStore) PurgeAll(ctx context.Context, id string) error {
	return s.client.Del(ctx, credPrefix+id).Err()
}

func (s *RedisStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, credPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ids = append(ids, key[len(credPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

var _ ports.CredentialStore = (*RedisStore)(nil)
