package store

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/rajasatyajit/EcoScan/config"
	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
)

// RedisStore implements BlobStore on Redis strings under a key prefix
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opt.DB = cfg.DB
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w: %w", apperrors.ErrStoreUnavailable, err)
	}

	return NewRedisStoreFromClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Name() string { return config.BackendRedis }

func (s *RedisStore) Load(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}

	vals, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w: %w", apperrors.ErrStoreUnavailable, err)
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[keys[i]] = []byte(str)
		}
	}
	return out, nil
}

// Save writes every blob inside MULTI/EXEC
func (s *RedisStore) Save(ctx context.Context, blobs map[string][]byte) error {
	if len(blobs) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range sortedKeys(blobs) {
			pipe.Set(ctx, s.prefix+k, blobs[k], 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis exec: %w: %w", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w: %w", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
