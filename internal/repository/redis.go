package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cardfraud/internal/models"
)

// RedisRepository keeps artifacts under "model:<key>", optionally expiring them.
type RedisRepository struct {
	client  redis.UniversalClient
	ttl     time.Duration
	timeout time.Duration
}

func NewRedisRepository(client redis.UniversalClient, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl, timeout: 30 * time.Second}
}

func redisKey(key string) string { return "model:" + key }

func (r *RedisRepository) Save(key string, a *models.Artifact) error {
	if err := checkKey(key); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := a.Encode(&buf); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Set(ctx, redisKey(key), buf.Bytes(), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisRepository) Load(key string) (*models.Artifact, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	blob, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return models.DecodeArtifact(bytes.NewReader(blob))
}
