package kv

import (
	"context"
	"errors"
	"time"

	"arty-web/internal/platform/cache"
)

const redisNamespace = "session"

// RedisStore keeps each session as one Redis hash with a sliding TTL
type RedisStore struct {
	client *cache.RedisClient
	ttl    time.Duration
}

func NewRedisStore(client *cache.RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get reads one key and pushes the whole session's expiry forward
func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, error) {
	hash := cache.Key(redisNamespace, sessionID)
	v, err := s.client.HGet(ctx, hash, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, hash, s.ttl); err != nil {
			return "", err
		}
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key, value string) error {
	return s.client.HSet(ctx, cache.Key(redisNamespace, sessionID), key, value, s.ttl)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.HDel(ctx, cache.Key(redisNamespace, sessionID), keys...)
}
