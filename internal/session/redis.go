package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	lockTTL  time.Duration
	lockWait time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, lockTTL: defaultLockTTL, lockWait: defaultLockWait}
}

func (s *RedisStore) Get(ctx context.Context, sid, slot string) ([]byte, error) {
	data, err := s.client.HGet(ctx, sessionKey(sid), slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSlot
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget failed: %w", err)
	}
	return data, nil
}

// Set writes the slot and pushes the session expiry forward.
func (s *RedisStore) Set(ctx context.Context, sid, slot string, data []byte) error {
	key := sessionKey(sid)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, slot, data)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sid, slot string) error {
	if err := s.client.HDel(ctx, sessionKey(sid), slot).Err(); err != nil {
		return fmt.Errorf("redis hdel failed: %w", err)
	}
	return nil
}

func sessionKey(sid string) string {
	return fmt.Sprintf("session:%s", sid)
}
