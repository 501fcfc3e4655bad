package otp

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates a new Redis client
func NewRedis(addr, password string) *redis.Client {
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	log.Printf("Redis client created (addr: %s)\n", addr)
	return rdb
}

// RedisStore keeps one code hash per phone under otp:<phone>. SET
// overwrites, so re-issuing replaces the previous code, and the TTL is
// the expiry policy.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func key(phone string) string { return "otp:" + phone }

func (s *RedisStore) Set(ctx context.Context, phone, hash string, ttl time.Duration) error {
	return s.Client.Set(ctx, key(phone), hash, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, phone string) (string, error) {
	v, err := s.Client.Get(ctx, key(phone)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *RedisStore) Del(ctx context.Context, phone string) error {
	return s.Client.Del(ctx, key(phone)).Err()
}
