package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const limiterKeyPrefix = "natours:ratelimit:"

// RedisLimiterStorage implements fiber.Storage so rate-limit counters are
// shared between instances.
type RedisLimiterStorage struct {
	client *redis.Client
}

// NewRedisLimiterStorage connects to the Redis instance at url.
func NewRedisLimiterStorage(ctx context.Context, url string) (*RedisLimiterStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return &RedisLimiterStorage{client: client}, nil
}

func (s *RedisLimiterStorage) Get(key string) ([]byte, error) {
	val, err := s.client.Get(context.Background(), limiterKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (s *RedisLimiterStorage) Set(key string, val []byte, exp time.Duration) error {
	if len(key) == 0 || len(val) == 0 {
		return nil
	}
	return s.client.Set(context.Background(), limiterKeyPrefix+key, val, exp).Err()
}

func (s *RedisLimiterStorage) Delete(key string) error {
	return s.client.Del(context.Background(), limiterKeyPrefix+key).Err()
}

// Reset removes every limiter key.
func (s *RedisLimiterStorage) Reset() error {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, limiterKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *RedisLimiterStorage) Close() error {
	return s.client.Close()
}
