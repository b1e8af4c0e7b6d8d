package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps values in one hash per profile so several dashboards can
// share a sign-in. Concurrent refreshes from different processes are not
// coordinated; the last writer wins.
type RedisStore struct {
	cli *redis.Client
	key string
}

// NewRedisStore connects to url and verifies the connection with PING.
func NewRedisStore(ctx context.Context, url, profile string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{cli: cli, key: hashKey(profile)}, nil
}

func hashKey(profile string) string {
	if profile == "" {
		profile = "default"
	}
	return "callwave:session:" + profile
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.cli.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session.RedisStore: hget %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.cli.HSet(ctx, s.key, key, value).Err(); err != nil {
		return fmt.Errorf("session.RedisStore: hset %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.cli.HDel(ctx, s.key, keys...).Err(); err != nil {
		return fmt.Errorf("session.RedisStore: hdel: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.cli.Close()
}
