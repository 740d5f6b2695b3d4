package users

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

const redisUsersKey = "users"

// RedisStore keeps every user as a field of one Redis hash.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects using a redis:// URL, e.g. redis://:secret@localhost:6379/0.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

func (r *RedisStore) GetHash(ctx context.Context, username string) (string, error) {
	hash, err := r.rdb.HGet(ctx, redisUsersKey, username).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return hash, nil
}

func (r *RedisStore) Insert(ctx context.Context, username, hash string) error {
	created, err := r.rdb.HSetNX(ctx, redisUsersKey, username, hash).Result()
	if err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	if !created {
		return ErrDuplicate
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, username string) error {
	removed, err := r.rdb.HDel(ctx, redisUsersKey, username).Result()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	names, err := r.rdb.HKeys(ctx, redisUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
