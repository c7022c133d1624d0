package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var errEmptyKey = errors.New("key cannot be empty")

// RedisCacheRepo holds short-lived markers, such as revalidation debounce
// keys, in Redis under a common prefix.
type RedisCacheRepo struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisCacheRepo(rdb redis.UniversalClient, prefix string) *RedisCacheRepo {
	return &RedisCacheRepo{rdb: rdb, prefix: prefix}
}

// SetIfNotExists stores value under key for ttl unless the key is already
// present, reporting whether it was stored. A ttl below one second is raised
// to one second.
func (r *RedisCacheRepo) SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}
	ok, err := r.rdb.SetNX(ctx, r.prefix+key, value, max(ttl, time.Second)).Result()
	if err != nil {
		return false, fmt.Errorf("redis set nx %s: %w", key, err)
	}
	return ok, nil
}

// Delete reports whether key was present.
func (r *RedisCacheRepo) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}
	n, err := r.rdb.Del(ctx, r.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del %s: %w", key, err)
	}
	return n == 1, nil
}
