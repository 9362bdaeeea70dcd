// file: service/cache.go

package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICacheClient is the subset of the Redis client the services use.
// *redis.Client satisfies it; tests supply a mock.
type ICacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const (
	usersCacheKey = "users:all"
	usersCacheTTL = 5 * time.Minute
)
