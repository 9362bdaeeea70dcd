// file: db/redis.go

package db

import (
	"context"
	"fmt"
	"time"

	"task-manager-api/config"
	"task-manager-api/logger"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis initializes a Redis client and pings it.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	redisAddr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		logger.Log.WithError(err).Error("Failed to ping Redis")
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Log.WithField("address", redisAddr).Info("Redis connection established successfully")
	return rdb, nil
}
