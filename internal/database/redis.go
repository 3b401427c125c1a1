package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"docchain/internal/config"
)

// NewRedis creates the shared Redis client used by the snapshot cache and health checks.
// Unlike Postgres, an unreachable Redis is not fatal: the cache degrades to misses.
func NewRedis(ctx context.Context, c config.RedisConfig) (*redis.Client, error) {
	if c.Host == "" || c.Port == "" {
		return nil, fmt.Errorf("invalid redis config: host and port are required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr(),
		Password: c.Password,
		DB:       c.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return client, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
