package db

import (
	"context"
	"fmt"

	"OutdoorAPI/internal/logger"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates a client for addr and pings it.
func NewRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	logger.Info("redis_connected", map[string]any{"addr": addr})
	return client, nil
}
