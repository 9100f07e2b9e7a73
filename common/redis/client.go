package redis

import (
	"context"

	"github.com/Phaeld/fiap-enterprise-challenge/common/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient creates a client from config.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
