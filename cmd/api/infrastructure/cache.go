package infrastructure

import (
	"context"

	"user-onboarding-service/internal/config"
	redisclient "user-onboarding-service/pkg/redis"

	"go.uber.org/zap"
)

// NewRedisClient connects to the Redis instance described by cfg.
func NewRedisClient(ctx context.Context, cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	return redisclient.NewClient(ctx, redisclient.Config{
		Addr:        cfg.Redis.Addr(),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
	}, l)
}
