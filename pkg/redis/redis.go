package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yorunoba/nightdesk-backend/config"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

func options(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Connect opens a client for the revocation store and pings it. The caller
// owns the client and closes it on shutdown.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	opts := options(cfg)
	c := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	logger.Info("Revocation store connected", map[string]interface{}{
		"addr": opts.Addr,
		"db":   opts.DB,
	})
	return c, nil
}
