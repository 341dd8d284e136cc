package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yorunoba/nightdesk-backend/config"
)

func TestOptions(t *testing.T) {
	opts := options(&config.RedisConfig{Host: "cache.internal", Port: "6380", Password: "pw", DB: 2})
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)

	assert.Equal(t, "[::1]:6379", options(&config.RedisConfig{Host: "::1", Port: "6379"}).Addr)
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := Connect(ctx, &config.RedisConfig{Host: "127.0.0.1", Port: "1"})
	assert.Error(t, err)
	assert.Nil(t, c)
}
