package redis

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/redis/go-redis/v9"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
)

const revokedKeyPrefix = "revoked:"

// TokenRevoker remembers logged-out tokens until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type redisRevoker struct {
	client *redis.Client
}

// NewRevoker stores revoked tokens in Redis.
func NewRevoker(client *redis.Client) TokenRevoker {
	return &redisRevoker{client: client}
}

func (r *redisRevoker) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKeyPrefix+token, "1", ttl).Err(); err != nil {
		logger.Error("Failed to revoke token", err)
		return err
	}
	logger.Debug("Token revoked", map[string]interface{}{
		"ttl": ttl.String(),
	})
	return nil
}

func (r *redisRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	_, err := r.client.Get(ctx, revokedKeyPrefix+token).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check revoked token", err)
		return false, err
	}
	return true, nil
}

type memoryRevoker struct {
	cache *ttlcache.Cache[string, struct{}]
}

// NewMemoryRevoker keeps revoked tokens in process memory.
// Used when Redis is disabled; revocations do not survive a restart.
func NewMemoryRevoker() TokenRevoker {
	cache := ttlcache.New[string, struct{}](
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go cache.Start()
	return &memoryRevoker{cache: cache}
}

func (m *memoryRevoker) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.cache.Set(token, struct{}{}, ttl)
	return nil
}

func (m *memoryRevoker) IsRevoked(_ context.Context, token string) (bool, error) {
	return m.cache.Has(token), nil
}
