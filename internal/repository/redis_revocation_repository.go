package repository

import (
	"context"
	"time"

	"github.com/Balorum/PhotoShare/internal/domain"
	pkgredis "github.com/Balorum/PhotoShare/pkg/redis"
)

const revokedKeyPrefix = "revoked:"

// RedisRevocationRepository stores revoked tokens as expiring Redis keys
type RedisRevocationRepository struct {
	client *pkgredis.Client
	now    func() time.Time
}

// NewRedisRevocationRepository creates a new RedisRevocationRepository
func NewRedisRevocationRepository(client *pkgredis.Client) *RedisRevocationRepository {
	return &RedisRevocationRepository{client: client, now: time.Now}
}

// Add records a revoked token with a TTL matching the token's remaining lifetime
func (r *RedisRevocationRepository) Add(ctx context.Context, entry *domain.RevokedToken) error {
	ttl := entry.ExpiresAt.Sub(r.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	// SETNX keeps the first TTL on double revocation
	return r.client.SetNX(ctx, revokedKeyPrefix+entry.TokenHash, entry.Email, ttl).Err()
}

// Exists reports whether the token hash is revoked
func (r *RedisRevocationRepository) Exists(ctx context.Context, tokenHash string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenHash).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
