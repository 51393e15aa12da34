package service

import (
	"context"
	"time"

	"github.com/Balorum/PhotoShare/internal/domain"
	"github.com/Balorum/PhotoShare/internal/repository"
	"github.com/Balorum/PhotoShare/internal/token"
	"github.com/Balorum/PhotoShare/pkg/telemetry"
)

// RevocationStore tracks access tokens invalidated before their expiry.
// Entries are keyed by token digest so raw tokens are never stored.
type RevocationStore struct {
	repo     repository.RevocationRepository
	codec    *token.Codec
	fallback time.Duration
}

// NewRevocationStore creates a RevocationStore. Tokens whose expiry cannot
// be read are kept for fallbackTTL.
func NewRevocationStore(repo repository.RevocationRepository, codec *token.Codec, fallbackTTL time.Duration) *RevocationStore {
	if fallbackTTL <= 0 {
		fallbackTTL = 15 * time.Minute
	}
	return &RevocationStore{repo: repo, codec: codec, fallback: fallbackTTL}
}

// Revoke invalidates raw. Revoking twice is not an error.
func (s *RevocationStore) Revoke(ctx context.Context, raw string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.revocation.revoke")
	defer span.End()

	now := s.codec.Now()
	entry := &domain.RevokedToken{
		TokenHash: token.Digest(raw),
		RevokedAt: now,
		ExpiresAt: now.Add(s.fallback),
	}
	if claims, err := s.codec.Peek(raw); err == nil {
		entry.Email = claims.Subject
		if !claims.ExpiresAt.IsZero() {
			entry.ExpiresAt = claims.ExpiresAt.Add(token.Leeway)
		}
	}
	if entry.ExpiresAt.Sub(now) < time.Second {
		entry.ExpiresAt = now.Add(time.Second)
	}

	if err := s.repo.Add(ctx, entry); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// IsRevoked reports whether raw was revoked
func (s *RevocationStore) IsRevoked(ctx context.Context, raw string) (bool, error) {
	return s.repo.Exists(ctx, token.Digest(raw))
}
