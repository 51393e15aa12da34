package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Balorum/PhotoShare/internal/domain"
	"github.com/Balorum/PhotoShare/internal/repository"
	"github.com/Balorum/PhotoShare/internal/token"
	"github.com/Balorum/PhotoShare/pkg/telemetry"
)

// TokenServiceConfig holds configuration for TokenService
type TokenServiceConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	EmailTokenTTL   time.Duration
}

// TokenService issues tokens and resolves them to principals
type TokenService interface {
	// IssueAccessToken signs a short-lived access token for user
	IssueAccessToken(user *domain.User) (string, error)
	// IssueRefreshToken signs a refresh token and stores its digest on the user
	IssueRefreshToken(ctx context.Context, user *domain.User) (string, error)
	// IssueEmailToken signs an email verification token
	IssueEmailToken(user *domain.User) (string, error)
	// RedeemRefreshToken returns the subject of a valid refresh token
	RedeemRefreshToken(raw string) (string, error)
	// RedeemEmailToken returns the subject of a valid email verification token
	RedeemEmailToken(raw string) (string, error)
	// ResolvePrincipal authenticates an access token
	ResolvePrincipal(ctx context.Context, raw string) (*domain.User, error)
	// Revoke invalidates an access token until it expires
	Revoke(ctx context.Context, raw string) error
}

type tokenService struct {
	codec   *token.Codec
	users   repository.UserRepository
	revoked *RevocationStore
	config  *TokenServiceConfig
}

// NewTokenService creates a new TokenService
func NewTokenService(
	codec *token.Codec,
	users repository.UserRepository,
	revoked *RevocationStore,
	config *TokenServiceConfig,
) TokenService {
	var cfg TokenServiceConfig
	if config != nil {
		cfg = *config
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.EmailTokenTTL == 0 {
		cfg.EmailTokenTTL = 24 * time.Hour
	}
	return &tokenService{
		codec:   codec,
		users:   users,
		revoked: revoked,
		config:  &cfg,
	}
}

func (s *tokenService) issue(user *domain.User, scope domain.Scope, ttl time.Duration) (string, error) {
	if user == nil || user.Email == "" {
		return "", ErrUnusableUser
	}
	now := s.codec.Now()
	return s.codec.Encode(domain.Claims{
		ID:        uuid.NewString(),
		Subject:   user.Email,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
}

// IssueAccessToken signs an access token
func (s *tokenService) IssueAccessToken(user *domain.User) (string, error) {
	return s.issue(user, domain.ScopeAccess, s.config.AccessTokenTTL)
}

// IssueRefreshToken signs a refresh token, replacing the stored digest
func (s *tokenService) IssueRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	raw, err := s.issue(user, domain.ScopeRefresh, s.config.RefreshTokenTTL)
	if err != nil {
		return "", err
	}

	digest := token.Digest(raw)
	if err := s.users.UpdateRefreshToken(ctx, user.ID, &digest); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	user.RefreshToken = &digest
	return raw, nil
}

// IssueEmailToken signs an email verification token
func (s *tokenService) IssueEmailToken(user *domain.User) (string, error) {
	return s.issue(user, domain.ScopeEmail, s.config.EmailTokenTTL)
}

func (s *tokenService) redeem(raw string, scope domain.Scope) (string, error) {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		return "", authError(CodeInvalidToken, err)
	}
	if claims.Scope != scope {
		return "", ErrWrongScope
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// RedeemRefreshToken validates a refresh token
func (s *tokenService) RedeemRefreshToken(raw string) (string, error) {
	return s.redeem(raw, domain.ScopeRefresh)
}

// RedeemEmailToken validates an email verification token
func (s *tokenService) RedeemEmailToken(raw string) (string, error) {
	return s.redeem(raw, domain.ScopeEmail)
}

// ResolvePrincipal decodes raw, checks scope and revocation, then loads the user
func (s *tokenService) ResolvePrincipal(ctx context.Context, raw string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.token.resolve_principal")
	defer span.End()

	email, err := s.redeem(raw, domain.ScopeAccess)
	if err != nil {
		span.SetAttributes(attribute.String("auth.rejected", "decode"))
		return nil, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, raw)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrBanned
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID), attribute.String("user.role", string(user.Role)))
	return user, nil
}

// Revoke records raw in the revocation store
func (s *tokenService) Revoke(ctx context.Context, raw string) error {
	return s.revoked.Revoke(ctx, raw)
}
