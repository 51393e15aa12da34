package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Balorum/PhotoShare/internal/domain"
	"github.com/Balorum/PhotoShare/internal/token"
)

func TestTokenService_AccessTokenResolvesToSubject(t *testing.T) {
	f := newFixture(t, nil)
	user := f.activeUser(t, "alice@example.com", domain.RoleUser)

	raw, err := f.tokens.IssueAccessToken(user)
	require.NoError(t, err)

	principal, err := f.tokens.ResolvePrincipal(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", principal.Email)
	assert.Equal(t, user.ID, principal.ID)
}

func TestNewTokenService_LeavesCallerConfigUntouched(t *testing.T) {
	f := newFixture(t, nil)
	user := f.activeUser(t, "alice@example.com", domain.RoleUser)

	shared := &TokenServiceConfig{RefreshTokenTTL: time.Hour}
	tokens := NewTokenService(f.codec, f.users, f.store, shared)
	assert.Equal(t, TokenServiceConfig{RefreshTokenTTL: time.Hour}, *shared)

	raw, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)
	claims, err := f.codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt))

	// later edits to the caller's struct do not leak into a built service
	shared.AccessTokenTTL = time.Minute
	raw, err = tokens.IssueAccessToken(user)
	require.NoError(t, err)
	claims, err = f.codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt))
}

func TestTokenService_TokensAreUnique(t *testing.T) {
	f := newFixture(t, nil)
	user := f.activeUser(t, "alice@example.com", domain.RoleUser)

	a, err := f.tokens.IssueAccessToken(user)
	require.NoError(t, err)
	b, err := f.tokens.IssueAccessToken(user)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestTokenService_UnusableUser(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.tokens.IssueAccessToken(nil)
	assert.ErrorIs(t, err, ErrUnusableUser)

	_, err = f.tokens.IssueEmailToken(&domain.User{})
	assert.ErrorIs(t, err, ErrUnusableUser)

	_, err = f.tokens.IssueRefreshToken(context.Background(), &domain.User{})
	assert.ErrorIs(t, err, ErrUnusableUser)
}

func TestTokenService_ExpiredTokenIsInvalid(t *testing.T) {
	f := newFixture(t, nil)
	user := f.activeUser(t, "alice@example.com", domain.RoleUser)

	raw, err := f.tokens.IssueAccessToken(user)
	require.NoError(t, err)

	f.clock.Advance(15*time.Minute + time.Second)
	_, err = f.tokens.ResolvePrincipal(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	var de *token.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, token.ReasonExpired, de.Reason)
}

func TestTokenService_ExpiredForgedTokenIsInvalid(t *testing.T) {
	f := newFixture(t, nil)
	forger, err := token.NewCodec("attacker-secret", "HS256", f.clock.Now)
	require.NoError(t, err)

	raw, err := forger.Encode(domain.Claims{
		Subject:   "alice@example.com",
		Scope:     domain.ScopeAccess,
		IssuedAt:  f.clock.Now().Add(-time.Hour),
		ExpiresAt: f.clock.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	_, err = f.tokens.ResolvePrincipal(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_ScopeMismatch(t *testing.T) {
	f := newFixture(t, nil)
	user := f.activeUser(t, "alice@example.com", domain.RoleUser)
	ctx := context.Background()

	refresh, err := f.tokens.IssueRefreshToken(ctx, user)
	require.NoError(t, err)
	_, err = f.tokens.ResolvePrincipal(ctx, refresh)
	assert.ErrorIs(t, err, ErrWrongScope)

	access, err := f.tokens.IssueAccessToken(user)
	require.NoError(t, err)
	_, err = f.tokens.RedeemRefreshToken(access)
	assert.ErrorIs(t, err, ErrWrongScope)
	_, err = f.tokens.RedeemEmailToken(access)
	assert.ErrorIs(t, err, ErrWrongScope)

	email, err := f.tokens.IssueEmailToken(user)
	require.NoError(t, err)
	_, err = f.tokens.ResolvePrincipal(ctx, email)
	assert.ErrorIs(t, err, ErrWrongScope)
}

func TestTokenService_RedeemGarbage(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.tokens.RedeemRefreshToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = f.tokens.RedeemEmailToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_IssueRefreshTokenStoresDigest(t *testing.T) {
	f := newFixture(t, nil)
	user := f.activeUser(t, "alice@example.com", domain.RoleUser)

	raw, err := f.tokens.IssueRefreshToken(context.Background(), user)
	require.NoError(t, err)

	stored, err := f.users.GetByEmail(context.Background(), user.Email)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, token.Digest(raw), *stored.RefreshToken)
	assert.NotEqual(t, raw, *stored.RefreshToken)

	email, err := f.tokens.RedeemRefreshToken(raw)
	require.NoError(t, err)
	assert.Equal(t, user.Email, email)
}

func TestTokenService_UnknownSubject(t *testing.T) {
	f := newFixture(t, nil)

	raw, err := f.tokens.IssueAccessToken(&domain.User{Email: "ghost@example.com"})
	require.NoError(t, err)

	_, err = f.tokens.ResolvePrincipal(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_BannedAfterIssuance(t *testing.T) {
	f := newFixture(t, nil)
	user := f.activeUser(t, "alice@example.com", domain.RoleUser)
	ctx := context.Background()

	raw, err := f.tokens.IssueAccessToken(user)
	require.NoError(t, err)

	require.NoError(t, f.users.SetActive(ctx, user.ID, false))

	_, err = f.tokens.ResolvePrincipal(ctx, raw)
	assert.ErrorIs(t, err, ErrBanned)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RevokedToken(t *testing.T) {
	f := newFixture(t, nil)
	user := f.activeUser(t, "alice@example.com", domain.RoleUser)
	ctx := context.Background()

	raw, err := f.tokens.IssueAccessToken(user)
	require.NoError(t, err)
	require.NoError(t, f.tokens.Revoke(ctx, raw))

	_, err = f.tokens.ResolvePrincipal(ctx, raw)
	assert.ErrorIs(t, err, ErrRevoked)

	// Other sessions of the same user stay valid
	other, err := f.tokens.IssueAccessToken(user)
	require.NoError(t, err)
	_, err = f.tokens.ResolvePrincipal(ctx, other)
	assert.NoError(t, err)
}

func TestTokenService_RevocationBackendFailureIsNotAPass(t *testing.T) {
	f := newFixture(t, nil)
	user := f.activeUser(t, "alice@example.com", domain.RoleUser)

	repo := &mockRevocationRepository{}
	repo.On("Exists", mock.Anything, mock.AnythingOfType("string")).Return(false, errors.New("redis: connection refused"))
	tokens := NewTokenService(f.codec, f.users, NewRevocationStore(repo, f.codec, time.Minute), nil)

	raw, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)

	principal, err := tokens.ResolvePrincipal(context.Background(), raw)
	require.Error(t, err)
	assert.Nil(t, principal)

	var authErr *AuthError
	assert.False(t, errors.As(err, &authErr), "infrastructure failures must not look like auth failures")
	repo.AssertExpectations(t)
}

func TestNewTokenService_Defaults(t *testing.T) {
	f := newFixture(t, nil)
	svc := NewTokenService(f.codec, f.users, f.store, nil).(*tokenService)

	assert.Equal(t, 15*time.Minute, svc.config.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, svc.config.RefreshTokenTTL)
	assert.Equal(t, 24*time.Hour, svc.config.EmailTokenTTL)
}
