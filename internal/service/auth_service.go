package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Balorum/PhotoShare/internal/domain"
	"github.com/Balorum/PhotoShare/internal/dto"
	"github.com/Balorum/PhotoShare/internal/events"
	"github.com/Balorum/PhotoShare/internal/repository"
	"github.com/Balorum/PhotoShare/internal/token"
	"github.com/Balorum/PhotoShare/pkg/logger"
	"github.com/Balorum/PhotoShare/pkg/telemetry"
)

const tokenTypeBearer = "bearer"

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// AuthServiceConfig holds configuration for AuthService
type AuthServiceConfig struct {
	RequireEmailConfirmation bool
}

// AuthService defines the interface for account operations
type AuthService interface {
	// Signup registers a new user. The first user of the system becomes admin.
	Signup(ctx context.Context, req *dto.SignupRequest, baseURL string) (*domain.User, error)
	// Login authenticates a user and issues a token pair
	Login(ctx context.Context, req *dto.LoginRequest) (*domain.TokenPair, error)
	// Logout revokes the access token and forgets the refresh token
	Logout(ctx context.Context, user *domain.User, accessToken string) error
	// RefreshTokens rotates a refresh token into a new pair
	RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	// ConfirmEmail redeems an email verification token
	ConfirmEmail(ctx context.Context, emailToken string) (alreadyConfirmed bool, err error)
	// RequestEmail re-sends the verification email if the account needs one
	RequestEmail(ctx context.Context, email, baseURL string) error
}

// authService implements AuthService
type authService struct {
	userRepo  repository.UserRepository
	tokens    TokenService
	hasher    PasswordHasher
	publisher events.Publisher
	config    *AuthServiceConfig
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repository.UserRepository,
	tokens TokenService,
	hasher PasswordHasher,
	publisher events.Publisher,
	config *AuthServiceConfig,
) AuthService {
	var cfg AuthServiceConfig
	if config != nil {
		cfg = *config
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &authService{
		userRepo:  userRepo,
		tokens:    tokens,
		hasher:    hasher,
		publisher: publisher,
		config:    &cfg,
	}
}

// Signup registers a new user
func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest, baseURL string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.signup")
	defer span.End()

	span.SetAttributes(attribute.String("email", req.Email))

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if exists {
		span.SetStatus(codes.Error, "user already exists")
		return nil, ErrUserAlreadyExists
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			span.SetStatus(codes.Error, "user already exists")
			return nil, ErrUserAlreadyExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	evt := events.NewUserEvent(events.EventUserRegistered, user.ID, user.Email)
	evt.Username = user.Username
	evt.Role = string(user.Role)
	s.publish(ctx, evt)
	s.sendVerification(ctx, user, baseURL)

	span.SetAttributes(attribute.Int64("user_id", user.ID), attribute.String("role", string(user.Role)))
	span.SetStatus(codes.Ok, "")
	return user, nil
}

// Login authenticates a user
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*domain.TokenPair, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	span.SetAttributes(attribute.String("email", req.Email))

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	// Unknown email and wrong password are indistinguishable to the caller
	if user == nil || !s.hasher.Verify(req.Password, user.PasswordHash) {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, ErrInvalidCredentials
	}
	if s.config.RequireEmailConfirmation && !user.Confirmed {
		span.SetStatus(codes.Error, "email not confirmed")
		return nil, ErrEmailNotConfirmed
	}
	if !user.IsActive {
		span.SetStatus(codes.Error, "user inactive")
		return nil, ErrUserInactive
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int64("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	return pair, nil
}

// Logout revokes the presented access token and clears the refresh token
func (s *authService) Logout(ctx context.Context, user *domain.User, accessToken string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.logout")
	defer span.End()

	if err := s.tokens.Revoke(ctx, accessToken); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.Int64("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	return nil
}

// RefreshTokens exchanges the current refresh token for a new pair.
// A refresh token that is not the latest one issued is treated as stolen:
// the stored token is cleared so the whole chain must log in again.
func (s *authService) RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.refresh_tokens")
	defer span.End()

	email, err := s.tokens.RedeemRefreshToken(refreshToken)
	if err != nil {
		span.SetStatus(codes.Error, "invalid refresh token")
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "unknown subject")
		return nil, ErrInvalidToken
	}

	if user.RefreshToken == nil || *user.RefreshToken != token.Digest(refreshToken) {
		if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, nil); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		logger.Get().Warn("Refresh token replay rejected", zap.Int64("user_id", user.ID))
		span.SetStatus(codes.Error, "refresh token replay")
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		span.SetStatus(codes.Error, "user banned")
		return nil, ErrBanned
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return pair, nil
}

// ConfirmEmail marks the token subject as confirmed
func (s *authService) ConfirmEmail(ctx context.Context, emailToken string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.confirm_email")
	defer span.End()

	email, err := s.tokens.RedeemEmailToken(emailToken)
	if err != nil {
		span.SetStatus(codes.Error, "invalid email token")
		return false, err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "unknown subject")
		return false, ErrVerificationFailed
	}
	if user.Confirmed {
		return true, nil
	}

	if err := s.userRepo.SetConfirmed(ctx, user.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	user.Confirmed = true

	s.publish(ctx, events.NewUserEvent(events.EventUserConfirmed, user.ID, user.Email))
	span.SetStatus(codes.Ok, "")
	return false, nil
}

// RequestEmail always succeeds for unknown or confirmed addresses so
// callers cannot learn which accounts exist
func (s *authService) RequestEmail(ctx context.Context, email, baseURL string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.request_email")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if user != nil && !user.Confirmed {
		s.sendVerification(ctx, user, baseURL)
	}
	return nil
}

func (s *authService) issuePair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
	}, nil
}

func (s *authService) sendVerification(ctx context.Context, user *domain.User, baseURL string) {
	emailToken, err := s.tokens.IssueEmailToken(user)
	if err != nil {
		logger.Get().Error("Failed to issue email token", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}

	evt := events.NewUserEvent(events.EventVerificationRequested, user.ID, user.Email)
	evt.Username = user.Username
	evt.Token = emailToken
	evt.BaseURL = baseURL
	s.publish(ctx, evt)
}

// publish never fails the calling operation; delivery problems are logged
func (s *authService) publish(ctx context.Context, evt *events.UserEvent) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		logger.Get().Warn("Failed to publish user event",
			zap.String("event_type", string(evt.EventType)),
			zap.Int64("user_id", evt.UserID),
			zap.Error(err),
		)
	}
}
