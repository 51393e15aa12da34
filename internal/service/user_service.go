package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Balorum/PhotoShare/internal/domain"
	"github.com/Balorum/PhotoShare/internal/events"
	"github.com/Balorum/PhotoShare/internal/repository"
	"github.com/Balorum/PhotoShare/pkg/logger"
	"github.com/Balorum/PhotoShare/pkg/telemetry"
)

// UserService holds the administrative user operations
type UserService interface {
	// Me returns the authenticated principal
	Me(user *domain.User) *domain.User
	// ChangeRole sets the role of the user with the given email
	ChangeRole(ctx context.Context, email string, role domain.Role) (*domain.User, error)
	// Ban deactivates the user with the given email
	Ban(ctx context.Context, email string) (*domain.User, error)
	// Unban reactivates the user with the given email
	Unban(ctx context.Context, email string) (*domain.User, error)
	// Delete removes the user with the given ID. Tokens already issued to
	// the user stop resolving once the row is gone.
	Delete(ctx context.Context, userID int64) error
}

type userService struct {
	userRepo  repository.UserRepository
	publisher events.Publisher
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, publisher events.Publisher) UserService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &userService{userRepo: userRepo, publisher: publisher}
}

func (s *userService) Me(user *domain.User) *domain.User {
	return user
}

func (s *userService) find(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) ChangeRole(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.change_role")
	defer span.End()

	user, err := s.find(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, ErrRoleUnchanged
	}

	if err := s.userRepo.UpdateRole(ctx, user.ID, role); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	user.Role = role

	evt := events.NewUserEvent(events.EventRoleChanged, user.ID, user.Email)
	evt.Role = string(role)
	s.publish(ctx, evt)
	return user, nil
}

func (s *userService) Ban(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.ban")
	defer span.End()

	user, err := s.find(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAlreadyBanned
	}

	if err := s.userRepo.SetActive(ctx, user.ID, false); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	user.IsActive = false
	user.RefreshToken = nil

	s.publish(ctx, events.NewUserEvent(events.EventUserBanned, user.ID, user.Email))
	return user, nil
}

func (s *userService) Unban(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.unban")
	defer span.End()

	user, err := s.find(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.IsActive {
		return nil, ErrAlreadyActive
	}

	if err := s.userRepo.SetActive(ctx, user.ID, true); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	user.IsActive = true

	s.publish(ctx, events.NewUserEvent(events.EventUserUnbanned, user.ID, user.Email))
	return user, nil
}

func (s *userService) Delete(ctx context.Context, userID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "service.user.delete")
	defer span.End()

	user, err := s.userRepo.Delete(ctx, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	s.publish(ctx, events.NewUserEvent(events.EventUserDeleted, user.ID, user.Email))
	return nil
}

func (s *userService) publish(ctx context.Context, evt *events.UserEvent) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		logger.Get().Warn("Failed to publish user event",
			zap.String("event_type", string(evt.EventType)),
			zap.Error(err),
		)
	}
}
