// Package events publishes account lifecycle events for downstream consumers
// such as the mailer.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultUserEventsTopic is the topic user events are written to
const DefaultUserEventsTopic = "photoshare.user-events"

// EventType names a user lifecycle event
type EventType string

const (
	EventUserRegistered        EventType = "user.registered"
	EventVerificationRequested EventType = "user.email_verification_requested"
	EventUserConfirmed         EventType = "user.confirmed"
	EventUserBanned            EventType = "user.banned"
	EventUserUnbanned          EventType = "user.unbanned"
	EventRoleChanged           EventType = "user.role_changed"
	EventUserDeleted           EventType = "user.deleted"
)

// UserEvent is the JSON payload of a user event
type UserEvent struct {
	EventID    string    `json:"event_id"`
	EventType  EventType `json:"event_type"`
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Username   string    `json:"username,omitempty"`
	Role       string    `json:"role,omitempty"`
	Token      string    `json:"token,omitempty"` // email verification token, for the mailer
	BaseURL    string    `json:"base_url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewUserEvent fills in the event ID and timestamp
func NewUserEvent(eventType EventType, userID int64, email string) *UserEvent {
	return &UserEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		UserID:     userID,
		Email:      email,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers user events
type Publisher interface {
	Publish(ctx context.Context, event *UserEvent) error
	Close()
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *UserEvent) error { return nil }

func (NoopPublisher) Close() {}
