package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Balorum/PhotoShare/internal/domain"
)

// ErrDuplicateEmail is returned by Create when the email is taken
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository defines the interface for user data access.
// Lookups return nil, nil when the user does not exist.
type UserRepository interface {
	// Create inserts user and fills in its ID. The first user of an empty
	// table is stored as admin regardless of user.Role.
	Create(ctx context.Context, user *domain.User) error
	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// ExistsByEmail checks if a user exists with the given email
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// UpdateRefreshToken stores the digest of the current refresh token, nil clears it
	UpdateRefreshToken(ctx context.Context, userID int64, digest *string) error
	// SetConfirmed marks the email as confirmed
	SetConfirmed(ctx context.Context, userID int64) error
	// UpdateRole changes the role
	UpdateRole(ctx context.Context, userID int64, role domain.Role) error
	// SetActive bans (false) or unbans (true). Banning clears the refresh token.
	SetActive(ctx context.Context, userID int64, active bool) error
	// Delete removes the user and returns it, or nil when no such user exists
	Delete(ctx context.Context, userID int64) (*domain.User, error)
}

// RevocationRepository persists revoked access tokens
type RevocationRepository interface {
	// Add records entry; adding the same token twice is a no-op
	Add(ctx context.Context, entry *domain.RevokedToken) error
	// Exists reports whether tokenHash was revoked
	Exists(ctx context.Context, tokenHash string) (bool, error)
}

// RevocationPurger removes revocation entries whose token has expired.
// Backends with native expiry do not need it.
type RevocationPurger interface {
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error)
}
