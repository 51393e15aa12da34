package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Balorum/PhotoShare/internal/domain"
	"github.com/Balorum/PhotoShare/pkg/database"
)

// firstUserLockKey serializes signups while the users table may be empty
const firstUserLockKey int64 = 0x70686f746f // "photo"

const userColumns = `id, username, email, password_hash, avatar, role, refresh_token, confirmed, is_active, created_at, updated_at`

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create creates a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, firstUserLockKey); err != nil {
			return fmt.Errorf("failed to acquire signup lock: %w", err)
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users)`).Scan(&exists); err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if !exists {
			user.Role = domain.RoleAdmin
		}

		query := `
			INSERT INTO users (username, email, password_hash, avatar, role, confirmed, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.Avatar,
			user.Role,
			user.Confirmed,
			user.IsActive,
		).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateEmail
			}
			return err
		}
		return nil
	})
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// Delete removes the user and returns the deleted row
func (r *PostgresUserRepository) Delete(ctx context.Context, userID int64) (*domain.User, error) {
	query := `DELETE FROM users WHERE id = $1 RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, userID))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Avatar,
		&user.Role,
		&user.RefreshToken,
		&user.Confirmed,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ExistsByEmail checks if a user exists with the given email
func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// UpdateRefreshToken stores or clears the refresh token digest
func (r *PostgresUserRepository) UpdateRefreshToken(ctx context.Context, userID int64, digest *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET refresh_token = $2, updated_at = NOW() WHERE id = $1`,
		userID, digest,
	)
	return err
}

// SetConfirmed marks the user's email as confirmed
func (r *PostgresUserRepository) SetConfirmed(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET confirmed = TRUE, updated_at = NOW() WHERE id = $1`,
		userID,
	)
	return err
}

// UpdateRole changes the user's role
func (r *PostgresUserRepository) UpdateRole(ctx context.Context, userID int64, role domain.Role) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`,
		userID, role,
	)
	return err
}

// SetActive bans or unbans the user
func (r *PostgresUserRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	query := `
		UPDATE users
		SET is_active = $2,
		    refresh_token = CASE WHEN $2 THEN refresh_token ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, userID, active)
	return err
}
