package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Balorum/PhotoShare/internal/domain"
)

// PostgresRevocationRepository stores revoked tokens in the revoked_tokens table
type PostgresRevocationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRevocationRepository creates a new PostgresRevocationRepository
func NewPostgresRevocationRepository(pool *pgxpool.Pool) *PostgresRevocationRepository {
	return &PostgresRevocationRepository{pool: pool}
}

// Add records a revoked token
func (r *PostgresRevocationRepository) Add(ctx context.Context, entry *domain.RevokedToken) error {
	query := `
		INSERT INTO revoked_tokens (token_hash, email, revoked_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, entry.TokenHash, entry.Email, entry.RevokedAt, entry.ExpiresAt)
	return err
}

// Exists reports whether the token hash is revoked
func (r *PostgresRevocationRepository) Exists(ctx context.Context, tokenHash string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token_hash = $1)`,
		tokenHash,
	).Scan(&exists)
	return exists, err
}

// DeleteExpired removes up to limit entries that expired before the given time
func (r *PostgresRevocationRepository) DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error) {
	query := `
		DELETE FROM revoked_tokens
		WHERE token_hash IN (
			SELECT token_hash FROM revoked_tokens
			WHERE expires_at < $1
			LIMIT $2
		)
	`
	tag, err := r.pool.Exec(ctx, query, before, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
