package domain

import "time"

// RevokedToken marks an access token as unusable until it expires
type RevokedToken struct {
	TokenHash string
	Email     string
	RevokedAt time.Time
	ExpiresAt time.Time
}
