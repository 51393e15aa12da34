package domain

import "time"

// Scope distinguishes the purpose a token was issued for
type Scope string

const (
	ScopeAccess  Scope = "access_token"
	ScopeRefresh Scope = "refresh_token"
	ScopeEmail   Scope = "email_verification"
)

// Claims is the decoded content of a token
type Claims struct {
	ID        string // unique per token so equal claims never yield equal tokens
	Subject   string
	Scope     Scope
	IssuedAt  time.Time
	ExpiresAt time.Time
}
