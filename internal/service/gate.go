package service

import (
	"context"

	"github.com/Balorum/PhotoShare/internal/domain"
)

// Gate admits principals whose role is in a fixed set
type Gate struct {
	tokens  TokenService
	allowed map[domain.Role]struct{}
}

// NewGate creates a Gate for the given roles
func NewGate(tokens TokenService, roles ...domain.Role) *Gate {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return &Gate{tokens: tokens, allowed: allowed}
}

// Allows reports whether role may pass
func (g *Gate) Allows(role domain.Role) bool {
	_, ok := g.allowed[role]
	return ok
}

// Check resolves raw and returns the principal if its role is allowed
func (g *Gate) Check(ctx context.Context, raw string) (*domain.User, error) {
	user, err := g.tokens.ResolvePrincipal(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !g.Allows(user.Role) {
		return nil, ErrForbidden
	}
	return user, nil
}
