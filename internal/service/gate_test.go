package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Balorum/PhotoShare/internal/domain"
)

func TestGate_Check(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	gate := NewGate(f.tokens, domain.DeleteRoles...)

	tests := []struct {
		name    string
		role    domain.Role
		wantErr error
	}{
		{"admin allowed", domain.RoleAdmin, nil},
		{"moderator allowed", domain.RoleModerator, nil},
		{"user forbidden", domain.RoleUser, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := f.activeUser(t, string(tt.role)+"@example.com", tt.role)
			raw, err := f.tokens.IssueAccessToken(user)
			require.NoError(t, err)

			principal, err := gate.Check(ctx, raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, principal)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.Email, principal.Email)
		})
	}
}

func TestGate_AuthenticationFailuresPassThrough(t *testing.T) {
	f := newFixture(t, nil)
	gate := NewGate(f.tokens, domain.ReadRoles...)

	_, err := gate.Check(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestGate_Allows(t *testing.T) {
	gate := NewGate(nil, domain.AdminRoles...)

	assert.True(t, gate.Allows(domain.RoleAdmin))
	assert.False(t, gate.Allows(domain.RoleModerator))
	assert.False(t, gate.Allows(domain.Role("")))

	empty := NewGate(nil)
	assert.False(t, empty.Allows(domain.RoleAdmin))
}
