package domain

import (
	"fmt"
	"time"
)

// Role represents user role
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Role sets used by route gates
var (
	ReadRoles   = []Role{RoleAdmin, RoleModerator, RoleUser}
	DeleteRoles = []Role{RoleAdmin, RoleModerator}
	AdminRoles  = []Role{RoleAdmin}
)

// ParseRole converts s to a Role, rejecting anything outside the closed set
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleModerator, RoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// UnmarshalText lets JSON and form binding reject unknown roles
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User represents a user entity
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize password
	Avatar       *string   `json:"avatar,omitempty"`
	Role         Role      `json:"role"`
	RefreshToken *string   `json:"-"` // digest of the last issued refresh token
	Confirmed    bool      `json:"confirmed"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenPair is returned by login and refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
