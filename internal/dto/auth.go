package dto

import (
	"regexp"
	"time"

	"github.com/Balorum/PhotoShare/internal/domain"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)
)

// SignupRequest represents registration request
type SignupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=16"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// Validate applies the checks binding tags cannot express
func (r *SignupRequest) Validate() (bool, string) {
	if !emailRegex.MatchString(r.Email) {
		return false, "Invalid email format"
	}
	if !usernameRegex.MatchString(r.Username) {
		return false, "Username may only contain letters, digits, '.', '_' and '-'"
	}
	return true, ""
}

// LoginRequest accepts either a JSON body or an OAuth2 password form,
// where the email travels in the username field
type LoginRequest struct {
	Email    string `json:"email" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// RequestEmailRequest asks for a new verification email
type RequestEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// NewTokenResponse converts a token pair
func NewTokenResponse(p *domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
	}
}

// UserResponse represents user data in response
type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar,omitempty"`
	Role      string `json:"role"`
	Confirmed bool   `json:"confirmed"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// NewUserResponse converts a domain user
func NewUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		Confirmed: u.Confirmed,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
	if u.Avatar != nil {
		resp.Avatar = *u.Avatar
	}
	return resp
}

// SignupResponse is returned by signup
type SignupResponse struct {
	User   UserResponse `json:"user"`
	Detail string       `json:"detail"`
}

// MessageResponse carries a human readable outcome
type MessageResponse struct {
	Message string `json:"message"`
}
