package dto

import "github.com/Balorum/PhotoShare/internal/domain"

// ChangeRoleRequest represents an admin role change.
// Unknown roles fail binding through domain.Role's text unmarshaling.
type ChangeRoleRequest struct {
	Email string      `json:"email" binding:"required,email"`
	Role  domain.Role `json:"role" binding:"required"`
}

// EmailRequest targets a user by email
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}
