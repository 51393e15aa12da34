package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Balorum/PhotoShare/internal/dto"
	"github.com/Balorum/PhotoShare/internal/middleware"
	"github.com/Balorum/PhotoShare/internal/service"
	"github.com/Balorum/PhotoShare/pkg/response"
)

// UserHandler handles user administration requests
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me returns the authenticated user
// GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	user := h.userService.Me(middleware.GetPrincipal(c))
	if user == nil {
		response.Unauthorized(c, middleware.MsgCouldNotValidate)
		return
	}
	response.Success(c, dto.NewUserResponse(user))
}

// ChangeRole sets the role of a user
// PATCH /api/users/change_role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.ChangeRole(c.Request.Context(), req.Email, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrRoleUnchanged) {
			response.Success(c, dto.MessageResponse{Message: "Role is already exists"})
			return
		}
		h.adminError(c, err)
		return
	}

	response.Success(c, dto.MessageResponse{Message: "Role of " + user.Email + " changed to " + string(user.Role)})
}

// Ban deactivates a user
// PATCH /api/users/ban
func (h *UserHandler) Ban(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Ban(c.Request.Context(), req.Email)
	if err != nil {
		h.adminError(c, err)
		return
	}

	response.Success(c, dto.MessageResponse{Message: user.Email + " is banned"})
}

// RemoveFromBan reactivates a user
// PATCH /api/users/remove_from_ban
func (h *UserHandler) RemoveFromBan(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Unban(c.Request.Context(), req.Email)
	if err != nil {
		h.adminError(c, err)
		return
	}

	response.Success(c, dto.MessageResponse{Message: user.Email + " is active again"})
}

// Delete removes a user by ID
// DELETE /api/users/delete/:user_id
func (h *UserHandler) Delete(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid user id")
		return
	}

	if err := h.userService.Delete(c.Request.Context(), userID); err != nil {
		h.adminError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) adminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, "User not found")
	case errors.Is(err, service.ErrAlreadyBanned):
		response.Conflict(c, "User is already banned")
	case errors.Is(err, service.ErrAlreadyActive):
		response.Conflict(c, "This email is already active")
	default:
		response.InternalError(c, err)
	}
}
