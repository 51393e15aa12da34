package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Balorum/PhotoShare/internal/dto"
	"github.com/Balorum/PhotoShare/internal/middleware"
	"github.com/Balorum/PhotoShare/internal/service"
	"github.com/Balorum/PhotoShare/pkg/response"
)

const (
	msgSignupDetail     = "User successfully created. Check your email for confirmation."
	msgEmailConfirmed   = "Email confirmed"
	msgAlreadyConfirmed = "Your email is already confirmed"
	msgCheckEmail       = "Check your email for confirmation."
	msgLoggedOut        = "Logged out successfully"
	msgBadEmailToken    = "Invalid token for email verification"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Signup handles user registration
// POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if valid, msg := req.Validate(); !valid {
		response.BadRequest(c, msg)
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), &req, baseURL(c))
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			response.Conflict(c, "Account already exists")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Created(c, dto.SignupResponse{
		User:   dto.NewUserResponse(user),
		Detail: msgSignupDetail,
	})
}

// Login accepts a JSON body or an OAuth2 password form
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Unauthorized(c, "Invalid email or password")
		case errors.Is(err, service.ErrEmailNotConfirmed):
			response.Unauthorized(c, "Email not confirmed")
		case errors.Is(err, service.ErrUserInactive):
			response.Forbidden(c, "User account is inactive")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.Success(c, dto.NewTokenResponse(pair))
}

// Logout revokes the presented access token
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	user := middleware.GetPrincipal(c)
	if err := h.authService.Logout(c.Request.Context(), user, middleware.GetAccessToken(c)); err != nil {
		middleware.AbortWithAuthError(c, err)
		return
	}

	response.Success(c, dto.MessageResponse{Message: msgLoggedOut})
}

// RefreshToken rotates the bearer refresh token
// GET /api/auth/refresh_token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		response.Unauthorized(c, middleware.MsgCouldNotValidate)
		return
	}

	pair, err := h.authService.RefreshTokens(c.Request.Context(), raw)
	if err != nil {
		middleware.AbortWithAuthError(c, err)
		return
	}

	response.Success(c, dto.NewTokenResponse(pair))
}

// ConfirmEmail redeems an email verification token
// GET /api/auth/confirmed_email/:token
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	already, err := h.authService.ConfirmEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVerificationFailed):
			response.BadRequest(c, "Verification error")
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrWrongScope):
			response.UnprocessableEntity(c, msgBadEmailToken)
		default:
			middleware.AbortWithAuthError(c, err)
		}
		return
	}

	msg := msgEmailConfirmed
	if already {
		msg = msgAlreadyConfirmed
	}
	response.Success(c, dto.MessageResponse{Message: msg})
}

// RequestEmail re-sends the verification email. The answer does not
// depend on whether the account exists.
// POST /api/auth/request_email
func (h *AuthHandler) RequestEmail(c *gin.Context) {
	var req dto.RequestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.RequestEmail(c.Request.Context(), req.Email, baseURL(c)); err != nil {
		response.InternalError(c, err)
		return
	}

	response.Success(c, dto.MessageResponse{Message: msgCheckEmail})
}

// baseURL is where links in outgoing emails point
func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd == "http" || fwd == "https" {
		scheme = fwd
	}
	return scheme + "://" + c.Request.Host + "/"
}

