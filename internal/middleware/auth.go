package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Balorum/PhotoShare/internal/domain"
	"github.com/Balorum/PhotoShare/internal/service"
	"github.com/Balorum/PhotoShare/pkg/logger"
	pkgmw "github.com/Balorum/PhotoShare/pkg/middleware"
	"github.com/Balorum/PhotoShare/pkg/response"
)

const (
	// PrincipalKey is the context key for the authenticated user
	PrincipalKey = "principal"
	// AccessTokenKey is the context key for the presented access token
	AccessTokenKey = "access_token"

	// MsgCouldNotValidate is the single client message for every authentication failure
	MsgCouldNotValidate = "Could not validate credentials"
	// MsgForbidden is returned when the role is not allowed
	MsgForbidden = "Operation forbidden, you don't have access rights"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireRoles authenticates the bearer token and admits only principals
// allowed by gate. The principal is stored under PrincipalKey.
func RequireRoles(gate *service.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			response.Unauthorized(c, MsgCouldNotValidate)
			return
		}

		user, err := gate.Check(c.Request.Context(), token)
		if err != nil {
			AbortWithAuthError(c, err)
			return
		}

		c.Set(PrincipalKey, user)
		c.Set(AccessTokenKey, token)
		c.Next()
	}
}

// AbortWithAuthError maps a token or gate failure to 401/403. Any error that
// is not an AuthError is an infrastructure failure and becomes a 500.
func AbortWithAuthError(c *gin.Context, err error) {
	var authErr *service.AuthError
	if !errors.As(err, &authErr) {
		_ = c.Error(err)
		response.AbortError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error")
		return
	}

	if authErr.Code == service.CodeForbidden {
		response.Forbidden(c, MsgForbidden)
		return
	}

	// The specific reason is only visible in logs
	logger.Get().Debug("Authentication rejected",
		zap.String("code", string(authErr.Code)),
		zap.String("request_id", pkgmw.GetRequestID(c)),
	)
	response.Unauthorized(c, MsgCouldNotValidate)
}

// GetPrincipal returns the user stored by RequireRoles
func GetPrincipal(c *gin.Context) *domain.User {
	if v, ok := c.Get(PrincipalKey); ok {
		if user, ok := v.(*domain.User); ok {
			return user
		}
	}
	return nil
}

// GetAccessToken returns the access token stored by RequireRoles
func GetAccessToken(c *gin.Context) string {
	return c.GetString(AccessTokenKey)
}
