package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Balorum/PhotoShare/internal/domain"
	"github.com/Balorum/PhotoShare/internal/service"
	"github.com/Balorum/PhotoShare/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockTokenService resolves tokens from a table
type mockTokenService struct {
	service.TokenService
	mock.Mock
}

func (m *mockTokenService) ResolvePrincipal(ctx context.Context, raw string) (*domain.User, error) {
	args := m.Called(ctx, raw)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func newRouter(tokens service.TokenService, roles ...domain.Role) *gin.Engine {
	r := gin.New()
	r.GET("/protected", RequireRoles(service.NewGate(tokens, roles...)), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": GetPrincipal(c).Email, "token": GetAccessToken(c)})
	})
	return r
}

func do(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestRequireRoles_Allowed(t *testing.T) {
	tokens := &mockTokenService{}
	tokens.On("ResolvePrincipal", mock.Anything, "good").Return(&domain.User{Email: "a@b.com", Role: domain.RoleAdmin, IsActive: true}, nil)

	w := do(newRouter(tokens, domain.AdminRoles...), "Bearer good")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"a@b.com","token":"good"}`, w.Body.String())
}

func TestRequireRoles_SchemeIsCaseInsensitive(t *testing.T) {
	tokens := &mockTokenService{}
	tokens.On("ResolvePrincipal", mock.Anything, "good").Return(&domain.User{Email: "a@b.com", Role: domain.RoleUser}, nil)

	w := do(newRouter(tokens, domain.ReadRoles...), "bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoles_MissingOrMalformedHeader(t *testing.T) {
	tokens := &mockTokenService{}
	r := newRouter(tokens, domain.ReadRoles...)

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic dXNlcjpwYXNz", "good"} {
		w := do(r, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	}
	tokens.AssertNotCalled(t, "ResolvePrincipal", mock.Anything, mock.Anything)
}

func TestRequireRoles_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid token", service.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scope", service.ErrWrongScope, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"revoked", service.ErrRevoked, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"banned", service.ErrBanned, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"infrastructure", errors.New("redis down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := &mockTokenService{}
			tokens.On("ResolvePrincipal", mock.Anything, "tok").Return(nil, tt.err)

			w := do(newRouter(tokens, domain.ReadRoles...), "Bearer tok")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
			assert.NotContains(t, w.Body.String(), "redis")
		})
	}
}

func TestRequireRoles_Forbidden(t *testing.T) {
	tokens := &mockTokenService{}
	tokens.On("ResolvePrincipal", mock.Anything, "tok").Return(&domain.User{Email: "u@b.com", Role: domain.RoleUser}, nil)

	w := do(newRouter(tokens, domain.DeleteRoles...), "Bearer tok")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))
	assert.Empty(t, w.Header().Get("WWW-Authenticate"))
	assert.Contains(t, w.Body.String(), MsgForbidden)
}
