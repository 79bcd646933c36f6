package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rosec/backend/internal/config"
	"github.com/rosec/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, userID uuid.UUID) string {
	t.Helper()
	claims := &services.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newRouter(roles map[uuid.UUID]string) *gin.Engine {
	auth := services.NewAuthService(nil, &config.Config{JWT: config.JWTConfig{Secret: "s3cret"}})
	cache := services.NewRoleCache(func(ctx context.Context, id uuid.UUID) (string, error) {
		role, ok := roles[id]
		if !ok {
			return "", services.ErrUserNotFound
		}
		return role, nil
	}, time.Minute)

	r := gin.New()
	r.Use(Logger())
	api := r.Group("/", AuthMiddleware(auth, cache))
	api.GET("/staff", RequireStaff(), func(c *gin.Context) { c.String(http.StatusOK, c.GetString("role")) })
	api.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuthMiddleware(t *testing.T) {
	admin, teacher, ghost := uuid.New(), uuid.New(), uuid.New()
	r := newRouter(map[uuid.UUID]string{admin: "admin", teacher: "teacher"})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/staff", "", http.StatusUnauthorized},
		{"wrong scheme", "/staff", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/staff", "Bearer nope", http.StatusUnauthorized},
		{"teacher staff", "/staff", "Bearer " + signToken(t, "s3cret", teacher), http.StatusOK},
		{"teacher admin", "/admin", "Bearer " + signToken(t, "s3cret", teacher), http.StatusForbidden},
		{"admin admin", "/admin", "Bearer " + signToken(t, "s3cret", admin), http.StatusNoContent},
		{"unknown user", "/staff", "Bearer " + signToken(t, "s3cret", ghost), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
		})
	}
}
