package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-site/portfolio-api/internal/tokens"
)

// fakeVerifier implements Verifier
type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (*tokens.Claims, error) {
	if raw == "goodtoken" {
		claims := &tokens.Claims{UserID: "user1", Email: "test@example.com"}
		claims.Subject = "user1"
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func serve(g *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	rw := serve(g, http.MethodGet, "/", "")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.JSONEq(t, `{"error":"Missing token","code":"UNAUTHORIZED"}`, rw.Body.String())
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusUnauthorized, serve(g, http.MethodGet, "/", "BadHeader").Code)
	require.Equal(t, http.StatusUnauthorized, serve(g, http.MethodGet, "/", "Basic goodtoken").Code)
	require.Equal(t, http.StatusUnauthorized, serve(g, http.MethodGet, "/", "Bearer badtoken").Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"sub": claims.Subject})
	})

	rw := serve(g, http.MethodGet, "/", "bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, "user1", got["sub"])
}

func TestRequireWriteAuth(t *testing.T) {
	build := func(required bool) *gin.Engine {
		g := gin.New()
		g.POST("/api/:collection", RequireWriteAuth(&fakeVerifier{}, required, []string{"projects"}), func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})
		return g
	}

	on := build(true)
	require.Equal(t, http.StatusUnauthorized, serve(on, http.MethodPost, "/api/projects", "").Code)
	require.Equal(t, http.StatusCreated, serve(on, http.MethodPost, "/api/projects", "Bearer goodtoken").Code)
	require.Equal(t, http.StatusCreated, serve(on, http.MethodPost, "/api/guestbook", "").Code, "unguarded collection")

	off := build(false)
	require.Equal(t, http.StatusCreated, serve(off, http.MethodPost, "/api/projects", "").Code)
}
