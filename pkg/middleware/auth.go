package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/portfolio-site/portfolio-api/internal/apierr"
	"github.com/portfolio-site/portfolio-api/internal/tokens"
)

// ClaimsKey is the gin context key holding *tokens.Claims after authentication.
const ClaimsKey = "claims"

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (*tokens.Claims, error)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(c *gin.Context) (string, error) {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if auth == "" {
		return "", apierr.Unauthenticated("Missing token")
	}
	scheme, token, ok := strings.Cut(auth, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", apierr.Unauthenticated("invalid Authorization header")
	}
	return token, nil
}

func authenticate(c *gin.Context, ver Verifier) bool {
	raw, err := bearerToken(c)
	if err != nil {
		apierr.Write(c, err)
		return false
	}
	claims, err := ver.Verify(c.Request.Context(), raw)
	if err != nil {
		apierr.Write(c, apierr.Wrap(apierr.Unauthorized, "Invalid token", err))
		return false
	}
	c.Set(ClaimsKey, claims)
	return true
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, ver) {
			return
		}
		c.Next()
	}
}

// RequireWriteAuth guards writes to the administered collections named by the
// ":collection" route parameter. With required false every write passes.
func RequireWriteAuth(ver Verifier, required bool, collections []string) gin.HandlerFunc {
	guarded := make(map[string]bool, len(collections))
	for _, name := range collections {
		guarded[name] = true
	}
	return func(c *gin.Context) {
		if !required || !guarded[c.Param("collection")] {
			c.Next()
			return
		}
		if !authenticate(c, ver) {
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the verified claims stored by AuthMiddleware.
func ClaimsFrom(c *gin.Context) (*tokens.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*tokens.Claims)
	return claims, ok && claims != nil
}

// rateLimitKey keys limiter buckets by client IP. The limiters run before
// authentication, so the bearer token is never consulted.
func rateLimitKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
