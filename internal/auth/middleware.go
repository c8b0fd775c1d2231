package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

// VersionSource reports a user's current token version so logged-out
// tokens stop working.
type VersionSource interface {
	GetTokenVersion(ctx context.Context, id string) (int, error)
}

var errRevoked = errors.New("token revoked")

// Authenticate parses raw and, when versions is set, rejects tokens issued
// before the user's last logout.
func Authenticate(ctx context.Context, tokens TokenService, versions VersionSource, raw string) (*Claims, error) {
	claims, err := tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if versions != nil {
		current, err := versions.GetTokenVersion(ctx, claims.UserID)
		if err != nil {
			return nil, err
		}
		if current != claims.TokenVersion {
			return nil, errRevoked
		}
	}
	return claims, nil
}

// EmailVerifier adapts Authenticate for the push channels, which only need
// to know whose alerts a connection may receive.
func EmailVerifier(tokens TokenService, versions VersionSource) func(ctx context.Context, token string) (string, error) {
	return func(ctx context.Context, token string) (string, error) {
		claims, err := Authenticate(ctx, tokens, versions, token)
		if err != nil {
			return "", err
		}
		return claims.Email, nil
	}
}

func AuthMiddleware(tokens TokenService, versions VersionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := Authenticate(c.Request.Context(), tokens, versions, h[len("Bearer "):])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
