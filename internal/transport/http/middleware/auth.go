package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	ctxlog "github.com/ErlanBelekov/magic-auth/internal/log"
	"github.com/gin-gonic/gin"
)

const (
	errUnauthorized = "Unauthorized"
	errUnavailable  = "Service temporarily unavailable"

	// Context keys set on success.
	UserIDKey = "userID"
	UserKey   = "user"
)

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*domain.User, error)
}

// Auth reads the session token from cookieName, falling back to an
// Authorization: Bearer header, and sets "userID" and "user" in the gin
// context.
func Auth(auth Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := sessionToken(c, cookieName)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, domain.ErrSystemUnavailable) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": errUnavailable})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Request = c.Request.WithContext(ctxlog.WithUserID(c.Request.Context(), user.ID))
		c.Set(UserIDKey, user.ID)
		c.Set(UserKey, user)
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
