package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ebasak22/Fitness/internal/domain"
)

const sessionKey = "memberSession"

// SessionResolver loads a stored session by bearer token.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Session, error)
}

// Auth validates the Authorization header and attaches the session.
type Auth struct {
	Sessions SessionResolver
}

// RequireSession ensures the request carries a valid bearer session token.
func (m *Auth) RequireSession(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_session", "error_description": "Authorization header required."})
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_session", "error_description": "Bearer token required."})
		return
	}

	sess, err := m.Sessions.Resolve(c.Request.Context(), parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Session lookup failed."})
		return
	}
	if sess == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_session", "error_description": "Session expired. Please login again."})
		return
	}

	c.Set(sessionKey, *sess)
	c.Next()
}

// GetSession exposes the authenticated session to handlers.
func GetSession(c *gin.Context) (domain.Session, bool) {
	value, ok := c.Get(sessionKey)
	if !ok {
		return domain.Session{}, false
	}
	sess, ok := value.(domain.Session)
	return sess, ok
}
