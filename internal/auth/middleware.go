package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextEmailKey holds the authenticated email in the gin context
const ContextEmailKey = "auth_email"

// CallerEmail returns the authenticated email, or "" for anonymous callers
func CallerEmail(c *gin.Context) string {
	return c.GetString(ContextEmailKey)
}

// Middleware authenticates requests carrying a bearer token
type Middleware struct {
	tokens *TokenManager
}

func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return token, true
}

// Authenticate rejects requests without a valid bearer token
func (m *Middleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		email, err := m.tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(ContextEmailKey, email)
		c.Next()
	}
}

// Optional records the caller when a valid token is present and lets
// anonymous requests through
func (m *Middleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if email, err := m.tokens.Verify(token); err == nil {
				c.Set(ContextEmailKey, email)
			}
		}
		c.Next()
	}
}
