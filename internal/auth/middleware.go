package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CookieName carries the session token for browsers that do not send headers.
const CookieName = "rollcall_session"

// ContextKey is where SessionAuth stores the session id.
const ContextKey = "session_id"

// SessionAuth enforces HS256 session tokens from a bearer header or the
// session cookie.
func SessionAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearer(c.GetHeader("Authorization"))
		if tokenStr == "" {
			tokenStr, _ = c.Cookie(CookieName)
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}
		c.Set(ContextKey, claims.Session)
		c.Next()
	}
}

// SessionID returns the id set by SessionAuth.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextKey)
}

func bearer(authz string) string {
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}
