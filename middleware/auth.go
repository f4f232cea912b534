package middleware

import (
	"net/http"
	"strings"

	"ecopoints/session"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// Session requires a valid session token, read from the Authorization
// bearer header or, for WebSocket upgrades, from the token query parameter.
func Session(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
			return
		}

		s, err := manager.Parse(tokenString)
		if err != nil {
			log.Debugf("Rejected session token from %s: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		c.Set(sessionKey, s)
		c.Next()
	}
}

// GetSession returns the session stored by Session.
func GetSession(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*session.Session)
	return s, ok && s != nil
}

func extractToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
